package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "sk-a****yz", MaskSecret("sk-abcdefghixyz"))
	assert.NotContains(t, MaskSecret("sk-verysecretvalue123"), "secret")
}
