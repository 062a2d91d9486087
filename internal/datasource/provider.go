// Package datasource implements the data-source failover manager and the
// upstream quote providers it drives.
package datasource

import (
	"context"
	"fmt"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// Provider is the capability every upstream data source implements. The
// manager depends only on this interface, never on transport details.
type Provider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)
	FetchHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error)
	HealthCheck(ctx context.Context) error
}

// Source pairs a provider with its configuration. Sources are tried in slice
// order, which the manager derives from priority.
type Source struct {
	Provider Provider
	Config   config.ProviderConfig
}

// MockProviderName is the identifier of the synthetic fallback provider.
const MockProviderName = "mock"

// BuildSources turns provider configs into constructed providers using a
// registry keyed by name. The synthetic provider is always appended as the
// last-priority source unless the config explicitly disables it.
func BuildSources(cfgs []config.ProviderConfig) ([]Source, error) {
	var sources []Source
	mockDisabled := false

	for _, pc := range cfgs {
		if pc.Name == MockProviderName {
			// Mock placement is forced below regardless of its priority.
			if !pc.Enabled {
				mockDisabled = true
			}
			continue
		}
		if !pc.Enabled {
			continue
		}
		p, err := newProvider(pc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, Source{Provider: p, Config: pc})
	}

	if !mockDisabled {
		mc := config.ProviderConfig{Name: MockProviderName, Enabled: true, MaxRetries: 1}
		sources = append(sources, Source{Provider: NewMockProvider(), Config: mc})
	}
	return sources, nil
}

func newProvider(pc config.ProviderConfig) (Provider, error) {
	switch pc.Name {
	case "akshare":
		return NewAkShareProvider(pc), nil
	case "pytdx":
		return NewPytdxProvider(pc), nil
	default:
		return nil, fmt.Errorf("unknown data provider: %s", pc.Name)
	}
}
