package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
)

// EmailChannel delivers over SMTP with implicit TLS, the mode mailbox
// providers like smtp.qq.com expect on port 465.
type EmailChannel struct {
	host      string
	port      int
	sender    string
	password  string
	receivers []string
}

// NewEmailChannel creates a new email channel.
func NewEmailChannel(cc config.ChannelConfig) *EmailChannel {
	port := cc.SMTPPort
	if port == 0 {
		port = 465
	}
	return &EmailChannel{
		host:      cc.SMTPHost,
		port:      port,
		sender:    cc.Sender,
		password:  cc.Password,
		receivers: cc.Receivers,
	}
}

// Name returns the channel identifier.
func (c *EmailChannel) Name() string {
	return "email"
}

// MaxBytes is unlimited for email.
func (c *EmailChannel) MaxBytes() int {
	return 0
}

// Send connects, authenticates, and sends one message to all receivers.
func (c *EmailChannel) Send(ctx context.Context, payload string) error {
	if len(c.receivers) == 0 {
		return fmt.Errorf("email channel has no receivers")
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: c.host}}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", c.sender, c.password, c.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}

	if err := client.Mail(c.sender); err != nil {
		return err
	}
	for _, rcpt := range c.receivers {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	msg := c.buildMessage(payload)
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (c *EmailChannel) buildMessage(payload string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.sender)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.receivers, ", "))
	fmt.Fprintf(&b, "Subject: AI Stock Assistant Report\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(payload)
	return b.String()
}
