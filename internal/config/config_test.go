package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/ticket-checkout/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("SMTP_HOST", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "eur", cfg.Payment.Currency)
	assert.Equal(t, 30*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "billing@eventmite.com", cfg.Mail.BillingAddress)
	assert.False(t, cfg.Payment.Configured())
	assert.False(t, cfg.Mail.Configured())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("PAYMENT_TIMEOUT", "5s")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USER", "mailer")
	t.Setenv("SMTP_PASS", "secret")
	t.Setenv("SMTP_FROM", "tickets@example.com")
	t.Setenv("SMTP_SECURE", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Payment.Configured())
	assert.Equal(t, 5*time.Second, cfg.Payment.Timeout)
	assert.True(t, cfg.Mail.Configured())
	assert.True(t, cfg.Mail.Secure)
	assert.Equal(t, 465, cfg.Mail.Port)
}

func TestMailConfig_Missing(t *testing.T) {
	m := config.MailConfig{Host: "smtp.example.com", Port: 587}
	assert.Equal(t, []string{"SMTP_FROM"}, m.Missing())

	m = config.MailConfig{Port: 587, User: "user"}
	assert.Equal(t, []string{"SMTP_HOST", "SMTP_PASS", "SMTP_FROM"}, m.Missing())

	m = config.MailConfig{Host: "smtp.example.com", Port: 587, Password: "secret", From: "tickets@example.com"}
	assert.Equal(t, []string{"SMTP_USER"}, m.Missing())
}

func TestMailConfig_UnauthenticatedRelay(t *testing.T) {
	m := config.MailConfig{Host: "relay.internal", Port: 25, From: "tickets@example.com"}

	assert.Empty(t, m.Missing())
	assert.True(t, m.Configured())
}
