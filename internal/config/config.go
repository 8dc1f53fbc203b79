package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`
	CRDBDSN      string `env:"CRDB_DSN"`
	MongoURI     string `env:"MONGO_URI"`
	MongoDB      string `env:"MONGO_DB" envDefault:"checkout"`
	// CatalogSeedFile is read by the seed-catalog command.
	CatalogSeedFile string `env:"CATALOG_SEED_FILE" envDefault:"catalog.json"`
	RedisAddr    string `env:"REDIS_ADDR"`
	RabbitURL    string `env:"RABBIT_URL"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Payment PaymentConfig
	Mail    MailConfig
	Ticket  TicketConfig

	DefaultVenue    string        `env:"DEFAULT_VENUE" envDefault:"Peadar Kearney's Pub - Cellar"`
	IdempotencyTTL  time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	BookingCacheTTL time.Duration `env:"BOOKING_CACHE_TTL" envDefault:"1h"`
	CheckoutRate    int           `env:"CHECKOUT_RATE_PER_MINUTE" envDefault:"20"`
}

type PaymentConfig struct {
	StripeSecretKey string        `env:"STRIPE_SECRET_KEY"`
	Currency        string        `env:"PAYMENT_CURRENCY" envDefault:"eur"`
	Timeout         time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"30s"`
}

// Configured reports whether a processor secret is present.
func (c PaymentConfig) Configured() bool {
	return c.StripeSecretKey != ""
}

type TicketConfig struct {
	Brand string `env:"TICKET_BRAND" envDefault:"EVENTHUB"`
	// FontPath selects a UTF-8 TrueType font; empty uses the built-in Helvetica.
	FontPath string `env:"TICKET_FONT_PATH"`
}

type MailConfig struct {
	Host           string        `env:"SMTP_HOST"`
	Port           int           `env:"SMTP_PORT" envDefault:"587"`
	User           string        `env:"SMTP_USER"`
	Password       string        `env:"SMTP_PASS"`
	From           string        `env:"SMTP_FROM"`
	Secure         bool          `env:"SMTP_SECURE"`
	BillingAddress string        `env:"BILLING_EMAIL" envDefault:"billing@eventmite.com"`
	Timeout        time.Duration `env:"MAIL_TIMEOUT" envDefault:"20s"`
}

// Missing lists the SMTP variables that are not set. SMTP_USER and SMTP_PASS
// are optional for unauthenticated relays but must be given together.
func (c MailConfig) Missing() []string {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if c.Port == 0 {
		missing = append(missing, "SMTP_PORT")
	}
	if c.User == "" && c.Password != "" {
		missing = append(missing, "SMTP_USER")
	}
	if c.Password == "" && c.User != "" {
		missing = append(missing, "SMTP_PASS")
	}
	if c.From == "" {
		missing = append(missing, "SMTP_FROM")
	}
	return missing
}

func (c MailConfig) Configured() bool {
	return len(c.Missing()) == 0
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return &cfg, nil
}
