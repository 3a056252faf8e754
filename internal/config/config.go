package config

import (
	"fmt"
	"strings"

	"github.com/op/go-logging"
	"github.com/spf13/viper"
)

var log = logging.MustGetLogger("config")

const (
	defaultDSN  = "host=localhost user=postgres password=postgres dbname=tradepos port=5432 sslmode=disable"
	defaultCORS = "http://localhost:5173"
)

type Config struct {
	HTTPPort    string
	DBDriver    string // postgres | mysql
	DatabaseDSN string
	JWTSecret   string
	JWTTTLHours int
	CORSOrigins string
	LogLevel    string

	RatesAPIURL       string
	RatesBaseCurrency string
	RatesTargets      []string
	RatesRefreshHours int
	SystemCurrency    string
	TaxRatePercent    float64

	AMQPURL           string
	AMQPExchange      string
	OutboxPollSeconds int

	PDFFontPath    string
	PDFLogoPath    string
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
}

var defaults = map[string]any{
	"HTTP_PORT":            "8080",
	"DB_DRIVER":            "postgres",
	"DATABASE_DSN":         defaultDSN,
	"JWT_TTL_HOURS":        24,
	"CORS_ALLOWED_ORIGINS": defaultCORS,
	"LOG_LEVEL":            "INFO",
	"RATES_API_URL":        "https://open.er-api.com/v6/latest",
	"RATES_BASE_CURRENCY":  "USD",
	"RATES_TARGETS":        "EGP,AED,EUR,SAR",
	"RATES_REFRESH_HOURS":  6,
	"SYSTEM_CURRENCY":      "EGP",
	"TAX_RATE_PERCENT":     14.0,
	"AMQP_EXCHANGE":        "tradepos.events",
	"OUTBOX_POLL_SECONDS":  5,
	"COMPANY_NAME":         "Trade POS",
}

// Load reads an optional .env file, then the process environment on top of it.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Debugf(".env not read, using environment only: %v", err)
	}
	v.AutomaticEnv()

	// keys with no default are only picked up by AutomaticEnv when bound
	for _, key := range []string{"JWT_SECRET", "AMQP_URL", "PDF_FONT_PATH", "PDF_LOGO_PATH", "COMPANY_ADDRESS", "COMPANY_PHONE"} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{
		HTTPPort:          v.GetString("HTTP_PORT"),
		DBDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTTTLHours:       v.GetInt("JWT_TTL_HOURS"),
		CORSOrigins:       v.GetString("CORS_ALLOWED_ORIGINS"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		RatesAPIURL:       v.GetString("RATES_API_URL"),
		RatesBaseCurrency: strings.ToUpper(v.GetString("RATES_BASE_CURRENCY")),
		RatesTargets:      splitList(strings.ToUpper(v.GetString("RATES_TARGETS"))),
		RatesRefreshHours: v.GetInt("RATES_REFRESH_HOURS"),
		SystemCurrency:    strings.ToUpper(v.GetString("SYSTEM_CURRENCY")),
		TaxRatePercent:    v.GetFloat64("TAX_RATE_PERCENT"),
		AMQPURL:           v.GetString("AMQP_URL"),
		AMQPExchange:      v.GetString("AMQP_EXCHANGE"),
		OutboxPollSeconds: v.GetInt("OUTBOX_POLL_SECONDS"),
		PDFFontPath:       v.GetString("PDF_FONT_PATH"),
		PDFLogoPath:       v.GetString("PDF_LOGO_PATH"),
		CompanyName:       v.GetString("COMPANY_NAME"),
		CompanyAddress:    v.GetString("COMPANY_ADDRESS"),
		CompanyPhone:      v.GetString("COMPANY_PHONE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch cfg.DBDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (postgres|mysql)", cfg.DBDriver)
	}
	if cfg.TaxRatePercent < 0 || cfg.TaxRatePercent > 100 {
		return fmt.Errorf("TAX_RATE_PERCENT must be between 0 and 100")
	}
	if cfg.OutboxPollSeconds <= 0 {
		cfg.OutboxPollSeconds = 5
	}
	if cfg.RatesRefreshHours <= 0 {
		cfg.RatesRefreshHours = 6
	}
	if cfg.JWTTTLHours <= 0 {
		cfg.JWTTTLHours = 24
	}

	if cfg.DatabaseDSN == defaultDSN {
		log.Warning("DATABASE_DSN is the default value, set your own connection for production")
	}
	if cfg.CORSOrigins == defaultCORS {
		log.Warning("CORS_ALLOWED_ORIGINS is the default value, set your own domain for production")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
