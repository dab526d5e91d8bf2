package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"examprep.db"`

	JWT     JWT     `envPrefix:"JWT_"`
	Payment Payment `envPrefix:"PAYMENT_"`
	Catalog Catalog `envPrefix:"CATALOG_"`
}

type Payment struct {
	BaseApiURL   string `env:"BASE_API_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	WebhookID    string `env:"WEBHOOK_ID"`
	ReturnURL    string `env:"RETURN_URL"`
}

type JWT struct {
	Secret string `env:"SECRET"`
}

type Catalog struct {
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
