package config

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the portal API and the admin CLI.
type Config struct {
	Port     string `env:"PORT,default=8080"`
	MongoURI string `env:"MONGO_URI,default=mongodb://localhost:27017/"`
	DBName   string `env:"DB_NAME,default=maternity_matters"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL,default=24h"`

	ClientURL      string   `env:"CLIENT_URL,default=http://localhost:5173"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS,default=100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW,default=15m"`

	// TrustedProxyHeader is only set behind a reverse proxy that overwrites it.
	TrustedProxyHeader string `env:"TRUSTED_PROXY_HEADER"`

	SendGridAPIKey  string `env:"SENDGRID_API_KEY"`
	MailFromAddress string `env:"MAIL_FROM_ADDRESS,default=no-reply@maternitymatters.in"`
	MailFromName    string `env:"MAIL_FROM_NAME,default=Maternity Matters"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL,default=http://localhost:8080/api/auth/google/callback"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL,default=gemini-1.5-flash"`

	BcryptCost int `env:"BCRYPT_COST,default=10"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	StaticDir    string `env:"STATIC_DIR"`
	LogLevel     string `env:"LOG_LEVEL,default=info"`
	LogFormat    string `env:"LOG_FORMAT,default=console"`
}

// LoadConfig loads environment variables from a .env file (if present) and
// then populates Config from the process environment.
func LoadConfig(ctx context.Context) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using system environment variables")
	}
	return Load(ctx, envconfig.OsLookuper())
}

// Load populates Config from the given lookuper.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}
	cfg.AllowedOrigins = mergeOrigins(cfg.AllowedOrigins, cfg.ClientURL)
	return cfg, nil
}

// ValidateServer checks the settings only the API server needs. The admin
// CLI loads the same Config without them.
func (c Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// mergeOrigins trims and dedupes the allow-list and makes sure the client URL is on it.
func mergeOrigins(origins []string, clientURL string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, o := range append(origins, clientURL) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		merged = append(merged, o)
	}
	return merged
}
