package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"mysql"`
	MySQLURL    string `env:"MYSQL_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBUser      string `env:"DB_USER" envDefault:"root"`
	DBPass      string `env:"DB_PASS"`
	DBHost      string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort      string `env:"DB_PORT" envDefault:"3306"`
	DBName      string `env:"DB_NAME" envDefault:"checkin_db"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"checkin.db"`

	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:","`
	SettingsFile string   `env:"SETTINGS_FILE" envDefault:"settings.yaml"`
	FrontendURL  string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	SuperAdminEmail       string        `env:"SUPER_ADMIN_EMAIL" envDefault:"admin@vibee.com"`
	SuperAdminPassword    string        `env:"SUPER_ADMIN_PASSWORD"`
	DefaultMemberPassword string        `env:"DEFAULT_MEMBER_PASSWORD" envDefault:"Vibee1234!"`
	AuthSecret            string        `env:"AUTH_SECRET"`
	AuthTokenTTL          time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"12h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	JotformAPIBase string `env:"JOTFORM_API_BASE" envDefault:"https://vibee.jotform.com/API"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Check-In System"`
}

// Load reads an optional .env file and parses the environment. It reports
// whether a .env file was found so the caller can log it.
func Load() (Config, bool, error) {
	loaded := godotenv.Load() == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, loaded, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver != "mysql" && cfg.DBDriver != "sqlite" {
		return Config{}, loaded, fmt.Errorf("DB_DRIVER must be mysql or sqlite, got %q", cfg.DBDriver)
	}
	return cfg, loaded, nil
}

// Origins returns the allowed CORS origins, "*" when none are set.
func (c Config) Origins() []string {
	origins := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
