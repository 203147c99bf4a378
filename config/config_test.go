package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"checkin-backend/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("AUTH_TOKEN_TTL", "2h")

	cfg, _, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBDriver != "sqlite" || cfg.Port != "8080" || cfg.AuthTokenTTL != 2*time.Hour {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DefaultMemberPassword != "Vibee1234!" || cfg.SuperAdminEmail != "admin@vibee.com" {
		t.Fatalf("account defaults = %+v", cfg)
	}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[1] != "https://b.example.com" {
		t.Fatalf("origins = %v", origins)
	}
	if got := (Config{}).Origins(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("default origins = %v", got)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	if _, _, err := Load(); err == nil {
		t.Fatal("expected an error for postgres")
	}
}

func TestResolveMySQLDSN(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		user   string
		addr   string
		dbName string
	}{
		{
			name:   "url",
			cfg:    Config{MySQLURL: "mysql://app:pw@db.example.com:3307/events?tls=skip-verify"},
			user:   "app",
			addr:   "db.example.com:3307",
			dbName: "events",
		},
		{
			name:   "url default port",
			cfg:    Config{DatabaseURL: "mysql://app:pw@db.example.com/events"},
			user:   "app",
			addr:   "db.example.com:3306",
			dbName: "events",
		},
		{
			name:   "plain dsn",
			cfg:    Config{MySQLURL: "root:secret@tcp(10.0.0.5:3306)/checkin?parseTime=true"},
			user:   "root",
			addr:   "10.0.0.5:3306",
			dbName: "checkin",
		},
		{
			name:   "parts",
			cfg:    Config{DBUser: "root", DBHost: "127.0.0.1", DBPort: "3306", DBName: "checkin_db"},
			user:   "root",
			addr:   "127.0.0.1:3306",
			dbName: "checkin_db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, dbName, err := ResolveMySQLDSN(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			parsed, err := mysqldriver.ParseDSN(dsn)
			if err != nil {
				t.Fatalf("dsn %q does not parse: %v", dsn, err)
			}
			if dbName != tt.dbName || parsed.DBName != tt.dbName || parsed.User != tt.user || parsed.Addr != tt.addr {
				t.Fatalf("dsn = %q (%+v)", dsn, parsed)
			}
			if !parsed.ParseTime {
				t.Fatal("parseTime not enabled")
			}
		})
	}

	if _, _, err := ResolveMySQLDSN(Config{MySQLURL: "mysql://app:pw@db.example.com/"}); err == nil {
		t.Fatal("expected an error for a url without database")
	}
}

func TestSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	s, err := LoadSettingsFile(path)
	if err != nil || s != models.DefaultSettings() {
		t.Fatalf("missing file = %+v, %v", s, err)
	}

	s.HeaderName = "Front Desk"
	s.JotformFormID = "777"
	if err := SaveSettingsFile(path, s); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSettingsFile(path)
	if err != nil || got != s {
		t.Fatalf("reloaded = %+v, %v", got, err)
	}

	// Keys missing from the file keep their defaults.
	if err := os.WriteFile(path, []byte("headerName: Lobby\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, _ = LoadSettingsFile(path)
	if got.HeaderName != "Lobby" || got.JotformURL != models.DefaultSettings().JotformURL {
		t.Fatalf("partial file = %+v", got)
	}

	if err := os.WriteFile(path, []byte("headerName: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettingsFile(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
