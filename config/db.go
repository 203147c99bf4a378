package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"checkin-backend/models"
)

var DB *gorm.DB

func mysqlConfig(user, pass, host, port, dbName string) *mysqldriver.Config {
	c := mysqldriver.NewConfig()
	c.User = user
	c.Passwd = pass
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, port)
	c.DBName = dbName
	c.ParseTime = true
	c.Loc = time.Local
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c
}

func mysqlDSNFromURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", "", fmt.Errorf("mysql url missing database name")
	}

	c := mysqlConfig(user, pass, u.Hostname(), port, dbName)
	for k, v := range u.Query() {
		if len(v) == 0 {
			continue
		}
		switch k {
		case "parseTime", "loc":
			// fixed above
		default:
			c.Params[k] = v[0]
		}
	}
	return c.FormatDSN(), dbName, nil
}

// ResolveMySQLDSN prefers MYSQL_URL / DATABASE_URL and falls back to the
// individual DB_* settings.
func ResolveMySQLDSN(cfg Config) (string, string, error) {
	raw := strings.TrimSpace(cfg.MySQLURL)
	if raw == "" {
		raw = strings.TrimSpace(cfg.DatabaseURL)
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		parsed, err := mysqldriver.ParseDSN(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		return raw, parsed.DBName, nil
	}

	c := mysqlConfig(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	return c.FormatDSN(), cfg.DBName, nil
}

// OpenDialector picks the gorm dialector for the configured driver.
func OpenDialector(cfg Config) (gorm.Dialector, string, error) {
	switch cfg.DBDriver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", err
			}
		}
		return sqlite.Open(cfg.SQLitePath), cfg.SQLitePath, nil
	default:
		dsn, dbName, err := ResolveMySQLDSN(cfg)
		if err != nil {
			return nil, "", err
		}
		return mysql.Open(dsn), dbName, nil
	}
}

// NewGormLogger routes gorm's logging through zerolog.
func NewGormLogger(log zerolog.Logger) logger.Interface {
	gl := log.With().Str("component", "gorm").Logger()
	level := logger.Warn
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}
	return logger.New(
		&gl,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Document{})
}

// ConnectDatabase opens the configured database, migrates it and stores
// the handle in DB.
func ConnectDatabase(cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	dialector, name, err := OpenDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(log)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite allows one writer at a time.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Str("driver", cfg.DBDriver).Str("database", name).Msg("database connected")
	DB = db
	return db, nil
}
