package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the postgres connection settings.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the connection settings from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("GROUNDER_DB_HOST"),
		Port:     os.Getenv("GROUNDER_DB_PORT"),
		Database: os.Getenv("GROUNDER_DB_DATABASE"),
		Username: os.Getenv("GROUNDER_DB_USERNAME"),
		Password: os.Getenv("GROUNDER_DB_PASSWORD"),
		Schema:   os.Getenv("GROUNDER_DB_SCHEMA"),
		SSLMode:  os.Getenv("GROUNDER_DB_SSLMODE"),
	}

	var missing []string
	if config.Host == "" {
		missing = append(missing, "GROUNDER_DB_HOST")
	}
	if config.Port == "" {
		missing = append(missing, "GROUNDER_DB_PORT")
	}
	if config.Database == "" {
		missing = append(missing, "GROUNDER_DB_DATABASE")
	}
	if config.Username == "" {
		missing = append(missing, "GROUNDER_DB_USERNAME")
	}
	if len(missing) > 0 {
		return nil, NewError("database configuration", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", ")))
	}

	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// ConnectionString returns the lib/pq connection string.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// Database bundles the connection pool with its logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings a postgres connection.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration validation", fmt.Errorf("database configuration is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	instance, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, NewError("open database", err)
	}
	instance.SetMaxOpenConns(25)
	instance.SetMaxIdleConns(5)
	instance.SetConnMaxLifetime(30 * time.Minute)

	db := &Database{Name: name, Instance: instance, Logger: logger}
	if err := db.Ping(context.Background()); err != nil {
		_ = instance.Close()
		return nil, NewError("ping database", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host), slog.String("database", config.Database))

	return db, nil
}

// NewDatabaseFromInstance wraps an existing connection pool.
func NewDatabaseFromInstance(name string, instance *sql.DB, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{Name: name, Instance: instance, Logger: logger}
}

// Ping checks the connection with a short timeout.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return d.Instance.PingContext(ctx)
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
