// Package config loads the rowx command configuration from a YAML file.
package config

import (
	"io"
	"time"

	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/internal/filestore"
	"github.com/koustreak/rowx/internal/logger"
)

// Config holds all command configuration, grouped by concern.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Export   ExportConfig   `yaml:"export"`
}

// DatabaseConfig selects the driver and tunes its pool.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres mysql sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`

	MaxConns        int32         `yaml:"max_conns" validate:"gte=0"`
	MinConns        int32         `yaml:"min_conns" validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" validate:"gte=0"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" validate:"gte=0"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" validate:"gte=0"`
	QueryTimeout    time.Duration `yaml:"query_timeout" validate:"gte=0"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"omitempty,oneof=json console"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig configures `rowx serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// ExportConfig points at the S3-compatible bucket that --export writes
// results to. An empty endpoint disables exporting.
type ExportConfig struct {
	Endpoint   string        `yaml:"endpoint" validate:"omitempty,hostname_port"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	UseSSL     bool          `yaml:"use_ssl"`
	Region     string        `yaml:"region"`
	Bucket     string        `yaml:"bucket" validate:"required_with=Endpoint"`
	PresignTTL time.Duration `yaml:"presign_ttl" validate:"gte=0"`
}

// Default returns the configuration used when no file is given. The
// database DSN is left empty and must come from a file or flag.
func Default() *Config {
	db := database.DefaultConfig("")
	return &Config{
		Database: DatabaseConfig{
			Driver:          string(db.Driver),
			MaxConns:        db.MaxConns,
			MinConns:        db.MinConns,
			MaxConnLifetime: db.MaxConnLifetime,
			MaxConnIdleTime: db.MaxConnIdleTime,
			ConnectTimeout:  db.ConnectTimeout,
			QueryTimeout:    db.QueryTimeout,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  logger.DefaultMaxSizeMB,
			MaxBackups: logger.DefaultMaxBackups,
			MaxAgeDays: logger.DefaultMaxAgeDays,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Export: ExportConfig{
			Region: "us-east-1",
		},
	}
}

// DB converts the database section for the driver packages.
func (c *Config) DB() *database.Config {
	return &database.Config{
		Driver:          database.Driver(c.Database.Driver),
		DSN:             c.Database.DSN,
		MaxConns:        c.Database.MaxConns,
		MinConns:        c.Database.MinConns,
		MaxConnLifetime: c.Database.MaxConnLifetime,
		MaxConnIdleTime: c.Database.MaxConnIdleTime,
		ConnectTimeout:  c.Database.ConnectTimeout,
		QueryTimeout:    c.Database.QueryTimeout,
	}
}

// Store converts the export section for the filestore packages.
func (c *Config) Store() *filestore.Config {
	return &filestore.Config{
		Provider:  filestore.ProviderMinIO,
		Endpoint:  c.Export.Endpoint,
		AccessKey: c.Export.AccessKey,
		SecretKey: c.Export.SecretKey,
		UseSSL:    c.Export.UseSSL,
		Region:    c.Export.Region,
		Bucket:    c.Export.Bucket,
	}
}

// Logger converts the log section. Entries go to out, normally stderr so
// command output on stdout stays machine readable.
func (c *Config) Logger(out io.Writer) *logger.Config {
	return &logger.Config{
		Output:     out,
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}
