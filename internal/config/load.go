package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/koustreak/rowx/internal/errs"
	"go.yaml.in/yaml/v3"
)

// EnvPrefix prefixes the environment variables that override file values.
const EnvPrefix = "ROWX_"

// Global validator instance for reuse
var validate = validator.New()

// Load reads the YAML file at path over Default(), then applies ROWX_*
// environment overrides. An empty path skips the file. ${VAR} references
// inside the file are expanded. The result is not validated; call Validate
// once command-line overrides have been applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to read config %s", path), err)
		}
		dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(raw))))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to parse config %s", path), err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides the settings most often injected by a deployment.
func applyEnv(cfg *Config) {
	for name, dst := range map[string]*string{
		"DATABASE_DRIVER":   &cfg.Database.Driver,
		"DATABASE_DSN":      &cfg.Database.DSN,
		"LOG_LEVEL":         &cfg.Log.Level,
		"LOG_FORMAT":        &cfg.Log.Format,
		"LOG_FILE":          &cfg.Log.File,
		"SERVER_ADDR":       &cfg.Server.Addr,
		"EXPORT_ENDPOINT":   &cfg.Export.Endpoint,
		"EXPORT_ACCESS_KEY": &cfg.Export.AccessKey,
		"EXPORT_SECRET_KEY": &cfg.Export.SecretKey,
		"EXPORT_BUCKET":     &cfg.Export.Bucket,
	} {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
}

// Validate checks the configuration and reports every offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid configuration", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return errs.Wrap(errs.ErrKindInvalidInput, "invalid configuration: "+strings.Join(msgs, "; "), err)
}
