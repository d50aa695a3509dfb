package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/internal/config"
	"github.com/koustreak/rowx/internal/connect"
	"github.com/koustreak/rowx/internal/errs"
	"github.com/koustreak/rowx/internal/filestore"
	"github.com/koustreak/rowx/internal/filestore/minio"
	"github.com/koustreak/rowx/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
type flags struct {
	configPath string
	driver     string
	dsn        string
	logLevel   string
	logFormat  string
	logFile    string
	addr       string
	export     string
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	flags flags
	cfg   *config.Config
	log   *logger.Logger
	out   io.Writer
	errw  io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errw io.Writer) *cobra.Command {
	a := &app{out: out, errw: errw}

	rootCmd := &cobra.Command{
		Use:          "rowx",
		Short:        "rowx - row-shaped queries against PostgreSQL, MySQL and SQLite",
		Long:         `rowx runs single statements against a database and prints the resulting rows as JSON, or serves the same operations over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errw)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&a.flags.driver, "driver", "", "database driver: postgres, mysql or sqlite")
	pf.StringVar(&a.flags.dsn, "dsn", "", "data source name (SQLite: file path)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format: json or console")
	pf.StringVar(&a.flags.logFile, "log-file", "", "also write logs to this file (rotated)")
	pf.StringVar(&a.flags.export, "export", "", "upload the JSON result to this key in the export bucket instead of printing it")

	rootCmd.AddCommand(
		a.commandCmd("query", "Run a statement and print every row with its metadata"),
		a.commandCmd("one", "Run a statement and print its first row"),
		a.commandCmd("all", "Run a statement and print every row"),
		a.getCmd(),
		a.selCmd(),
		a.insCmd(),
		a.updCmd(),
		a.delCmd(),
		a.tablesCmd(),
		a.serveCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			PersistentPreRunE: func(*cobra.Command, []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "rowx %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	return rootCmd
}

// setup loads the config file, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	pf := cmd.Flags()
	override := func(name string, dst *string, val string) {
		if pf.Changed(name) {
			*dst = val
		}
	}
	override("driver", &cfg.Database.Driver, a.flags.driver)
	override("dsn", &cfg.Database.DSN, a.flags.dsn)
	override("log-level", &cfg.Log.Level, a.flags.logLevel)
	override("log-format", &cfg.Log.Format, a.flags.logFormat)
	override("log-file", &cfg.Log.File, a.flags.logFile)
	override("addr", &cfg.Server.Addr, a.flags.addr)

	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.New(cfg.Logger(a.errw))
	return nil
}

// withDB opens the configured database, runs fn, and closes it.
func (a *app) withDB(ctx context.Context, fn func(db *connect.DB) error) error {
	db, err := connect.Open(ctx, a.cfg.DB())
	if err != nil {
		a.log.ErrorWith("failed to open database", err, map[string]interface{}{
			"driver": a.cfg.Database.Driver,
		})
		return err
	}
	defer db.Close()

	a.log.Debugf("connected to %s", a.cfg.Database.Driver)
	return fn(db)
}

// oneShot runs a single helper call under the configured query timeout.
func (a *app) oneShot(ctx context.Context, fn func(ctx context.Context, db *connect.DB, x *database.Helpers) error) error {
	return a.withDB(ctx, func(db *connect.DB) error {
		if t := a.cfg.Database.QueryTimeout; t > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}
		return fn(ctx, db, database.New(database.WithDiagnostics(a.log)))
	})
}

// print writes v as indented JSON, or uploads it when --export is set.
func (a *app) print(ctx context.Context, v any) error {
	if a.flags.export != "" {
		return a.export(ctx, v)
	}
	return a.writeJSON(v)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type exportOutput struct {
	*filestore.ObjectInfo
	URL string `json:"url,omitempty"`
}

// export uploads v to the configured bucket and prints where it went.
func (a *app) export(ctx context.Context, v any) error {
	if a.cfg.Export.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "--export needs export.endpoint and export.bucket in the config")
	}

	store, err := minio.New(ctx, a.cfg.Store())
	if err != nil {
		a.log.ErrorWith("failed to reach export store", err, map[string]interface{}{
			"endpoint": a.cfg.Export.Endpoint,
			"bucket":   a.cfg.Export.Bucket,
		})
		return err
	}
	defer store.Close()

	info, err := filestore.PutJSON(ctx, store, a.cfg.Export.Bucket, a.flags.export, v)
	if err != nil {
		return err
	}
	a.log.InfoWith("exported result", map[string]interface{}{
		"bucket": info.Bucket,
		"key":    info.Key,
		"size":   info.Size,
	})

	out := exportOutput{ObjectInfo: info}
	if ttl := a.cfg.Export.PresignTTL; ttl > 0 {
		if out.URL, err = store.PresignGetURL(ctx, info.Bucket, info.Key, ttl); err != nil {
			return err
		}
	}
	return a.writeJSON(out)
}
