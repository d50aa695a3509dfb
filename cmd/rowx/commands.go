package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/internal/connect"
	"github.com/koustreak/rowx/internal/schema"
	"github.com/koustreak/rowx/internal/server"
)

type rowOutput struct {
	Row  database.Row      `json:"row"`
	Meta database.Metadata `json:"meta"`
}

type rowsOutput struct {
	Rows []database.Row    `json:"rows"`
	Meta database.Metadata `json:"meta"`
}

// commandCmd builds query, one and all: TEXT [ARG...].
func (a *app) commandCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " TEXT [ARG...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := database.Command(args[0], parseValues(args[1:])...)
			return a.oneShot(cmd.Context(), func(ctx context.Context, db *connect.DB, x *database.Helpers) error {
				switch name {
				case "one":
					row, meta, err := x.One(ctx, db, d)
					if err != nil {
						return err
					}
					return a.print(ctx, rowOutput{Row: row, Meta: meta})
				case "all":
					rows, meta, err := x.All(ctx, db, d)
					if err != nil {
						return err
					}
					return a.print(ctx, rowsOutput{Rows: rows, Meta: meta})
				default:
					res, err := x.Query(ctx, db, d)
					if err != nil {
						return err
					}
					return a.print(ctx, rowsOutput{Rows: res.Rows, Meta: res.Meta})
				}
			})
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get TABLE COLUMN VALUE",
		Short: "Print the row of TABLE whose COLUMN equals VALUE (null when none)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.oneShot(cmd.Context(), func(ctx context.Context, db *connect.DB, x *database.Helpers) error {
				row, meta, err := x.Get(ctx, db, args[0], args[1], parseValue(args[2]))
				if err != nil {
					return err
				}
				return a.print(ctx, rowOutput{Row: row, Meta: meta})
			})
		},
	}
}

func (a *app) selCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sel TABLE COLUMN VALUE",
		Short: "Print every row of TABLE whose COLUMN equals VALUE",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.oneShot(cmd.Context(), func(ctx context.Context, db *connect.DB, x *database.Helpers) error {
				rows, meta, err := x.Sel(ctx, db, args[0], args[1], parseValue(args[2]))
				if err != nil {
					return err
				}
				return a.print(ctx, rowsOutput{Rows: rows, Meta: meta})
			})
		},
	}
}

func (a *app) insCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ins TABLE COLUMN=VALUE...",
		Short: "Insert one row into TABLE",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(args[1:])
			if err != nil {
				return err
			}
			return a.oneShot(cmd.Context(), func(ctx context.Context, db *connect.DB, x *database.Helpers) error {
				meta, err := x.Ins(ctx, db, args[0], rec)
				if err != nil {
					return err
				}
				return a.print(ctx, meta)
			})
		},
	}
}

func (a *app) updCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upd TABLE COLUMN VALUE COLUMN=VALUE...",
		Short: "Update every row of TABLE whose COLUMN equals VALUE",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(args[3:])
			if err != nil {
				return err
			}
			return a.oneShot(cmd.Context(), func(ctx context.Context, db *connect.DB, x *database.Helpers) error {
				meta, err := x.Upd(ctx, db, args[0], args[1], parseValue(args[2]), rec)
				if err != nil {
					return err
				}
				return a.print(ctx, meta)
			})
		},
	}
}

func (a *app) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del TABLE COLUMN VALUE",
		Short: "Delete every row of TABLE whose COLUMN equals VALUE",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.oneShot(cmd.Context(), func(ctx context.Context, db *connect.DB, x *database.Helpers) error {
				meta, err := x.Del(ctx, db, args[0], args[1], parseValue(args[2]))
				if err != nil {
					return err
				}
				return a.print(ctx, meta)
			})
		},
	}
}

func (a *app) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [TABLE]",
		Short: "List tables, or describe the columns of TABLE",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.oneShot(cmd.Context(), func(ctx context.Context, db *connect.DB, x *database.Helpers) error {
				inspector := schema.New(db, x)
				if len(args) == 1 {
					info, err := inspector.InspectTable(ctx, args[0])
					if err != nil {
						return err
					}
					return a.print(ctx, info)
				}
				tables, err := inspector.ListTables(ctx)
				if err != nil {
					return err
				}
				return a.print(ctx, map[string][]string{"tables": tables})
			})
		},
	}
}

const serveLong = `Serve the query helpers over HTTP.

The server trusts every client completely: it runs any posted SQL and puts
table and column names from request paths into statements unchecked. It has
no authentication, so keep --addr on loopback or put it behind a proxy that
controls access.`

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query helpers over HTTP",
		Long:  serveLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.withDB(ctx, func(db *connect.DB) error {
				a.log.InfoWith("starting rowx server", map[string]interface{}{
					"version": version,
					"driver":  a.cfg.Database.Driver,
					"addr":    a.cfg.Server.Addr,
				})
				return server.New(db, a.log, a.cfg.Database.QueryTimeout).Run(ctx, a.cfg.Server)
			})
		},
	}
	cmd.Flags().StringVar(&a.flags.addr, "addr", "", "listen address (host:port)")
	return cmd
}
