package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"flowbeat/internal/server"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Serve,
	}
}

// Serve builds the full application stack and runs the HTTP server until
// interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	srv, err := server.New(server.Opts{
		Config:        config,
		Logger:        r.logger,
		Users:         s.users,
		Sessions:      s.sessions,
		Settings:      s.settings,
		Engine:        s.engine,
		Catalog:       s.catalog,
		Tokens:        s.tokens,
		Authenticator: s.authenticator,
		Storage:       s.storage,
		Sandbox:       s.sandbox,
		Bridge:        s.bridge,
		Cache:         s.cache,
	})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(runCtx)
}
