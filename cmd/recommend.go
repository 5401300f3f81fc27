package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"flowbeat/internal/formatter"
	"flowbeat/internal/shared"
)

func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Generate a track mix for a focus context",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Email of the account to generate for",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "context",
				Usage:    "Listening context (e.g. \"deep work, instrumental\")",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of tracks to resolve",
				Value:   10,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (json, csv, markdown, text)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the mix to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Also create a Spotify playlist with this name",
			},
		},
		Action: r.Recommend,
	}
}

// Recommend runs the generation pipeline for a stored account and writes the
// resulting mix to stdout or a file. With --playlist the mix is also
// materialized on Spotify.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := s.users.GetByEmail(cmd.String("email"))
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	listenerContext := cmd.String("context")
	result, err := s.engine.Generate(ctx, user, listenerContext, int(cmd.Int("count")))
	if err != nil {
		return err
	}

	if result.Fallback != nil {
		r.logger.Warn("generation fell back", "message", result.Fallback["message"])
		return r.writeJSON(result.Fallback, true)
	}

	mix := formatter.Mix{
		Name:        listenerContext,
		Explanation: result.Explanation,
		Tracks:      result.Tracks,
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.Write(&mix, cmd.String("format"), path); err != nil {
			return err
		}
		r.logger.Info("mix written", "path", path)
	} else {
		format := cmd.String("format")
		var out []byte
		switch format {
		case "json":
			out, err = formatter.ToJSON(&mix)
		case "csv":
			out, err = formatter.ToCSV(&mix)
		case "markdown", "md":
			out = formatter.ToMarkdown(&mix)
		case "text", "txt", "":
			out = formatter.ToText(&mix)
		default:
			return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
		}
		if err != nil {
			return err
		}
		if _, err := r.output.Write(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if name := cmd.String("playlist"); name != "" {
		playlist, err := s.engine.Materialize(ctx, user, name, result.Explanation, result.Tracks)
		if err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}
		r.logger.Info("playlist created", "id", playlist.ID, "url", playlist.ExternalURLs.Spotify)
	}

	return nil
}
