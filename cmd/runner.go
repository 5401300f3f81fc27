package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"flowbeat/internal/llm"
	"flowbeat/internal/messaging"
	"flowbeat/internal/recommend"
	"flowbeat/internal/repositories"
	"flowbeat/internal/sandbox"
	"flowbeat/internal/shared"
	"flowbeat/internal/spotify"
	"flowbeat/internal/storage"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, connectCommand, recommendCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the config file at path, falling back to defaults.
func (r *Runner) loadConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err == nil {
			return config
		}
		r.logger.Warn("failed to load config, using defaults", "error", err)
	}
	return r.config
}

// stack is the set of collaborators behind both the server and the CLI
// pipeline commands.
type stack struct {
	db            *sql.DB
	users         *repositories.UserRepository
	sessions      *repositories.SessionRepository
	settings      *repositories.SettingsRepository
	authenticator *spotify.Authenticator
	catalog       *spotify.Client
	tokens        *spotify.TokenManager
	engine        *recommend.Engine
	storage       *storage.Service
	sandbox       *sandbox.Client
	bridge        *messaging.Client
	cache         *redis.Client
}

func (s *stack) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
	s.db.Close()
}

// buildStack opens the database and wires the pipeline collaborators from config.
func (r *Runner) buildStack(config *shared.Config) (*stack, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	creds := config.Credentials.Spotify
	authenticator, err := spotify.NewAuthenticator(creds.ClientID, creds.ClientSecret, creds.RedirectURI)
	if err != nil {
		db.Close()
		return nil, err
	}

	users := repositories.NewUserRepository(db)
	catalog := spotify.NewClient(spotify.ClientOpts{HTTPClient: r.httpClient, Logger: r.logger})
	tokens := spotify.NewTokenManager(users, authenticator, r.logger)

	completer, err := llm.NewClient(llm.ClientOpts{
		BaseURL:    config.Credentials.Groq.BaseURL,
		APIKey:     config.Credentials.Groq.APIKey,
		Model:      config.Credentials.Groq.Model,
		HTTPClient: r.httpClient,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &stack{
		db:            db,
		users:         users,
		sessions:      repositories.NewSessionRepository(db),
		settings:      repositories.NewSettingsRepository(db),
		authenticator: authenticator,
		catalog:       catalog,
		tokens:        tokens,
		engine:        recommend.NewEngine(tokens, catalog, recommend.NewSuggester(completer, r.logger), r.logger),
		sandbox:       sandbox.NewClient(config.Sandbox.BaseURL, r.httpClient),
	}

	if config.Storage.Bucket != "" {
		store, err := storage.NewService(config.Storage)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.storage = store
	}

	if config.Messaging.BridgeURL != "" {
		s.bridge = messaging.NewClient(config.Messaging.BridgeURL, r.httpClient)
	}

	if config.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(config.Redis.URL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		s.cache = redis.NewClient(redisOpts)
	}

	return s, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
