package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookclub/internal/repositories"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/services"
	"github.com/desertthunder/bookclub/internal/session"
	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session store, API client and book-club service are built on first use so that commands
// like `setup` run without a database or a reachable backend.
type Runner struct {
	config     *shared.Config
	configPath string
	store      session.Store
	db         *sql.DB
	history    *repositories.SessionRepository
	session    *session.Service
	client     *services.Client
	bookclub   *services.BookClubService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	reader     *bufio.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      session.Store // defaults to the SQLite session repository at Config.Database.Path
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader // answers prompts
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, booksCommand, clubsCommand, usersCommand, adminCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before reads the global flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// After closes the session database if a command opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close releases the session database.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the runner's logger. It must be called before the first service is built.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Config resolves the configuration from the --config path, defaults and the environment.
func (r *Runner) Config() (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}
	config, err := shared.ResolveConfig(r.configPath)
	if err != nil {
		return nil, err
	}
	r.config = config
	return config, nil
}

// connect builds the session service, API client and book-club service.
func (r *Runner) connect() error {
	if r.bookclub != nil {
		return nil
	}

	config, err := r.Config()
	if err != nil {
		return err
	}

	if r.store == nil {
		db, err := shared.OpenMigrated(config.Database)
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}
		r.db = db
		r.history = repositories.NewSessionRepository(db)
		r.store = r.history
	}

	r.session = session.NewService(r.store)
	if r.history != nil {
		r.session.Subscribe(r.history.Recorder(func(err error) {
			r.logger.Warn("failed to record session event", "error", err)
		}))
	}
	if config.API.Token != "" {
		r.logger.Debug("using token from environment", "env", shared.EnvToken)
		if err := r.session.UseToken(config.API.Token); err != nil {
			return err
		}
	}

	r.client = services.NewClient(services.Options{
		BaseURL:           config.API.BaseURL,
		Timeout:           config.API.RequestTimeout.Duration,
		RequestsPerSecond: config.API.RequestsPerSecond,
		UserAgent:         config.API.UserAgent,
		Tokens:            r.session,
		HTTPClient:        r.httpClient,
		Logger:            r.logger,
	})
	r.bookclub = services.NewBookClubService(r.client, r.session)
	return nil
}

// service returns the connected book-club service.
func (r *Runner) service() (*services.BookClubService, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r.bookclub, nil
}

// api returns the connected REST client as a resource API.
func (r *Runner) api() (resource.API, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r.client, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
