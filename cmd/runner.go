package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/slidex/internal/repositories"
	"github.com/desertthunder/slidex/internal/services"
	"github.com/desertthunder/slidex/internal/shared"
	"github.com/desertthunder/slidex/internal/store"
	"github.com/desertthunder/slidex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	api    services.API
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	API    services.API
	Logger *log.Logger
	Output io.Writer
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
	if opts.API == nil {
		opts.API = services.NewClient(services.ClientOpts{
			BaseURL: opts.Config.API.BaseURL,
			Token:   opts.Config.API.Token,
			Retries: opts.Config.API.Retries,
		})
	}

	return &Runner{
		config: opts.Config,
		api:    opts.API,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger replaces the runner's logger, used when the TUI redirects logs
// to a file.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, projectCommand, pageCommand, generateCommand, exportCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openStore builds a Store wired to the sqlite session pointer. The returned
// cleanup closes the store (stopping its timers) and the database.
func (r *Runner) openStore(progress chan<- tasks.ProgressUpdate) (*store.Store, func(), error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := store.NewStore(store.Opts{
		API:                  r.api,
		Sessions:             repositories.NewSessionRepository(db),
		Logger:               r.logger,
		Progress:             progress,
		DebounceWindow:       r.config.Sync.DebounceWindow(),
		PollInterval:         r.config.Sync.PollInterval(),
		MaxTransportFailures: r.config.Sync.PollMaxTransportFailures,
	})

	cleanup := func() {
		s.Close()
		db.Close()
	}
	return s, cleanup, nil
}

// printProgress drains a progress channel to the runner's output until it is
// closed. Runs on its own goroutine next to a blocking task wait.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate) {
	for update := range progress {
		switch update.Phase {
		case tasks.Submit:
			r.writePlain("▸ %s\n", update.Message)
		case tasks.Poll:
			r.writePlain("  %s\n", update.Message)
		case tasks.Complete:
			r.writePlain("%s\n", update.Message)
		case tasks.Fail:
			r.writePlain("%s\n", update.Message)
		}
	}
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
