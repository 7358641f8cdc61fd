package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/slidex/internal/formatter"
	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/repositories"
	"github.com/desertthunder/slidex/internal/shared"
	"github.com/urfave/cli/v3"
)

// ProjectCreate creates a new deck from a prompt, outline, or narrative and
// records it as the active project.
func (r *Runner) ProjectCreate(ctx context.Context, cmd *cli.Command) error {
	intent, err := intentFromFlags(cmd)
	if err != nil {
		return err
	}

	s, cleanup, err := r.openStore(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	r.writePlain("Creating project...\n")
	project, err := s.LoadOrCreate(ctx, intent)
	if err != nil {
		return err
	}

	r.writePlain("✓ Project %s created with %d pages\n", project.ID, len(project.Pages))
	return nil
}

// intentFromFlags builds a creation intent from exactly one of the three
// intent flags.
func intentFromFlags(cmd *cli.Command) (models.CreateIntent, error) {
	intent := models.CreateIntent{
		TemplateRef:  cmd.String("template-id"),
		TemplatePath: cmd.String("template"),
	}

	set := 0
	for kind, content := range map[models.IntentKind]string{
		models.IntentPrompt:    cmd.String("prompt"),
		models.IntentOutline:   cmd.String("outline"),
		models.IntentNarrative: cmd.String("narrative"),
	} {
		if content != "" {
			intent.Kind = kind
			intent.Content = content
			set++
		}
	}
	if set != 1 {
		return intent, fmt.Errorf("%w: exactly one of --prompt, --outline, --narrative is required", shared.ErrMissingArgument)
	}
	return intent, nil
}

// ProjectShow renders the active project in the requested format.
func (r *Runner) ProjectShow(ctx context.Context, cmd *cli.Command) error {
	s, cleanup, err := r.openStore(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	project, err := s.Resume(ctx)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteSnapshot(project, format, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Wrote %s\n", path)
		return nil
	}

	if format == "json" {
		return r.writeJSON(project, true)
	}
	data, err := formatter.ToText(project)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// ProjectResync forces a full mirror refresh from the server.
func (r *Runner) ProjectResync(ctx context.Context, cmd *cli.Command) error {
	s, cleanup, err := r.openStore(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	projectID := cmd.String("id")
	err = s.Resync(ctx, projectID)
	switch {
	case errors.Is(err, shared.ErrProjectNotFound):
		r.writePlain("Project no longer exists server-side; cleared the local pointer.\n")
		return nil
	case err != nil:
		return err
	}

	project := s.Snapshot()
	if project == nil {
		return shared.ErrNoActiveProject
	}
	r.writePlain("✓ Synced project %s (%d pages)\n", project.ID, len(project.Pages))
	return nil
}

// ProjectForget drops the durable active-project pointer without touching
// the server.
func (r *Runner) ProjectForget(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	sessions := repositories.NewSessionRepository(db)
	if err := sessions.Clear(); err != nil {
		return err
	}
	r.writePlain("✓ Active project pointer cleared\n")
	return nil
}

// projectCommand handles project lifecycle operations
func projectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"proj"},
		Usage:   "Create, inspect, and sync the active deck",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new deck and make it the active project",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prompt",
						Usage: "Free-form prompt describing the deck",
					},
					&cli.StringFlag{
						Name:  "outline",
						Usage: "Structured outline for the deck",
					},
					&cli.StringFlag{
						Name:  "narrative",
						Usage: "Full narrative description of the deck",
					},
					&cli.StringFlag{
						Name:  "template-id",
						Usage: "Server-side template reference",
					},
					&cli.StringFlag{
						Name:  "template",
						Usage: "Path to a local template file to upload (best-effort)",
					},
				},
				Action: r.ProjectCreate,
			},
			{
				Name:  "show",
				Usage: "Show the active deck",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown, csv, json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the rendering to a file instead of stdout",
					},
				},
				Action: r.ProjectShow,
			},
			{
				Name:  "resync",
				Usage: "Refresh the local mirror from the server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Project ID (defaults to the active project)",
					},
				},
				Action: r.ProjectResync,
			},
			{
				Name:   "forget",
				Usage:  "Drop the active project pointer without deleting anything",
				Action: r.ProjectForget,
			},
		},
	}
}
