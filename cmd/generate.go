package main

import (
	"context"

	"github.com/desertthunder/slidex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// GenerateDescription runs description generation for one page to completion.
func (r *Runner) GenerateDescription(ctx context.Context, cmd *cli.Command) error {
	pageID := cmd.String("page")

	return r.runTask(ctx, func(s storeHandle) (<-chan tasks.Outcome, error) {
		return s.GenerateDescription(ctx, pageID)
	})
}

// GenerateImage runs image generation (or an instruction-driven edit) for
// one page to completion.
func (r *Runner) GenerateImage(ctx context.Context, cmd *cli.Command) error {
	pageID := cmd.String("page")
	instruction := cmd.String("edit")

	return r.runTask(ctx, func(s storeHandle) (<-chan tasks.Outcome, error) {
		if instruction != "" {
			return s.EditImage(ctx, pageID, instruction)
		}
		return s.GenerateImage(ctx, pageID)
	})
}

// GenerateAll runs the project-wide description fan-out to completion,
// reporting coarse progress and the per-page results.
func (r *Runner) GenerateAll(ctx context.Context, cmd *cli.Command) error {
	progress := make(chan tasks.ProgressUpdate, 50)
	s, cleanup, err := r.openStore(progress)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := s.Resume(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		r.printProgress(progress)
		close(done)
	}()

	ch, err := s.GenerateAllDescriptions(ctx)
	if err != nil {
		close(progress)
		<-done
		return err
	}
	if ch == nil {
		close(progress)
		<-done
		r.writePlain("Nothing to do: a batch is already running or the server finished synchronously.\n")
		return nil
	}

	result := <-ch
	close(progress)
	<-done

	if result.Outcome.Err != nil {
		return result.Outcome.Err
	}

	r.writePlainHeader("Batch Generation Complete")
	r.writePlain("Progress: %.0f%%\n", result.Percent)
	for _, page := range s.Snapshot().Pages {
		r.writePlain("  %s: %s\n", page.ID, page.Status)
	}
	return nil
}

// storeHandle is the slice of the store the single-task commands need.
type storeHandle interface {
	GenerateDescription(ctx context.Context, pageID string) (<-chan tasks.Outcome, error)
	GenerateImage(ctx context.Context, pageID string) (<-chan tasks.Outcome, error)
	EditImage(ctx context.Context, pageID, instruction string) (<-chan tasks.Outcome, error)
	Export(ctx context.Context) (<-chan tasks.Outcome, error)
}

// runTask opens the store, resumes the active project, starts one task, and
// blocks until its terminal outcome, streaming progress to output.
func (r *Runner) runTask(ctx context.Context, start func(storeHandle) (<-chan tasks.Outcome, error)) error {
	progress := make(chan tasks.ProgressUpdate, 50)
	s, cleanup, err := r.openStore(progress)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := s.Resume(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		r.printProgress(progress)
		close(done)
	}()

	ch, err := start(s)
	if err != nil {
		close(progress)
		<-done
		return err
	}
	if ch == nil {
		close(progress)
		<-done
		r.writePlain("Nothing to do: the task is already running or finished synchronously.\n")
		return nil
	}

	out := <-ch
	close(progress)
	<-done

	if out.Err != nil {
		return out.Err
	}
	if out.Status != nil && out.Status.ResultURL != "" {
		r.writePlain("Result: %s\n", out.Status.ResultURL)
	}
	return nil
}

// generateCommand handles generation task operations
func generateCommand(r *Runner) *cli.Command {
	pageFlag := &cli.StringFlag{
		Name:     "page",
		Aliases:  []string{"p"},
		Usage:    "Page ID",
		Required: true,
	}

	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Run AI generation tasks against the active deck",
		Commands: []*cli.Command{
			{
				Name:   "description",
				Usage:  "Generate the description for one page",
				Flags:  []cli.Flag{pageFlag},
				Action: r.GenerateDescription,
			},
			{
				Name:  "image",
				Usage: "Generate (or edit) the image for one page",
				Flags: []cli.Flag{
					pageFlag,
					&cli.StringFlag{
						Name:  "edit",
						Usage: "Edit instruction for the existing image",
					},
				},
				Action: r.GenerateImage,
			},
			{
				Name:   "all",
				Usage:  "Generate descriptions for every page",
				Action: r.GenerateAll,
			},
		},
	}
}
