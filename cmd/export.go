package main

import (
	"context"

	"github.com/desertthunder/slidex/internal/shared"
	"github.com/desertthunder/slidex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export runs a deck export task to completion and prints the result URL.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
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

	ch, err := s.Export(ctx)
	if err != nil {
		close(progress)
		<-done
		return err
	}
	if ch == nil {
		close(progress)
		<-done
		r.writePlain("An export is already running.\n")
		return nil
	}

	out := <-ch
	close(progress)
	<-done

	if out.Err != nil {
		return out.Err
	}

	url := ""
	if out.Status != nil {
		url = out.Status.ResultURL
	}
	if url == "" {
		r.writePlain("✓ Export finished, but the server returned no download URL\n")
		return nil
	}

	r.writePlain("✓ Export ready: %s\n", url)
	if cmd.Bool("open") {
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}
	return nil
}

// exportCommand handles deck export
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the active deck and print the download URL",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the exported deck in the browser",
			},
		},
		Action: r.Export,
	}
}
