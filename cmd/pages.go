package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/shared"
	"github.com/urfave/cli/v3"
)

// PageEdit applies a field-level edit to one page and waits for the persist
// to land before returning, so the command exit means "saved".
func (r *Runner) PageEdit(ctx context.Context, cmd *cli.Command) error {
	pageID := cmd.String("page")
	patch := models.PagePatch{}
	if cmd.IsSet("outline") {
		outline := cmd.String("outline")
		patch.Outline = &outline
	}
	if cmd.IsSet("description") {
		description := cmd.String("description")
		patch.Description = &description
	}
	if patch.Empty() {
		return fmt.Errorf("%w: nothing to change, pass --outline or --description", shared.ErrMissingArgument)
	}

	s, cleanup, err := r.openStore(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := s.Resume(ctx); err != nil {
		return err
	}
	if err := s.MutatePageLocally(pageID, patch); err != nil {
		return err
	}
	if err := s.CommitPendingEdits(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Saved page %s\n", pageID)
	return nil
}

// PageAdd appends a page; the server assigns its position.
func (r *Runner) PageAdd(ctx context.Context, cmd *cli.Command) error {
	data := models.PagePatch{}
	if cmd.IsSet("outline") {
		outline := cmd.String("outline")
		data.Outline = &outline
	}

	s, cleanup, err := r.openStore(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := s.Resume(ctx); err != nil {
		return err
	}
	if err := s.AddPage(ctx, data); err != nil {
		return err
	}

	project := s.Snapshot()
	r.writePlain("✓ Page added, deck now has %d pages\n", len(project.Pages))
	return nil
}

// PageDelete removes a page.
func (r *Runner) PageDelete(ctx context.Context, cmd *cli.Command) error {
	pageID := cmd.String("page")

	s, cleanup, err := r.openStore(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := s.Resume(ctx); err != nil {
		return err
	}
	if err := s.DeletePage(ctx, pageID); err != nil {
		return err
	}

	r.writePlain("✓ Page %s deleted\n", pageID)
	return nil
}

// PageReorder persists a new total page order given as comma-separated ids.
func (r *Runner) PageReorder(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.String("order")
	order := []string{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			order = append(order, id)
		}
	}
	if len(order) == 0 {
		return fmt.Errorf("%w: --order must name every page id", shared.ErrMissingArgument)
	}

	s, cleanup, err := r.openStore(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := s.Resume(ctx); err != nil {
		return err
	}
	if err := s.Reorder(ctx, order); err != nil {
		r.writePlain("Reorder failed; deck restored to the server's order.\n")
		return err
	}

	r.writePlain("✓ Deck reordered\n")
	return nil
}

// pageCommand handles page-level operations
func pageCommand(r *Runner) *cli.Command {
	pageFlag := &cli.StringFlag{
		Name:     "page",
		Aliases:  []string{"p"},
		Usage:    "Page ID",
		Required: true,
	}

	return &cli.Command{
		Name:  "page",
		Usage: "Edit, add, delete, and reorder deck pages",
		Commands: []*cli.Command{
			{
				Name:  "edit",
				Usage: "Update a page's outline or description",
				Flags: []cli.Flag{
					pageFlag,
					&cli.StringFlag{
						Name:  "outline",
						Usage: "New outline text",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "New description text",
					},
				},
				Action: r.PageEdit,
			},
			{
				Name:  "add",
				Usage: "Append a new page to the deck",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "outline",
						Usage: "Outline for the new page",
					},
				},
				Action: r.PageAdd,
			},
			{
				Name:   "delete",
				Usage:  "Delete a page",
				Flags:  []cli.Flag{pageFlag},
				Action: r.PageDelete,
			},
			{
				Name:  "reorder",
				Usage: "Set the full deck order",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "order",
						Usage:    "Comma-separated page ids in the desired order",
						Required: true,
					},
				},
				Action: r.PageReorder,
			},
		},
	}
}
