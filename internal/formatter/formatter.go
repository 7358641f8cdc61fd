// package formatter provides functions to render project snapshots to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/shared"
)

// StatusGlyph returns a single-character marker for a page status, shared by
// the CLI listings and the TUI.
func StatusGlyph(status models.PageStatus) string {
	switch status {
	case models.PageDraft:
		return "·"
	case models.PageDescriptionGenerated:
		return "≡"
	case models.PageGenerating:
		return "…"
	case models.PageCompleted:
		return "✓"
	case models.PageFailed:
		return "✗"
	default:
		return "?"
	}
}

// ToCSV converts a project to CSV format with columns: Position, ID, Status, Outline, Description, Image, Errors
func ToCSV(project *models.Project) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Status", "Outline", "Description", "Image", "Errors"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, page := range project.Pages {
		errs := page.ErrorMessage
		if page.UncaptionedCount > 0 {
			if errs != "" {
				errs += "; "
			}
			errs += fmt.Sprintf("%d uncaptioned", page.UncaptionedCount)
		}
		record := []string{
			strconv.Itoa(page.Position + 1),
			page.ID,
			string(page.Status),
			page.Outline,
			page.Description,
			page.ImageURL,
			errs,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a project to a Markdown outline
func ToMarkdown(project *models.Project) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Deck %s\n\n", project.ID))
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", project.Status))
	buf.WriteString(fmt.Sprintf("**Pages**: %d\n", len(project.Pages)))
	if project.TemplateID != "" {
		buf.WriteString(fmt.Sprintf("**Template**: %s\n", project.TemplateID))
	}
	if !project.UpdatedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Updated**: %s\n", project.UpdatedAt.Format("2006-01-02 15:04:05")))
	}
	buf.WriteString("\n")

	for i, page := range project.Pages {
		buf.WriteString(fmt.Sprintf("## %d. %s %s\n\n", i+1, StatusGlyph(page.Status), page.Outline))
		if page.Description != "" {
			buf.WriteString(page.Description + "\n\n")
		}
		if page.ImageURL != "" {
			buf.WriteString(fmt.Sprintf("![slide image](%s)\n\n", page.ImageURL))
		}
		if page.ErrorMessage != "" {
			buf.WriteString(fmt.Sprintf("> Failed: %s\n\n", page.ErrorMessage))
		}
	}

	return buf.Bytes(), nil
}

// ToText converts a project to a compact plain-text listing
func ToText(project *models.Project) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Project: %s (%s)\n", project.ID, project.Status))
	buf.WriteString(fmt.Sprintf("Pages: %d\n\n", len(project.Pages)))

	for i, page := range project.Pages {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, StatusGlyph(page.Status), page.Outline))
		if page.UncaptionedCount > 0 {
			buf.WriteString(fmt.Sprintf("   (%d uncaptioned images)\n", page.UncaptionedCount))
		}
	}

	return buf.Bytes(), nil
}

// ToJSON generates a JSON representation of the project snapshot
func ToJSON(project *models.Project) ([]byte, error) {
	return shared.MarshalJSON(project, true)
}

// WriteSnapshot renders the project in the named format ("csv", "markdown",
// "text", or "json") and writes it to path.
//
// Defaults to {project.ID}.{ext} when path is empty.
func WriteSnapshot(project *models.Project, format, path string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)
	switch format {
	case "csv":
		data, err = ToCSV(project)
		ext = "csv"
	case "markdown", "md":
		data, err = ToMarkdown(project)
		ext = "md"
	case "text", "txt":
		data, err = ToText(project)
		ext = "txt"
	case "json":
		data, err = ToJSON(project)
		ext = "json"
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if path == "" {
		path = fmt.Sprintf("%s.%s", project.ID, ext)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}
