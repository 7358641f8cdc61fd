package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/shared"
	tu "github.com/desertthunder/slidex/internal/testing"
	"github.com/urfave/cli/v3"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			api := &tu.MockAPI{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				API:    api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil api builds a client from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{API: nil})

			if runner.api == nil {
				t.Error("expected a default API client")
			}
		})
	})

	t.Run("output helpers", func(t *testing.T) {
		t.Run("writePlain", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, API: &tu.MockAPI{}})

			if err := runner.writePlain("hello %s\n", "deck"); err != nil {
				t.Fatalf("writePlain failed: %v", err)
			}
			if output.String() != "hello deck\n" {
				t.Errorf("unexpected output: %q", output.String())
			}
		})

		t.Run("writePlain with failing writer", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}, API: &tu.MockAPI{}})

			if err := runner.writePlain("hello\n"); err == nil {
				t.Error("expected an error from the failing writer")
			}
		})

		t.Run("writeJSON pretty", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, API: &tu.MockAPI{}})

			if err := runner.writeJSON(map[string]int{"pages": 3}, true); err != nil {
				t.Fatalf("writeJSON failed: %v", err)
			}
			if !strings.Contains(output.String(), "\"pages\": 3") {
				t.Errorf("unexpected output: %q", output.String())
			}
		})
	})
}

// testRunner builds a runner over a temp database and a mock API, returning
// the output buffer.
func testRunner(t *testing.T, api *tu.MockAPI) (*Runner, *bytes.Buffer) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "slidex.db")
	config.Sync.PollIntervalMs = 1

	output := &bytes.Buffer{}
	return NewRunner(RunnerOpts{
		Config: config,
		API:    api,
		Output: output,
	}), output
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "slidex", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"slidex"}, args...))
}

func TestProjectCommands(t *testing.T) {
	t.Run("create then show resumes via the pointer", func(t *testing.T) {
		api := &tu.MockAPI{
			GetProjectFn: func(ctx context.Context, projectID string) (*models.Project, error) {
				return &models.Project{
					ID:     projectID,
					Status: "editing",
					Pages: []models.Page{
						{ID: "p1", Outline: "Why bees matter", Status: models.PageDraft},
					},
				}, nil
			},
		}
		r, output := testRunner(t, api)

		if err := runApp(t, r, "project", "create", "--prompt", "a deck about bees"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if !strings.Contains(output.String(), "project-1") {
			t.Errorf("create output missing project id: %q", output.String())
		}

		output.Reset()
		if err := runApp(t, r, "project", "show"); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(output.String(), "Why bees matter") {
			t.Errorf("show output missing page outline: %q", output.String())
		}
	})

	t.Run("create requires exactly one intent", func(t *testing.T) {
		r, _ := testRunner(t, &tu.MockAPI{})

		if err := runApp(t, r, "project", "create"); err == nil {
			t.Error("expected an error with no intent flag")
		}
		if err := runApp(t, r, "project", "create", "--prompt", "a", "--outline", "b"); err == nil {
			t.Error("expected an error with two intent flags")
		}
	})

	t.Run("show without a pointer fails", func(t *testing.T) {
		r, _ := testRunner(t, &tu.MockAPI{})

		err := runApp(t, r, "project", "show")
		if err == nil {
			t.Fatal("expected ErrNoActiveProject")
		}
	})

	t.Run("forget clears the pointer", func(t *testing.T) {
		r, output := testRunner(t, &tu.MockAPI{})

		if err := runApp(t, r, "project", "create", "--prompt", "bees"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if err := runApp(t, r, "project", "forget"); err != nil {
			t.Fatalf("forget failed: %v", err)
		}
		output.Reset()
		if err := runApp(t, r, "project", "show"); err == nil {
			t.Error("show should fail after forget")
		}
	})
}

func TestGenerateCommands(t *testing.T) {
	t.Run("description runs to completion", func(t *testing.T) {
		api := &tu.MockAPI{
			GetProjectFn: func(ctx context.Context, projectID string) (*models.Project, error) {
				return &models.Project{ID: projectID, Pages: []models.Page{{ID: "p1"}}}, nil
			},
		}
		r, _ := testRunner(t, api)

		if err := runApp(t, r, "project", "create", "--prompt", "bees"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if err := runApp(t, r, "generate", "description", "--page", "p1"); err != nil {
			t.Fatalf("generate description failed: %v", err)
		}
		if api.Calls("SubmitTask") != 1 {
			t.Errorf("expected one task submission, got %d", api.Calls("SubmitTask"))
		}
		if api.Calls("GetTaskStatus") != 1 {
			t.Errorf("expected one status poll, got %d", api.Calls("GetTaskStatus"))
		}
	})

	t.Run("export prints the result URL", func(t *testing.T) {
		api := &tu.MockAPI{
			GetProjectFn: func(ctx context.Context, projectID string) (*models.Project, error) {
				return &models.Project{ID: projectID, Pages: []models.Page{{ID: "p1"}}}, nil
			},
			GetTaskStatusFn: func(ctx context.Context, projectID, taskID string) (*models.TaskStatus, error) {
				return &models.TaskStatus{State: models.TaskCompleted, ResultURL: "https://decks.example/d/1.pptx"}, nil
			},
		}
		r, output := testRunner(t, api)

		if err := runApp(t, r, "project", "create", "--prompt", "bees"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		output.Reset()
		if err := runApp(t, r, "export"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(output.String(), "https://decks.example/d/1.pptx") {
			t.Errorf("export output missing URL: %q", output.String())
		}
	})
}

func TestPageCommands(t *testing.T) {
	api := &tu.MockAPI{
		GetProjectFn: func(ctx context.Context, projectID string) (*models.Project, error) {
			return &models.Project{ID: projectID, Pages: []models.Page{
				{ID: "p1", Outline: "one"},
				{ID: "p2", Outline: "two"},
			}}, nil
		},
	}
	r, _ := testRunner(t, api)

	if err := runApp(t, r, "project", "create", "--prompt", "bees"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	t.Run("edit persists before exit", func(t *testing.T) {
		if err := runApp(t, r, "page", "edit", "--page", "p1", "--outline", "updated"); err != nil {
			t.Fatalf("edit failed: %v", err)
		}
		if api.Calls("UpdatePage") != 1 {
			t.Errorf("expected one page update, got %d", api.Calls("UpdatePage"))
		}
	})

	t.Run("reorder round-trips", func(t *testing.T) {
		if err := runApp(t, r, "page", "reorder", "--order", "p2, p1"); err != nil {
			t.Fatalf("reorder failed: %v", err)
		}
		if api.Calls("ReorderPages") != 1 {
			t.Errorf("expected one reorder call, got %d", api.Calls("ReorderPages"))
		}
	})

	t.Run("edit with no fields fails", func(t *testing.T) {
		if err := runApp(t, r, "page", "edit", "--page", "p1"); err == nil {
			t.Error("expected an error with no field flags")
		}
	})
}
