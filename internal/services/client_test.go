package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/shared"
)

func strPtr(s string) *string { return &s }

func TestClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Empty BaseURL", func(t *testing.T) {
			c := NewClient(ClientOpts{})

			if c.baseURL != "http://localhost:8080" {
				t.Errorf("expected default baseURL 'http://localhost:8080', got %s", c.baseURL)
			}
			if c.attempts != 3 {
				t.Errorf("expected 3 default attempts, got %d", c.attempts)
			}
		})

		t.Run("With Custom HTTP Client", func(t *testing.T) {
			custom := &http.Client{}
			c := NewClient(ClientOpts{BaseURL: "http://example.com", HTTPClient: custom})

			if c.baseURL != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", c.baseURL)
			}
			if c.httpClient != custom {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("Name", func(t *testing.T) {
			if got := NewClient(ClientOpts{}).Name(); got != "deck service" {
				t.Errorf("expected service name 'deck service', got %s", got)
			}
		})
	})

	t.Run("CreateProject", func(t *testing.T) {
		t.Run("Successful Creation", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if r.URL.Path != "/api/projects" {
					t.Errorf("expected path '/api/projects', got %s", r.URL.Path)
				}

				var intent models.CreateIntent
				if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
					t.Fatalf("failed to decode intent: %v", err)
				}
				if intent.Kind != models.IntentPrompt {
					t.Errorf("expected prompt intent, got %s", intent.Kind)
				}
				if intent.Content != "a deck about bees" {
					t.Errorf("unexpected intent content: %s", intent.Content)
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"project_id": "proj-42"})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			id, err := c.CreateProject(context.Background(), models.CreateIntent{
				Kind:    models.IntentPrompt,
				Content: "a deck about bees",
			})

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if id != "proj-42" {
				t.Errorf("expected project id proj-42, got %s", id)
			}
		})

		t.Run("Invalid Intent Never Reaches Server", func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			_, err := c.CreateProject(context.Background(), models.CreateIntent{Kind: models.IntentPrompt})

			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if atomic.LoadInt32(&calls) != 0 {
				t.Errorf("expected no server calls, got %d", calls)
			}
		})

		t.Run("Missing Project ID In Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			_, err := c.CreateProject(context.Background(), models.CreateIntent{
				Kind:    models.IntentOutline,
				Content: "1. Bees\n2. Hives",
			})

			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("GetProject", func(t *testing.T) {
		t.Run("Successful Fetch", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/projects/proj-1" {
					t.Errorf("expected path '/api/projects/proj-1', got %s", r.URL.Path)
				}

				json.NewEncoder(w).Encode(models.Project{
					ID:    "proj-1",
					Pages: []models.Page{
						{ID: "p1", Position: 0, Outline: "Intro", Status: models.PageDraft},
						{ID: "p2", Position: 1, Outline: "Hives", Status: models.PageCompleted},
					},
				})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			project, err := c.GetProject(context.Background(), "proj-1")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if project.ID != "proj-1" {
				t.Errorf("expected project id proj-1, got %s", project.ID)
			}
			if len(project.Pages) != 2 {
				t.Fatalf("expected 2 pages, got %d", len(project.Pages))
			}
			if project.Pages[1].Status != models.PageCompleted {
				t.Errorf("expected second page COMPLETED, got %s", project.Pages[1].Status)
			}
		})

		t.Run("Not Found Maps To Sentinel", func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"detail": "project gone-1 does not exist"})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL, Retries: 3})
			_, err := c.GetProject(context.Background(), "gone-1")

			if !errors.Is(err, shared.ErrProjectNotFound) {
				t.Errorf("expected ErrProjectNotFound, got %v", err)
			}
			if atomic.LoadInt32(&calls) != 1 {
				t.Errorf("expected no retries on 404, got %d calls", calls)
			}
		})

		t.Run("Server Error Is Retried", func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) < 2 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				json.NewEncoder(w).Encode(models.Project{ID: "proj-1"})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL, Retries: 2})
			project, err := c.GetProject(context.Background(), "proj-1")

			if err != nil {
				t.Fatalf("expected success after retry, got %v", err)
			}
			if project.ID != "proj-1" {
				t.Errorf("expected project id proj-1, got %s", project.ID)
			}
			if atomic.LoadInt32(&calls) != 2 {
				t.Errorf("expected 2 calls, got %d", calls)
			}
		})

		t.Run("Persistent Server Error Surfaces Detail", func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"detail": "generation backend down"})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL, Retries: 2})
			_, err := c.GetProject(context.Background(), "proj-1")

			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if err == nil || !strings.Contains(err.Error(), "generation backend down") {
				t.Errorf("expected server detail in error, got %v", err)
			}
			if atomic.LoadInt32(&calls) != 2 {
				t.Errorf("expected 2 attempts before giving up, got %d", calls)
			}
		})
	})

	t.Run("UpdatePage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch {
				t.Errorf("expected PATCH method, got %s", r.Method)
			}
			if r.URL.Path != "/api/projects/proj-1/pages/p1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			var patch models.PagePatch
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				t.Fatalf("failed to decode patch: %v", err)
			}
			if patch.Outline == nil || *patch.Outline != "Revised outline" {
				t.Error("expected outline field in patch")
			}
			if patch.Description != nil {
				t.Error("expected description field omitted")
			}

			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := NewClient(ClientOpts{BaseURL: server.URL})
		err := c.UpdatePage(context.Background(), "proj-1", "p1", models.PagePatch{Outline: strPtr("Revised outline")})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("ReorderPages", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("expected PUT method, got %s", r.Method)
			}
			if r.URL.Path != "/api/projects/proj-1/pages/order" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			var body struct {
				PageIDs []string `json:"page_ids"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if len(body.PageIDs) != 3 || body.PageIDs[0] != "p3" {
				t.Errorf("unexpected page order %v", body.PageIDs)
			}

			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := NewClient(ClientOpts{BaseURL: server.URL})
		err := c.ReorderPages(context.Background(), "proj-1", []string{"p3", "p1", "p2"})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("SubmitTask", func(t *testing.T) {
		t.Run("Asynchronous Submission", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/projects/proj-1/tasks" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}

				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body["category"] != string(models.CategoryDescription) {
					t.Errorf("unexpected category %v", body["category"])
				}
				if body["page_id"] != "p1" {
					t.Errorf("unexpected page id %v", body["page_id"])
				}

				json.NewEncoder(w).Encode(map[string]string{"task_id": "task-9"})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			sub, err := c.SubmitTask(context.Background(), models.CategoryDescription, "proj-1", "p1", nil)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !sub.Async() {
				t.Error("expected async submission")
			}
			if sub.TaskID != "task-9" {
				t.Errorf("expected task id task-9, got %s", sub.TaskID)
			}
		})

		t.Run("Synchronous Result", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"result": map[string]string{"description": "Bees pollinate flowers."},
				})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			sub, err := c.SubmitTask(context.Background(), models.CategoryDescription, "proj-1", "p1", nil)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if sub.Async() {
				t.Error("expected synchronous submission")
			}
		})

		t.Run("Params Are Forwarded", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}

				params, ok := body["params"].(map[string]any)
				if !ok {
					t.Fatal("expected params object")
				}
				if params["instruction"] != "make the sky darker" {
					t.Errorf("unexpected instruction %v", params["instruction"])
				}

				json.NewEncoder(w).Encode(map[string]string{"task_id": "task-1"})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			_, err := c.SubmitTask(context.Background(), models.CategoryImageEdit, "proj-1", "p1", map[string]any{
				"instruction": "make the sky darker",
			})

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("GetTaskStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/projects/proj-1/tasks/task-9" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			json.NewEncoder(w).Encode(models.TaskStatus{
				State:     models.TaskProcessing,
				Completed: 2,
				Total:     5,
			})
		}))
		defer server.Close()

		c := NewClient(ClientOpts{BaseURL: server.URL})
		status, err := c.GetTaskStatus(context.Background(), "proj-1", "task-9")

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.State != models.TaskProcessing {
			t.Errorf("expected PROCESSING, got %s", status.State)
		}
		if !status.HasProgress() {
			t.Error("expected progress counters")
		}
	})

	t.Run("UploadTemplate", func(t *testing.T) {
		t.Run("Successful Upload", func(t *testing.T) {
			tmpDir := t.TempDir()
			path := filepath.Join(tmpDir, "deck.pptx")
			if err := os.WriteFile(path, []byte("template bytes"), 0o644); err != nil {
				t.Fatalf("failed to write template: %v", err)
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/projects/proj-1/template" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}

				f, header, err := r.FormFile("template")
				if err != nil {
					t.Fatalf("expected multipart template field: %v", err)
				}
				defer f.Close()

				if header.Filename != "deck.pptx" {
					t.Errorf("unexpected filename %s", header.Filename)
				}

				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			if err := c.UploadTemplate(context.Background(), "proj-1", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Missing File", func(t *testing.T) {
			c := NewClient(ClientOpts{BaseURL: "http://localhost:1"})
			err := c.UploadTemplate(context.Background(), "proj-1", "/does/not/exist.pptx")

			if err == nil {
				t.Error("expected error for missing template file")
			}
		})
	})

	t.Run("DeletePage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("expected DELETE method, got %s", r.Method)
			}
			if r.URL.Path != "/api/projects/proj-1/pages/p2" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := NewClient(ClientOpts{BaseURL: server.URL})
		if err := c.DeletePage(context.Background(), "proj-1", "p2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}
