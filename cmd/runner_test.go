package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/bookclub/internal/session"
	"github.com/desertthunder/bookclub/internal/shared"
	tu "github.com/desertthunder/bookclub/internal/testing"
	"github.com/urfave/cli/v3"
)

type testEnv struct {
	runner *Runner
	api    *tu.FakeAPI
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T, input string) *testEnv {
	t.Helper()
	api := tu.NewFakeAPI(t)
	config := shared.DefaultConfig()
	config.API.BaseURL = api.URL
	config.API.RequestsPerSecond = 0

	out := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Store:  session.NewMemoryStore(),
		Logger: shared.NewLogger(io.Discard),
		Output: out,
		Input:  strings.NewReader(input),
	})
	return &testEnv{runner: runner, api: api, out: out}
}

// run executes args against the full command tree.
func (e *testEnv) run(args ...string) error {
	app := &cli.Command{
		Name:   "bookclub",
		Writer: e.out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.toml"},
			&cli.BoolFlag{Name: "debug"},
		},
		Before:   e.runner.Before,
		After:    e.runner.After,
		Commands: e.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"bookclub"}, args...))
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	e.api.Handle(http.MethodPost, "/auth/login", http.StatusOK, map[string]any{
		"token": "tok",
		"user":  map[string]any{"id": "u1", "name": "Ann"},
	})
	if err := e.run("auth", "login", "--email", "ann@example.com", "--password", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	e.out.Reset()
}

func books() []any {
	return []any{
		map[string]any{"id": "b1", "title": "Dune", "author": "Herbert", "status": "active", "rating": 4},
		map[string]any{"id": "b2", "title": "Emma", "author": "Austen", "status": "archived"},
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			store := session.NewMemoryStore()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Store:      store,
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
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("does not connect until a command needs it", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Store: session.NewMemoryStore()})
			if runner.client != nil || runner.session != nil {
				t.Error("expected services to be built lazily")
			}
			if _, err := runner.service(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runner.client == nil || runner.bookclub == nil {
				t.Error("expected services after connect")
			}
		})

		t.Run("uses token from environment config", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.API.Token = "env-token"
			runner := NewRunner(RunnerOpts{Config: config, Store: session.NewMemoryStore()})
			if err := runner.connect(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tok, err := runner.session.AccessToken(); err != nil || tok != "env-token" {
				t.Errorf("expected env token, got %q (%v)", tok, err)
			}
		})
	})

	t.Run("Output", func(t *testing.T) {
		t.Run("write errors surface", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writeJSON(map[string]any{"ok": true}, false); err == nil {
				t.Error("expected writeJSON to fail")
			}
			if err := runner.writePlain("hello"); err == nil {
				t.Error("expected writePlain to fail")
			}
		})

		t.Run("confirm accepts yes only", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: io.Discard, Input: strings.NewReader("yes\nmaybe\n")})
			if !runner.confirm("Proceed?") {
				t.Error("expected yes to confirm")
			}
			if runner.confirm("Proceed?") {
				t.Error("expected maybe to decline")
			}
			if runner.confirm("Proceed?") {
				t.Error("expected end of input to decline")
			}
		})
	})

	t.Run("Config", func(t *testing.T) {
		t.Run("resolves from --config path", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(path, []byte("[api]\nbase_url = \"http://example.test/api\"\n"), 0644)

			runner := NewRunner(RunnerOpts{ConfigPath: path})
			config, err := runner.Config()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.API.BaseURL != "http://example.test/api" && os.Getenv(shared.EnvAPIURL) == "" {
				t.Errorf("expected base url from file, got %s", config.API.BaseURL)
			}
		})

		t.Run("setup config writes the template once", func(t *testing.T) {
			env := newTestEnv(t, "")
			path := filepath.Join(t.TempDir(), "config.toml")

			if err := env.run("--config", path, "setup", "config"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tu.AssertFileExists(t, path)

			env.out.Reset()
			if err := env.run("--config", path, "setup", "config"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(env.out.String(), "already exists") {
				t.Errorf("expected existing config notice, got %q", env.out.String())
			}
		})
	})
}

func TestFailureMessage(t *testing.T) {
	t.Run("unauthenticated errors hint at login", func(t *testing.T) {
		err := fmt.Errorf("listing users: %w", shared.ErrNotAuthenticated)
		if got := failureMessage(err); !strings.Contains(got, "bookclub auth login") {
			t.Errorf("expected login hint, got %q", got)
		}
	})

	t.Run("other errors are reported as failures", func(t *testing.T) {
		got := failureMessage(fmt.Errorf("%w: boom", shared.ErrAPIRequest))
		if !strings.HasPrefix(got, "application error:") || !strings.Contains(got, "boom") {
			t.Errorf("unexpected message %q", got)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("login stores the session", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.api.Handle(http.MethodPost, "/auth/login", http.StatusOK, map[string]any{
			"token": "tok",
			"user":  map[string]any{"id": "u1", "name": "Ann"},
		})

		if err := env.run("auth", "login", "--email", "ann@example.com", "--password", "pw"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.out.String(), "Signed in as Ann") {
			t.Errorf("expected greeting, got %q", env.out.String())
		}

		env.out.Reset()
		if err := env.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.out.String(), "User: Ann") {
			t.Errorf("expected status to show user, got %q", env.out.String())
		}
	})

	t.Run("login prompts for the password", func(t *testing.T) {
		env := newTestEnv(t, "secret\n")
		env.api.Handle(http.MethodPost, "/auth/login", http.StatusOK, map[string]any{"token": "tok", "user": map[string]any{"id": "u1"}})

		if err := env.run("auth", "login", "--email", "ann@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		reqs := env.api.Requests()
		body := reqs[len(reqs)-1].Body
		if body["password"] != "secret" {
			t.Errorf("expected prompted password, got %v", body["password"])
		}
	})

	t.Run("failed login leaves the session empty", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.api.Handle(http.MethodPost, "/auth/login", http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})

		err := env.run("auth", "login", "--email", "ann@example.com", "--password", "bad")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if env.runner.session.Authenticated() {
			t.Error("expected no session after failed login")
		}
	})

	t.Run("logout clears the session", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)

		if err := env.run("auth", "logout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		env.out.Reset()
		env.run("auth", "status")
		if !strings.Contains(env.out.String(), "Not signed in") {
			t.Errorf("expected signed-out status, got %q", env.out.String())
		}
	})

	t.Run("whoami requires a session", func(t *testing.T) {
		env := newTestEnv(t, "")
		err := env.run("auth", "whoami")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if env.api.Count(http.MethodGet, "/users/me") != 0 {
			t.Error("expected no request without a token")
		}
	})

	t.Run("whoami prints the profile", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/users/me", http.StatusOK, map[string]any{"user": map[string]any{"id": "u1", "name": "Ann", "email": "ann@example.com"}})

		if err := env.run("auth", "whoami"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.out.String(), "ann@example.com") {
			t.Errorf("expected profile, got %q", env.out.String())
		}
		reqs := env.api.Requests()
		if got := reqs[len(reqs)-1].Auth; got != "Bearer tok" {
			t.Errorf("expected bearer header, got %q", got)
		}
	})
}

func TestBrowseCommands(t *testing.T) {
	t.Run("books list filters and renders json", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.api.Handle(http.MethodGet, "/books", http.StatusOK, map[string]any{"books": books()})

		if err := env.run("books", "list", "--format", "json", "--search", "DUNE"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var rows []map[string]any
		if err := json.Unmarshal(env.out.Bytes(), &rows); err != nil {
			t.Fatalf("expected json output: %v", err)
		}
		if len(rows) != 1 || rows[0]["id"] != "b1" {
			t.Errorf("expected only Dune, got %v", rows)
		}
	})

	t.Run("books list rejects unknown format", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.api.Handle(http.MethodGet, "/books", http.StatusOK, books())
		if err := env.run("books", "list", "--format", "yaml"); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("clubs join uses the current membership", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/bookclubs/c1", http.StatusOK, map[string]any{"id": "c1", "name": "Readers", "members": []any{}})
		env.api.Handle(http.MethodPost, "/bookclubs/c1/join", http.StatusOK, map[string]any{})

		if err := env.run("clubs", "join", "c1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.out.String(), "Joined Readers") {
			t.Errorf("expected join message, got %q", env.out.String())
		}

		env.api.Handle(http.MethodGet, "/bookclubs/c1", http.StatusOK, map[string]any{"id": "c1", "name": "Readers", "members": []any{"u1"}})
		env.out.Reset()
		if err := env.run("clubs", "join", "c1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.api.Count(http.MethodPost, "/bookclubs/c1/join") != 1 {
			t.Error("expected no second join request for a member")
		}
		if !strings.Contains(env.out.String(), "Already a member") {
			t.Errorf("expected already-member notice, got %q", env.out.String())
		}
	})

	t.Run("users follow posts once", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/users/u1/following", http.StatusOK, []any{})
		env.api.Handle(http.MethodPost, "/follow/u2", http.StatusOK, map[string]any{})

		if err := env.run("users", "follow", "u2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.api.Count(http.MethodPost, "/follow/u2") != 1 {
			t.Error("expected one follow request")
		}
	})

	t.Run("users follow surfaces server errors", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/users/u1/following", http.StatusOK, []any{})
		env.api.Handle(http.MethodPost, "/follow/u2", http.StatusInternalServerError, map[string]any{"message": "nope"})

		err := env.run("users", "follow", "u2")
		if err == nil || !strings.Contains(err.Error(), "nope") {
			t.Errorf("expected server message, got %v", err)
		}
	})

	t.Run("users follow rejects self", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		if err := env.run("users", "follow", "u1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAdminCommands(t *testing.T) {
	t.Run("add validates before sending", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)

		err := env.run("admin", "books", "add", "--set", "title=Ubik")
		if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if !strings.Contains(env.out.String(), "Author is required") {
			t.Errorf("expected field message, got %q", env.out.String())
		}
		if env.api.Count(http.MethodPost, "/books") != 0 {
			t.Error("expected no request for an invalid draft")
		}
	})

	t.Run("add posts and refreshes", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodPost, "/books", http.StatusCreated, map[string]any{"id": "b3"})
		env.api.Handle(http.MethodGet, "/books", http.StatusOK, books())

		if err := env.run("admin", "books", "add", "--set", "title=Ubik", "--set", "author=Dick", "--set", "rating=4"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var body map[string]any
		for _, r := range env.api.Requests() {
			if r.Method == http.MethodPost && r.Path == "/books" {
				body = r.Body
			}
		}
		if body["title"] != "Ubik" || body["rating"] != float64(4) {
			t.Errorf("unexpected body %v", body)
		}
		if env.api.Count(http.MethodGet, "/books") != 1 {
			t.Error("expected one refresh after save")
		}
	})

	t.Run("add reports a failed refresh", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodPost, "/books", http.StatusCreated, map[string]any{"id": "b3"})
		env.api.Handle(http.MethodGet, "/books", http.StatusInternalServerError, map[string]any{"message": "db down"})

		if err := env.run("admin", "books", "add", "--set", "title=Ubik", "--set", "author=Dick"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := env.out.String()
		if !strings.Contains(out, "Created book") || !strings.Contains(out, "refresh failed: db down") {
			t.Errorf("expected refresh failure notice, got %q", out)
		}
		if strings.Contains(out, "total") {
			t.Errorf("expected no row count after a failed refresh, got %q", out)
		}
	})

	t.Run("add rejects non-numeric numbers", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		err := env.run("admin", "books", "add", "--set", "title=Ubik", "--set", "author=Dick", "--set", "rating=high")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("edit requires an existing row", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/books", http.StatusOK, books())

		err := env.run("admin", "books", "edit", "--set", "title=X", "missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("edit puts the merged draft", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/books", http.StatusOK, books())
		env.api.Handle(http.MethodPut, "/books/b1", http.StatusOK, map[string]any{})

		if err := env.run("admin", "books", "edit", "--set", "genre=SF", "b1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var body map[string]any
		for _, r := range env.api.Requests() {
			if r.Method == http.MethodPut {
				body = r.Body
			}
		}
		if body["genre"] != "SF" || body["title"] != "Dune" {
			t.Errorf("expected merged draft, got %v", body)
		}
	})

	t.Run("delete asks first", func(t *testing.T) {
		env := newTestEnv(t, "n\n")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/books", http.StatusOK, books())
		env.api.Handle(http.MethodDelete, "/books/b1", http.StatusNoContent, nil)

		if err := env.run("admin", "books", "delete", "b1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.api.Count(http.MethodDelete, "/books/b1") != 0 {
			t.Error("expected no delete after declining")
		}

		if err := env.run("admin", "books", "delete", "--yes", "b1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.api.Count(http.MethodDelete, "/books/b1") != 1 {
			t.Error("expected exactly one delete")
		}
	})

	t.Run("stats as json", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/books", http.StatusOK, books())

		if err := env.run("admin", "books", "stats", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var stats map[string]any
		if err := json.Unmarshal(env.out.Bytes(), &stats); err != nil {
			t.Fatalf("expected json: %v", err)
		}
		if stats["Total"] != float64(2) || stats["Active"] != float64(1) {
			t.Errorf("unexpected stats %v", stats)
		}
	})

	t.Run("list requires a session", func(t *testing.T) {
		env := newTestEnv(t, "")
		err := env.run("admin", "users", "list")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("export writes files and manifest", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.Handle(http.MethodGet, "/books", http.StatusOK, books())
		dir := filepath.Join(t.TempDir(), "out")

		if err := env.run("admin", "export", "--format", "csv", "--kind", "books", "--output", dir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "books.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		if !strings.Contains(tu.MustReadFile(t, filepath.Join(dir, "books.csv")), "Dune") {
			t.Error("expected exported rows")
		}
	})
}

func TestAPICommands(t *testing.T) {
	t.Run("get prints the body", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.api.Handle(http.MethodGet, "/health", http.StatusOK, map[string]any{"status": "ok"})

		if err := env.run("api", "get", "--auth=false", "health"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.out.String(), `"status": "ok"`) {
			t.Errorf("expected body, got %q", env.out.String())
		}
	})

	t.Run("post validates json", func(t *testing.T) {
		env := newTestEnv(t, "")
		err := env.run("api", "post", "--data", "{not json", "/books")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
