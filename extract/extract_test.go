package extract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/transflow/transflow/config"
	"github.com/transflow/transflow/errdefs"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testExtractor(t *testing.T, baseURL string) *Extractor {
	t.Helper()
	cfg := config.Config{
		FirecrawlAPIKey:  "fc-test",
		FirecrawlBaseURL: baseURL,
		FirecrawlTimeout: 5 * time.Second,
		HTTPMaxRetries:   0,
	}
	e, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	e.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	return e
}

// ---------------------------------------------------------------------------
// URL validation
// ---------------------------------------------------------------------------

func TestValidateURL(t *testing.T) {
	valid := []string{"https://example.com/post", "http://example.com"}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{"ftp://example.com/file", "example.com/post", "https://", "not a url at all\x7f://"}
	for _, u := range invalid {
		err := ValidateURL(u)
		var verr *errdefs.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("ValidateURL(%q) = %v, want ValidationError", u, err)
		}
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(config.Config{}, quietLogger())
	var verr *errdefs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

// ---------------------------------------------------------------------------
// Fetch
// ---------------------------------------------------------------------------

func TestFetch(t *testing.T) {
	var gotReq scrapeRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/scrape" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": "# Hello\n\nBody.",
				"metadata": map[string]any{"title": "Hello"},
			},
		})
	}))
	defer srv.Close()

	e := testExtractor(t, srv.URL)
	doc, err := e.Fetch(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer fc-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.URL != "https://example.com/post" {
		t.Errorf("request url = %q", gotReq.URL)
	}
	if len(gotReq.Formats) != 1 || gotReq.Formats[0] != "markdown" {
		t.Errorf("request formats = %v", gotReq.Formats)
	}
	if doc.Title != "Hello" || doc.Content != "# Hello\n\nBody." {
		t.Errorf("doc = %+v", doc)
	}
	if doc.SourceURL != "https://example.com/post" {
		t.Errorf("source url = %q", doc.SourceURL)
	}
}

func TestFetchAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "page blocked"})
	}))
	defer srv.Close()

	e := testExtractor(t, srv.URL)
	_, err := e.Fetch(context.Background(), "https://example.com/post")
	var aerr *errdefs.APIError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if !strings.Contains(err.Error(), "page blocked") {
		t.Errorf("err = %v, want provider message", err)
	}
}

func TestFetchEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"markdown": ""}})
	}))
	defer srv.Close()

	e := testExtractor(t, srv.URL)
	_, err := e.Fetch(context.Background(), "https://example.com/post")
	var aerr *errdefs.APIError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v, want APIError", err)
	}
}

func TestFetchDefaultsTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"markdown": "Body."}})
	}))
	defer srv.Close()

	e := testExtractor(t, srv.URL)
	doc, err := e.Fetch(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Untitled" {
		t.Errorf("title = %q, want Untitled", doc.Title)
	}
}

func TestFetchInvalidURLSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	e := testExtractor(t, srv.URL)
	_, err := e.Fetch(context.Background(), "ftp://example.com")
	var verr *errdefs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if calls != 0 {
		t.Errorf("provider called %d times for invalid URL", calls)
	}
}

// ---------------------------------------------------------------------------
// Frontmatter and saving
// ---------------------------------------------------------------------------

func TestMarkdownWithFrontmatter(t *testing.T) {
	doc := &Document{
		Content:   "# Hello\n\nBody.",
		Title:     "Hello",
		SourceURL: "https://example.com/post",
		FetchedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	got := doc.MarkdownWithFrontmatter()
	if !strings.HasPrefix(got, "---\n") {
		t.Errorf("missing opening delimiter:\n%s", got)
	}
	for _, want := range []string{
		"title: Hello",
		"source_url: https://example.com/post",
		`fetched_at: "2025-03-14T09:00:00Z"`,
		"---\n\n# Hello\n\nBody.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestFetchAndSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": "Body.",
				"metadata": map[string]any{"title": "Saved"},
			},
		})
	}))
	defer srv.Close()

	e := testExtractor(t, srv.URL)
	out := filepath.Join(t.TempDir(), "sub", "article.md")
	path, err := e.FetchAndSave(context.Background(), "https://example.com/post", out)
	if err != nil {
		t.Fatal(err)
	}
	if path != out {
		t.Errorf("path = %q, want %q", path, out)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "title: Saved") || !strings.Contains(string(data), "Body.") {
		t.Errorf("saved content:\n%s", data)
	}
}
