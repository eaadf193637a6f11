package fsutil

import (
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Slug
// ---------------------------------------------------------------------------

func TestSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"Go 1.23 Release Notes!", "go-1-23-release-notes"},
		{"  spaces  ", "spaces"},
	}
	for _, c := range cases {
		if got := Slug(c.in); got != c.want {
			t.Errorf("Slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugTruncated(t *testing.T) {
	long := strings.Repeat("word ", 30)
	if got := Slug(long); len(got) > 50 {
		t.Errorf("slug length %d exceeds 50: %q", len(got), got)
	}
}

// ---------------------------------------------------------------------------
// FilenameFromURL
// ---------------------------------------------------------------------------

func TestFilenameFromURL(t *testing.T) {
	cases := []struct {
		url, want string
	}{
		{"https://example.com/posts/my-great-article", "my-great-article.md"},
		{"https://example.com/posts/my-great-article/", "my-great-article.md"},
		{"https://example.com/page?id=42", "page.md"},
		{"https://example.com/", "article.md"},
		{"https://example.com", "article.md"},
	}
	for _, c := range cases {
		if got := FilenameFromURL(c.url); got != c.want {
			t.Errorf("FilenameFromURL(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

// ---------------------------------------------------------------------------
// ExpandFolderPattern
// ---------------------------------------------------------------------------

func TestExpandFolderPattern(t *testing.T) {
	at := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	got := ExpandFolderPattern("{year}/{date}-{slug}", "My Article", at)
	want := "2026/20260307-my-article"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = ExpandFolderPattern("{year}-{month}-{day}", "x", at)
	if got != "2026-03-07" {
		t.Errorf("got %q, want 2026-03-07", got)
	}
}

func TestExpandFolderPatternNoTokens(t *testing.T) {
	got := ExpandFolderPattern("plain/dir", "title", time.Now())
	if got != "plain/dir" {
		t.Errorf("got %q, want plain/dir", got)
	}
}

// ---------------------------------------------------------------------------
// UniqueFilename
// ---------------------------------------------------------------------------

func TestUniqueFilename(t *testing.T) {
	taken := map[string]bool{}

	name := UniqueFilename("article", ".md", "https://a.com/article", taken)
	if name != "article.md" {
		t.Fatalf("got %q, want article.md", name)
	}
	taken[name] = true

	name = UniqueFilename("article", ".md", "https://b.com/article", taken)
	if name == "article.md" {
		t.Error("expected a suffixed name on collision")
	}
	if !strings.HasPrefix(name, "article_") || !strings.HasSuffix(name, ".md") {
		t.Errorf("unexpected collision name %q", name)
	}

	again := UniqueFilename("article", ".md", "https://b.com/article", taken)
	if again != name {
		t.Errorf("same seed gave %q then %q", name, again)
	}
}
