// Package fsutil provides filename and directory naming helpers:
// slug generation, URL-derived filenames, and folder pattern expansion
// for bundle output directories.
package fsutil

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/zeebo/blake3"
)

// maxSlugLength bounds generated slugs.
const maxSlugLength = 50

// Slug generates a URL-safe slug from text, truncated at a word
// boundary when possible.
func Slug(text string) string {
	slug.MaxLength = maxSlugLength
	return slug.Make(text)
}

// FilenameFromURL derives a Markdown filename from a source URL.
// The last path segment is slugged; query strings and fragments are
// stripped. Falls back to "article.md".
func FilenameFromURL(rawURL string) string {
	title := "article"

	if u, err := url.Parse(rawURL); err == nil {
		p := strings.TrimRight(u.Path, "/")
		if p != "" && p != "/" {
			parts := strings.Split(p, "/")
			title = parts[len(parts)-1]
		}
	}

	// Strip query params and anchors that survived parsing.
	title = strings.SplitN(title, "?", 2)[0]
	title = strings.SplitN(title, "#", 2)[0]

	s := Slug(title)
	if s == "" {
		s = "article"
	}
	return s + ".md"
}

// ExpandFolderPattern substitutes {year}, {month}, {day}, {date} and
// {slug} tokens in pattern. date uses YYYYMMDD.
func ExpandFolderPattern(pattern, title string, t time.Time) string {
	repl := strings.NewReplacer(
		"{year}", fmt.Sprintf("%04d", t.Year()),
		"{month}", fmt.Sprintf("%02d", int(t.Month())),
		"{day}", fmt.Sprintf("%02d", t.Day()),
		"{date}", t.Format("20060102"),
		"{slug}", Slug(title),
	)
	return repl.Replace(pattern)
}

// UniqueFilename returns base+ext, or base_<hash8>+ext when taken
// already holds that name. The suffix hashes seed, so the same seed
// always yields the same name.
func UniqueFilename(base, ext, seed string, taken map[string]bool) string {
	name := base + ext
	if !taken[name] {
		return name
	}

	sum := blake3.Sum256([]byte(seed))
	return fmt.Sprintf("%s_%x%s", base, sum[:4], ext)
}
