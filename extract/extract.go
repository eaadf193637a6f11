// Package extract fetches a web page and converts it to Markdown
// through the Firecrawl scrape API. The result carries its source
// metadata as YAML front matter so downstream steps can recover the
// title and origin without re-fetching.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/transflow/transflow/config"
	"github.com/transflow/transflow/errdefs"
	"github.com/transflow/transflow/fsutil"
	"github.com/transflow/transflow/httpclient"
)

// Document is fetched Markdown content plus its source metadata.
type Document struct {
	Content   string
	Title     string
	SourceURL string
	FetchedAt time.Time
}

type frontmatter struct {
	Title     string `yaml:"title"`
	SourceURL string `yaml:"source_url"`
	FetchedAt string `yaml:"fetched_at"`
}

// MarkdownWithFrontmatter renders the document with a leading YAML
// front matter block holding title, source_url and fetched_at.
func (d *Document) MarkdownWithFrontmatter() string {
	fm := frontmatter{
		Title:     d.Title,
		SourceURL: d.SourceURL,
		FetchedAt: d.FetchedAt.Format(time.RFC3339),
	}
	data, err := yaml.Marshal(fm)
	if err != nil {
		// Three string fields cannot fail to marshal.
		return d.Content
	}
	return fmt.Sprintf("---\n%s---\n\n%s", data, d.Content)
}

// Extractor turns URLs into Markdown documents via Firecrawl.
type Extractor struct {
	http    *httpclient.Client
	baseURL string
	log     *slog.Logger

	now func() time.Time
}

// New builds an Extractor. The Firecrawl API key is required.
func New(cfg config.Config, log *slog.Logger) (*Extractor, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.FirecrawlAPIKey == "" {
		return nil, errdefs.Validationf("Firecrawl API key is required (TRANSFLOW_FIRECRAWL_API_KEY)")
	}
	headers := map[string]string{
		"Authorization": "Bearer " + cfg.FirecrawlAPIKey,
	}
	return &Extractor{
		http:    httpclient.New(cfg.FirecrawlTimeout, cfg.HTTPMaxRetries, headers, log),
		baseURL: cfg.FirecrawlBaseURL,
		log:     log,
		now:     time.Now,
	}, nil
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errdefs.Validationf("invalid URL %q: %v", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errdefs.Validationf("invalid URL scheme %q: must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return errdefs.Validationf("invalid URL %q: missing domain", rawURL)
	}
	return nil
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	} `json:"data"`
}

// Fetch scrapes url and returns its Markdown rendition.
func (e *Extractor) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	if err := ValidateURL(pageURL); err != nil {
		return nil, err
	}
	e.log.Info("fetching content", "url", pageURL)

	payload, err := json.Marshal(scrapeRequest{URL: pageURL, Formats: []string{"markdown"}})
	if err != nil {
		return nil, fmt.Errorf("encoding scrape request: %w", err)
	}

	body, err := e.http.Post(ctx, e.baseURL+"/scrape", payload, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var resp scrapeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &errdefs.APIError{Msg: "decoding Firecrawl response", Err: err}
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, errdefs.APIf("Firecrawl API returned error: %s", msg)
	}
	if resp.Data.Markdown == "" {
		return nil, errdefs.APIf("Firecrawl returned empty content")
	}

	title := resp.Data.Metadata.Title
	if title == "" {
		title = "Untitled"
	}
	e.log.Info("fetched content", "title", title)

	return &Document{
		Content:   resp.Data.Markdown,
		Title:     title,
		SourceURL: pageURL,
		FetchedAt: e.now(),
	}, nil
}

// FetchAndSave scrapes url and writes the document to outputPath. An
// empty outputPath derives a filename from the URL in the current
// directory. Returns the path written.
func (e *Extractor) FetchAndSave(ctx context.Context, pageURL, outputPath string) (string, error) {
	doc, err := e.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if outputPath == "" {
		outputPath = fsutil.FilenameFromURL(pageURL)
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("creating directory for %s: %w", outputPath, err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(doc.MarkdownWithFrontmatter()), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outputPath, err)
	}

	e.log.Info("saved document", "path", outputPath)
	return outputPath, nil
}
