// Package bundle implements asset localization: it discovers remote
// image references in a Markdown document, downloads them under a
// concurrency cap, rewrites the references to local relative paths,
// and writes a self-contained bundle directory (README.md, assets/,
// meta.yaml).
//
// Individual download failures are logged and skipped: the reference
// keeps its remote URL and the rest of the bundle proceeds. Only the
// final README.md/meta.yaml writes are all-or-nothing.
package bundle

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/transflow/transflow/config"
	"github.com/transflow/transflow/fsutil"
	"github.com/transflow/transflow/httpclient"
	"github.com/transflow/transflow/markdown"
)

// imageRef matches ![alt](url) and ![alt](url "title"). The first
// submatch is the URL.
var imageRef = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)(?:\s+["'][^"']*["'])?\)`)

// unsafeFilenameChars is everything outside the safe filename set.
var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// frontmatterBlock matches a YAML front matter block at the start of
// the document.
var frontmatterBlock = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n?`)

// Bundler localizes a document's remote assets into a bundle directory.
type Bundler struct {
	http        *httpclient.Client
	concurrency int
	log         *slog.Logger

	// now is replaceable in tests for deterministic folder names and
	// manifest timestamps.
	now func() time.Time
}

// New builds a Bundler from configuration.
func New(cfg config.Config, log *slog.Logger) *Bundler {
	if log == nil {
		log = slog.Default()
	}
	concurrency := cfg.ConcurrentDownloads
	if concurrency < 1 {
		concurrency = 1
	}
	return &Bundler{
		http:        httpclient.New(cfg.HTTPTimeout, cfg.HTTPMaxRetries, nil, log),
		concurrency: concurrency,
		log:         log,
		now:         time.Now,
	}
}

// Bundle reads the Markdown file at inputPath, localizes its assets
// and writes the bundle under outputDir. folderPattern names the
// bundle directory ({year}, {month}, {day}, {date}, {slug} tokens); an
// empty pattern uses the title slug. Returns the bundle directory.
func (b *Bundler) Bundle(ctx context.Context, inputPath, outputDir, folderPattern string) (string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", inputPath, err)
	}
	content := string(data)
	b.log.Info("bundling", "input", inputPath)

	meta := ExtractFrontmatter(content)
	title := meta["title"]
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	}

	var folder string
	if folderPattern != "" {
		folder = fsutil.ExpandFolderPattern(folderPattern, title, b.now())
	} else {
		folder = fsutil.Slug(title)
	}
	bundleDir := filepath.Join(outputDir, filepath.FromSlash(folder))
	assetsDir := filepath.Join(bundleDir, "assets")
	if err := os.MkdirAll(assetsDir, 0755); err != nil {
		return "", fmt.Errorf("creating bundle directory: %w", err)
	}

	urls := ExtractImageURLs(content)
	b.log.Info("found images to download", "count", len(urls))

	downloads := b.downloadAssets(ctx, urls, assetsDir)
	updated := RewriteImageLinks(content, downloads)

	if err := os.WriteFile(filepath.Join(bundleDir, "README.md"), []byte(updated), 0644); err != nil {
		return "", fmt.Errorf("writing README.md: %w", err)
	}

	manifest := b.buildManifest(meta, urls, downloads)
	if err := WriteManifest(filepath.Join(bundleDir, "meta.yaml"), manifest); err != nil {
		return "", err
	}

	b.log.Info("bundle created", "dir", bundleDir,
		"assets", len(downloads), "attempted", len(urls))
	return bundleDir, nil
}

// ---------------------------------------------------------------------------
// Frontmatter
// ---------------------------------------------------------------------------

// ExtractFrontmatter returns the string-valued fields of a leading
// YAML front matter block. Absent or malformed front matter yields an
// empty map.
func ExtractFrontmatter(content string) map[string]string {
	out := make(map[string]string)
	m := frontmatterBlock.FindStringSubmatch(content)
	if m == nil {
		return out
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(m[1]), &raw); err != nil {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Reference extraction and rewriting
// ---------------------------------------------------------------------------

// ExtractImageURLs collects the unique http/https image URLs of the
// document, in first-seen order. Matches inside verbatim blocks
// (fenced or indented code, raw HTML, front matter) are not
// references; they stay untouched.
func ExtractImageURLs(content string) []string {
	fences := markdown.VerbatimRanges(content)
	seen := make(map[string]bool)
	var urls []string

	for _, loc := range imageRef.FindAllStringSubmatchIndex(content, -1) {
		if markdown.InsideRanges(loc[0], fences) {
			continue
		}
		u := content[loc[2]:loc[3]]
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			continue
		}
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}

// RewriteImageLinks replaces every image URL that has a local filename
// in downloads with assets/<filename>. URLs inside verbatim blocks and
// URLs that failed to download keep their original form.
func RewriteImageLinks(content string, downloads map[string]string) string {
	if len(downloads) == 0 {
		return content
	}
	fences := markdown.VerbatimRanges(content)

	var sb strings.Builder
	last := 0
	for _, loc := range imageRef.FindAllStringSubmatchIndex(content, -1) {
		if markdown.InsideRanges(loc[0], fences) {
			continue
		}
		u := content[loc[2]:loc[3]]
		name, ok := downloads[u]
		if !ok {
			continue
		}
		sb.WriteString(content[last:loc[2]])
		sb.WriteString("assets/" + name)
		last = loc[3]
	}
	sb.WriteString(content[last:])
	return sb.String()
}

// AssetFilename derives a local filename for an asset URL: the URL
// path's base name when it has an extension, otherwise a
// content-addressed fallback from a hash of the URL. The result is
// sanitized to a safe character set.
func AssetFilename(rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		// EscapedPath keeps percent escapes; they sanitize to
		// underscores instead of decoding to unsafe characters.
		name = path.Base(u.EscapedPath())
		if name == "." || name == "/" {
			name = ""
		}
	}

	if name == "" || !strings.Contains(name, ".") {
		sum := blake3.Sum256([]byte(rawURL))
		return "image_" + hex.EncodeToString(sum[:4]) + ".jpg"
	}
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// ---------------------------------------------------------------------------
// Concurrent downloads
// ---------------------------------------------------------------------------

// assignAssetNames maps each URL to a filename unique within the
// bundle, so distinct URLs sharing a basename never overwrite each
// other. Names are fixed before any download starts, which keeps them
// deterministic regardless of completion order.
func assignAssetNames(urls []string) map[string]string {
	names := make(map[string]string, len(urls))
	taken := make(map[string]bool, len(urls))
	for _, u := range urls {
		name := AssetFilename(u)
		ext := path.Ext(name)
		name = fsutil.UniqueFilename(strings.TrimSuffix(name, ext), ext, u, taken)
		taken[name] = true
		names[u] = name
	}
	return names
}

type downloadResult struct {
	url      string
	filename string
	err      error
}

// downloadAssets fetches all URLs into destDir with at most
// b.concurrency downloads in flight. Failures are logged and omitted
// from the returned URL→filename map; they never cancel the others.
func (b *Bundler) downloadAssets(ctx context.Context, urls []string, destDir string) map[string]string {
	downloads := make(map[string]string, len(urls))
	if len(urls) == 0 {
		return downloads
	}

	names := assignAssetNames(urls)

	sem := make(chan struct{}, b.concurrency)
	results := make(chan downloadResult, len(urls))
	var wg sync.WaitGroup

	for _, u := range urls {
		sem <- struct{}{}
		wg.Add(1)

		go func(u, filename string) {
			defer func() {
				<-sem
				wg.Done()
			}()

			b.log.Debug("downloading", "url", u, "file", filename)
			err := b.http.Download(ctx, u, filepath.Join(destDir, filename))
			results <- downloadResult{url: u, filename: filename, err: err}
		}(u, names[u])
	}

	wg.Wait()
	close(results)

	for r := range results {
		if r.err != nil {
			b.log.Warn("failed to download asset", "url", r.url, "error", r.err)
			continue
		}
		downloads[r.url] = r.filename
	}

	b.log.Info("downloaded assets", "succeeded", len(downloads), "attempted", len(urls))
	return downloads
}

// ---------------------------------------------------------------------------
// Manifest
// ---------------------------------------------------------------------------

// Manifest describes a bundle: when it was built, which assets it
// holds, and the source document's metadata when known.
type Manifest struct {
	BundledAt  string   `yaml:"bundled_at"`
	AssetCount int      `yaml:"asset_count"`
	Assets     []string `yaml:"assets"`
	Title      string   `yaml:"title,omitempty"`
	SourceURL  string   `yaml:"source_url,omitempty"`
	FetchedAt  string   `yaml:"fetched_at,omitempty"`
}

func (b *Bundler) buildManifest(meta map[string]string, urls []string, downloads map[string]string) Manifest {
	// Asset order follows first-seen URL order for determinism.
	assets := make([]string, 0, len(downloads))
	for _, u := range urls {
		if name, ok := downloads[u]; ok {
			assets = append(assets, name)
		}
	}
	return Manifest{
		BundledAt:  b.now().Format(time.RFC3339),
		AssetCount: len(assets),
		Assets:     assets,
		Title:      meta["title"],
		SourceURL:  meta["source_url"],
		FetchedAt:  meta["fetched_at"],
	}
}

// WriteManifest serializes the manifest to path as YAML.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
