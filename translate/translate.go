// Package translate implements structure-preserving document
// translation: it extracts translatable text units from a parsed
// Markdown document, translates them in delimiter-joined batches
// through a provider, and rebuilds an equivalent document with the
// translated prose in place and all structural formatting untouched.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/transflow/transflow/errdefs"
	"github.com/transflow/transflow/langmeta"
	"github.com/transflow/transflow/markdown"
)

// ---------------------------------------------------------------------------
// Translatable unit extraction
// ---------------------------------------------------------------------------

// Unit is one block's inline content flattened to plain text, eligible
// for provider translation.
type Unit struct {
	// Index is the unit's position in document traversal order.
	Index int
	// Block is the owning block in the parsed document.
	Block *markdown.Block
	// Text is the flattened plain-text content.
	Text string
}

// ExtractUnits walks the document and returns its translatable units
// in traversal order. Only paragraphs, headings and quotes contribute;
// verbatim blocks are not traversed at all; whitespace-only content is
// excluded.
func ExtractUnits(doc *markdown.Document) []Unit {
	var units []Unit
	doc.Walk(func(b *markdown.Block) bool {
		if b.Kind.Verbatim() {
			return false
		}
		switch b.Kind {
		case markdown.Paragraph, markdown.Heading, markdown.Quote:
			text := b.FlattenedText()
			if strings.TrimSpace(text) != "" {
				units = append(units, Unit{Index: len(units), Block: b, Text: text})
			}
		}
		return true
	})
	return units
}

// ---------------------------------------------------------------------------
// Document rebuild
// ---------------------------------------------------------------------------

// Rebuild constructs a new document with translations applied. For
// every paragraph, heading or quote whose flattened text has a
// non-blank entry in translations, all inline children are replaced by
// a single plain-text node carrying the translated string (the
// original inline formatting is deliberately discarded; the provider
// answers in plain text). Every other block is copied unchanged. The
// input document is never mutated: the rebuilt tree shares no node
// instances with it.
func Rebuild(doc *markdown.Document, translations map[string]string) *markdown.Document {
	out := &markdown.Document{Blocks: make([]*markdown.Block, 0, len(doc.Blocks))}
	for _, b := range doc.Blocks {
		nb := b.Clone()
		applyTranslations(nb, translations)
		out.Blocks = append(out.Blocks, nb)
	}
	return out
}

func applyTranslations(b *markdown.Block, translations map[string]string) {
	switch b.Kind {
	case markdown.Paragraph, markdown.Heading, markdown.Quote:
		text := b.FlattenedText()
		if strings.TrimSpace(text) == "" {
			return
		}
		translated, ok := translations[text]
		if !ok || strings.TrimSpace(translated) == "" {
			return
		}
		b.Inlines = []*markdown.Inline{{Kind: markdown.PlainText, Text: translated}}
		// Clearing Raw makes the renderer serialize the new content.
		b.Raw = ""
	}
}

// ---------------------------------------------------------------------------
// Translator facade
// ---------------------------------------------------------------------------

// Translator wires parse → extract → schedule → rebuild → render.
type Translator struct {
	sched *Scheduler
	lang  string
	log   *slog.Logger
}

// NewTranslator builds a Translator for one target language. batchSize
// <= 0 selects the default.
func NewTranslator(completer Completer, lang string, batchSize int, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	return &Translator{
		sched: NewScheduler(completer, batchSize, log),
		lang:  lang,
		log:   log,
	}
}

// TranslateText translates Markdown content, preserving structure.
// Content with no translatable units passes through unchanged.
func (t *Translator) TranslateText(ctx context.Context, content string) (string, error) {
	doc := markdown.Parse(content)
	units := ExtractUnits(doc)
	t.log.Info("extracted translatable units", "count", len(units),
		"language", langmeta.PromptName(t.lang))

	if len(units) == 0 {
		t.log.Warn("no translatable content found")
		return content, nil
	}

	translations, err := t.sched.TranslateUnits(ctx, units, t.lang)
	if err != nil {
		return "", errdefs.Translationf(err, "translating document")
	}

	return Rebuild(doc, translations).Render(), nil
}

// TranslateFile reads inPath, translates it and writes the result to
// outPath, creating parent directories as needed.
func (t *Translator) TranslateFile(ctx context.Context, inPath, outPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return errdefs.Translationf(err, "reading %s", inPath)
	}

	translated, err := t.TranslateText(ctx, string(content))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return errdefs.Translationf(err, "creating directory for %s", outPath)
	}
	if err := os.WriteFile(outPath, []byte(translated), 0644); err != nil {
		return errdefs.Translationf(err, "writing %s", outPath)
	}
	return nil
}

// buildPrompt formats the user message for a translation request.
func buildPrompt(text, lang string) string {
	return fmt.Sprintf("Translate the following text to %s:\n\n%s", langmeta.PromptName(lang), text)
}
