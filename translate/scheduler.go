package translate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/transflow/transflow/errdefs"
)

// SplitDelimiter joins batched unit texts into one provider request.
// The provider is instructed to echo it back unmodified between
// translated segments; it is not a string expected to occur in prose.
const SplitDelimiter = "\n\n---SPLIT---\n\n"

// DefaultBatchSize bounds how many units share one provider request.
const DefaultBatchSize = 10

const (
	batchSystemPrompt = "You are a professional translator. Translate the given text accurately " +
		"while preserving the ---SPLIT--- markers exactly as they appear."
	singleSystemPrompt = "You are a professional translator. Translate the given text accurately " +
		"while preserving formatting and tone."
)

// Completer issues one request to the translation provider.
// Implemented by llm.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Scheduler groups translatable units into bounded batches, sends each
// batch as one delimiter-joined provider request, and demultiplexes
// the response. A batch whose response does not split back into the
// expected number of segments is re-translated one unit at a time;
// partial results from a mismatched response are never accepted.
// Batches run sequentially to bound outstanding provider requests.
type Scheduler struct {
	completer Completer
	batchSize int
	log       *slog.Logger
}

// NewScheduler builds a Scheduler. batchSize <= 0 selects
// DefaultBatchSize.
func NewScheduler(completer Completer, batchSize int, log *slog.Logger) *Scheduler {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{completer: completer, batchSize: batchSize, log: log}
}

// TranslateUnits translates all units into lang and returns a mapping
// from original flattened text to translated text. Duplicate original
// texts share one entry. Whitespace-only units never reach the
// provider and get no entry: the rebuilder leaves their blocks
// unchanged.
func (s *Scheduler) TranslateUnits(ctx context.Context, units []Unit, lang string) (map[string]string, error) {
	translations := make(map[string]string)

	for start := 0; start < len(units); start += s.batchSize {
		end := start + s.batchSize
		if end > len(units) {
			end = len(units)
		}
		batch := units[start:end]
		s.log.Debug("translating batch", "batch", start/s.batchSize+1, "units", len(batch))

		if err := s.translateBatch(ctx, batch, lang, translations); err != nil {
			return nil, err
		}
	}
	return translations, nil
}

func (s *Scheduler) translateBatch(ctx context.Context, batch []Unit, lang string, translations map[string]string) error {
	nonEmpty := batch[:0:0]
	for _, u := range batch {
		if strings.TrimSpace(u.Text) != "" {
			nonEmpty = append(nonEmpty, u)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}

	texts := make([]string, len(nonEmpty))
	for i, u := range nonEmpty {
		texts[i] = u.Text
	}
	joined := strings.Join(texts, SplitDelimiter)

	resp, err := s.completer.Complete(ctx, batchSystemPrompt, buildPrompt(joined, lang))
	if err != nil {
		s.log.Warn("batch request failed, falling back to per-unit translation", "error", err)
		return s.fallback(ctx, nonEmpty, lang, translations)
	}

	segments := strings.Split(strings.TrimSpace(resp), SplitDelimiter)
	if len(segments) != len(nonEmpty) {
		s.log.Warn("translation split mismatch, falling back to per-unit translation",
			"expected", len(nonEmpty), "got", len(segments))
		return s.fallback(ctx, nonEmpty, lang, translations)
	}

	for i, u := range nonEmpty {
		translations[u.Text] = strings.TrimSpace(segments[i])
	}
	return nil
}

// fallback re-translates every unit of a failed batch individually.
// The whole batch is retried, not just an unmatched remainder: a
// corrupted delimiter leaves no way to tell which segments paired
// correctly. A provider failure here is a hard error for the run.
func (s *Scheduler) fallback(ctx context.Context, units []Unit, lang string, translations map[string]string) error {
	for _, u := range units {
		resp, err := s.completer.Complete(ctx, singleSystemPrompt, buildPrompt(u.Text, lang))
		if err != nil {
			return errdefs.Translationf(err, "fallback translation of unit %d failed", u.Index)
		}
		translations[u.Text] = strings.TrimSpace(resp)
	}
	return nil
}
