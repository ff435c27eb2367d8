package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pemistahl/lingua-go"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// Quality score weights. Documented here because the recommendation
// thresholds in config.yaml are calibrated against them: a missing
// sub-signal contributes the neutral 0.5 instead of failing the score.
const (
	weightLength     = 0.35
	weightExtraction = 0.25
	weightFreshness  = 0.20
	weightLanguage   = 0.20

	// Length signal saturates: half credit at lengthKnee runes, full
	// credit at lengthCap.
	lengthKnee = 2000
	lengthCap  = 10000

	// Extraction below this many runes counts as near-empty.
	minExtractedRunes = 100

	maxKeywords = 10
	wordsPerMin = 200.0
)

// Analyzer runs the analyze stage.
type Analyzer struct {
	extractor Extractor
	detector  lingua.LanguageDetector
	now       func() time.Time
	logger    *slog.Logger
}

// New builds an analyzer. The lingua detector is restricted to the
// languages a bookmark corpus realistically contains; detection over the
// full language set is an order of magnitude slower.
func New(extractor Extractor, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.French, lingua.German,
			lingua.Spanish, lingua.Italian, lingua.Portuguese,
		).
		Build()
	return &Analyzer{
		extractor: extractor,
		detector:  detector,
		now:       time.Now,
		logger:    logger,
	}
}

// Analyze derives features for every downloaded bookmark. Extraction
// failures are contained per bookmark; only a canceled context aborts the
// stage.
func (a *Analyzer) Analyze(ctx context.Context, st *store.Store) error {
	downloaded := st.Where(func(b *models.Bookmark) bool { return b.Status == models.StatusDownloaded })
	a.logger.Info("analyzing content", "count", len(downloaded))

	for _, b := range downloaded {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.analyzeOne(b)
	}
	return nil
}

func (a *Analyzer) analyzeOne(b *models.Bookmark) {
	if b.Content == nil || b.Content.Path == "" {
		b.MarkFailed("analyze", "content unavailable")
		return
	}
	html, err := os.ReadFile(filepath.Clean(b.Content.Path))
	if err != nil {
		b.MarkFailed("analyze", fmt.Sprintf("read content: %v", err))
		return
	}

	ex, err := a.extractor.Extract(b.TargetURL(), html)
	if err != nil {
		// Extraction failure is recoverable: score the page with an empty
		// text so it lands in the report rather than vanishing.
		a.logger.Warn("extraction failed", "url", b.URL, "error", err)
		ex = Extraction{}
	}

	f := &models.Features{
		ExtractedText: ex.Text,
		PublishedAt:   ex.PublishedAt,
		Keywords:      ExtractKeywords(ex.Text, maxKeywords),
	}
	f.WordCount = len(strings.Fields(ex.Text))
	f.ReadingTimeMin = float64(f.WordCount) / wordsPerMin

	langSignal := 0.5
	if lang, conf, ok := a.detectLanguage(ex.Text); ok {
		f.Language = lang
		f.LanguageConfidence = conf
		langSignal = conf
	}

	f.ContentType = classifyContentType(ex.Text, f.WordCount)
	f.QualityScore = a.qualityScore(ex, langSignal)

	if b.Title == "" && ex.Title != "" {
		b.Title = ex.Title
	}
	b.Features = f
	b.Status = models.StatusAnalyzed
}

func (a *Analyzer) detectLanguage(text string) (code string, confidence float64, ok bool) {
	if len(text) < 50 {
		return "", 0, false
	}
	lang, exists := a.detector.DetectLanguageOf(text)
	if !exists {
		return "", 0, false
	}
	conf := a.detector.ComputeLanguageConfidence(text, lang)
	return strings.ToLower(lang.IsoCode639_1().String()), conf, true
}

// qualityScore combines the documented sub-signals. Every sub-signal is
// in [0,1]; missing ones contribute 0.5.
func (a *Analyzer) qualityScore(ex Extraction, langSignal float64) float64 {
	runes := len([]rune(ex.Text))

	var length float64
	switch {
	case runes >= lengthCap:
		length = 1.0
	case runes >= lengthKnee:
		length = 0.5 + 0.5*float64(runes-lengthKnee)/float64(lengthCap-lengthKnee)
	default:
		length = 0.5 * float64(runes) / float64(lengthKnee)
	}

	extraction := 1.0
	if runes < minExtractedRunes {
		extraction = float64(runes) / float64(minExtractedRunes)
	}

	freshness := 0.5
	if ex.PublishedAt != "" {
		if published, err := dateparse.ParseAny(ex.PublishedAt); err == nil {
			ageDays := a.now().Sub(published).Hours() / 24
			switch {
			case ageDays <= 365:
				freshness = 1.0
			case ageDays >= 2190: // six years
				freshness = 0.0
			default:
				freshness = 1.0 - (ageDays-365)/(2190-365)
			}
		}
	}

	score := weightLength*length + weightExtraction*extraction +
		weightFreshness*freshness + weightLanguage*langSignal
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var contentTypePatterns = map[string][]*regexp.Regexp{
	"documentation": compileAll(`documentation`, `tutorial`, `how[\s-]to`, `reference`, `manual`, `\bapi\b`),
	"article":       compileAll(`article`, `blog`, `\bpost\b`, `news`),
	"commercial":    compileAll(`\bbuy\b`, `price`, `offer`, `discount`, `\bsale\b`, `\bshop\b`, `product`),
	"academic":      compileAll(`research`, `study`, `journal`, `paper`, `conference`, `abstract`),
	"forum":         compileAll(`forum`, `thread`, `comment`, `discussion`, `reply`),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// classifyContentType scores pattern hits plus simple structural
// heuristics. Deterministic: equal scores resolve by fixed label order.
func classifyContentType(text string, wordCount int) string {
	if text == "" {
		return "unknown"
	}

	scores := map[string]int{}
	for label, patterns := range contentTypePatterns {
		for _, re := range patterns {
			scores[label] += len(re.FindAllStringIndex(text, -1))
		}
	}
	if wordCount > 1000 {
		scores["article"] += 2
		scores["documentation"]++
	} else if wordCount < 300 {
		scores["commercial"]++
	}

	best, bestScore := "article", 0
	for _, label := range []string{"academic", "documentation", "article", "forum", "commercial"} {
		if scores[label] > bestScore {
			best, bestScore = label, scores[label]
		}
	}
	// A single heuristic point is too weak to override the default.
	if bestScore < 2 {
		return "article"
	}
	return best
}
