// Package categorize assigns each bookmark a topical category from its
// features. Assignment is a pure function of (keywords, content type,
// domain) so identical features always yield identical categories.
package categorize

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// Uncategorized is assigned when no rule scores; categories are never
// null so grouping code never branches on absence.
const Uncategorized = "uncategorized"

type rule struct {
	name        string
	keywords    []string
	domains     []string
	contentType string
}

// Rules are evaluated in this fixed order; the first highest-scoring rule
// wins, which keeps assignment deterministic across runs.
var rules = []rule{
	{
		name: "tech/development",
		keywords: []string{
			"programming", "code", "developer", "software", "github", "api",
			"python", "javascript", "java", "framework", "database", "sql",
			"cloud", "devops", "docker", "kubernetes", "linux", "server",
			"algorithm", "compiler", "golang", "rust",
		},
		domains:     []string{"github.com", "stackoverflow.com", "gitlab.com"},
		contentType: "documentation",
	},
	{
		name: "news/media",
		keywords: []string{
			"news", "breaking", "headline", "politics", "economy", "report",
			"journalist", "media", "press",
		},
		domains: []string{"bbc.com", "cnn.com", "reuters.com", "lemonde.fr", "nytimes.com"},
	},
	{
		name: "science/research",
		keywords: []string{
			"science", "research", "study", "paper", "academic", "physics",
			"chemistry", "biology", "mathematics", "experiment", "university",
			"thesis", "statistics",
		},
		domains:     []string{"arxiv.org", "doi.org", "nature.com", "researchgate.net"},
		contentType: "academic",
	},
	{
		name: "arts/culture",
		keywords: []string{
			"art", "culture", "museum", "gallery", "painting", "literature",
			"poetry", "novel", "music", "film", "cinema", "theatre", "design",
		},
	},
	{
		name: "shopping",
		keywords: []string{
			"shop", "store", "product", "price", "discount", "sale", "buy",
			"purchase", "retail", "brand", "shipping",
		},
		domains:     []string{"amazon.com", "ebay.com", "etsy.com"},
		contentType: "commercial",
	},
	{
		name: "social",
		keywords: []string{
			"social", "facebook", "twitter", "instagram", "reddit", "profile",
			"follow", "community", "viral",
		},
		domains: []string{"facebook.com", "twitter.com", "x.com", "reddit.com", "instagram.com"},
	},
	{
		name: "education",
		keywords: []string{
			"education", "learning", "course", "tutorial", "lesson", "school",
			"student", "teacher", "lecture", "curriculum", "exam", "mooc",
		},
		domains: []string{"coursera.org", "udemy.com", "edx.org", "khanacademy.org"},
	},
	{
		name: "health/wellness",
		keywords: []string{
			"health", "wellness", "medical", "doctor", "medicine", "fitness",
			"exercise", "diet", "nutrition", "therapy", "meditation", "vitamin",
		},
	},
	{
		name: "travel",
		keywords: []string{
			"travel", "tourism", "vacation", "flight", "hotel", "booking",
			"destination", "tourist", "sightseeing", "passport",
		},
	},
	{
		name: "food/cooking",
		keywords: []string{
			"food", "recipe", "cooking", "cuisine", "chef", "restaurant",
			"ingredient", "meal", "baking", "dessert", "culinary",
		},
	},
	{
		name: "entertainment",
		keywords: []string{
			"entertainment", "game", "gaming", "movie", "television", "series",
			"stream", "netflix", "spotify", "podcast", "festival", "concert",
		},
		domains: []string{"youtube.com", "netflix.com", "twitch.tv"},
	},
	{
		name: "finance",
		keywords: []string{
			"finance", "economy", "money", "investment", "stock", "trading",
			"bank", "loan", "mortgage", "credit", "tax", "budget", "insurance",
			"startup",
		},
	},
}

// Categorizer runs the categorize stage.
type Categorizer struct {
	logger *slog.Logger
}

// New builds a categorizer.
func New(logger *slog.Logger) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Categorizer{logger: logger}
}

// Categorize assigns a category to every analyzed bookmark.
func (c *Categorizer) Categorize(ctx context.Context, st *store.Store) error {
	analyzed := st.Where(func(b *models.Bookmark) bool { return b.Status == models.StatusAnalyzed })
	c.logger.Info("categorizing bookmarks", "count", len(analyzed))

	counts := map[string]int{}
	for _, b := range analyzed {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.Category = Assign(b.Features, b.URL, b.Title)
		b.Status = models.StatusCategorized
		counts[b.Category]++
	}
	c.logger.Info("categorization complete", "categories", len(counts))
	return nil
}

// Assign picks the category for one feature set. Exported so golden-output
// tests can call it directly.
func Assign(f *models.Features, rawURL, title string) string {
	if f == nil {
		return Uncategorized
	}

	tokens := tokenSet(f, rawURL, title)
	domain := ""
	if u, err := url.Parse(rawURL); err == nil {
		domain = strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	}

	best, bestScore := Uncategorized, 0
	for _, r := range rules {
		score := 0
		for _, kw := range r.keywords {
			if _, ok := tokens[kw]; ok {
				score += 2
			}
		}
		for _, d := range r.domains {
			if domain == d || strings.HasSuffix(domain, "."+d) {
				score += 5
			}
		}
		if r.contentType != "" && r.contentType == f.ContentType {
			score++
		}
		// Strictly-greater keeps the earlier rule on ties.
		if score > bestScore {
			best, bestScore = r.name, score
		}
	}
	if bestScore < 2 {
		return Uncategorized
	}
	return best
}

// tokenSet gathers the whole words visible for keyword matching: title
// words, extracted keywords, and the URL's host and path segments.
// Matching on whole tokens keeps "art" from firing on "article".
func tokenSet(f *models.Features, rawURL, title string) map[string]struct{} {
	out := make(map[string]struct{})
	add := func(s string) {
		for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}) {
			out[tok] = struct{}{}
		}
	}
	add(title)
	for _, kw := range f.Keywords {
		add(kw)
	}
	if u, err := url.Parse(rawURL); err == nil {
		add(u.Hostname())
		add(u.Path)
	}
	return out
}
