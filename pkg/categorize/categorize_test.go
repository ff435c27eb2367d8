package categorize

import (
	"context"
	"testing"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

func TestAssign(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		title    string
		features *models.Features
		want     string
	}{
		{
			name:     "nil features",
			url:      "https://example.com/",
			features: nil,
			want:     Uncategorized,
		},
		{
			name:  "development keywords",
			url:   "https://blog.example.com/posts/go",
			title: "Understanding goroutines",
			features: &models.Features{
				Keywords:    []string{"golang", "programming", "developer", "api"},
				ContentType: "article",
			},
			want: "tech/development",
		},
		{
			name:     "github domain alone",
			url:      "https://github.com/urfave/cli",
			title:    "urfave/cli",
			features: &models.Features{ContentType: "documentation"},
			want:     "tech/development",
		},
		{
			name:  "science by domain and keywords",
			url:   "https://arxiv.org/abs/2101.00001",
			title: "A study of something",
			features: &models.Features{
				Keywords:    []string{"research", "physics", "experiment"},
				ContentType: "academic",
			},
			want: "science/research",
		},
		{
			name:  "cooking",
			url:   "https://example.com/blog",
			title: "My favorite recipe",
			features: &models.Features{
				Keywords: []string{"recipe", "cooking", "ingredient", "dessert"},
			},
			want: "food/cooking",
		},
		{
			name:     "no signal",
			url:      "https://example.com/misc",
			title:    "untitled",
			features: &models.Features{ContentType: "article"},
			want:     Uncategorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Assign(tt.features, tt.url, tt.title); got != tt.want {
				t.Errorf("Assign() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssign_Deterministic(t *testing.T) {
	f := &models.Features{
		Keywords:    []string{"programming", "tutorial", "course", "python"},
		ContentType: "documentation",
	}
	first := Assign(f, "https://example.com/learn", "Python course")
	for i := 0; i < 20; i++ {
		if got := Assign(f, "https://example.com/learn", "Python course"); got != first {
			t.Fatalf("run %d: Assign() = %q, want %q", i, got, first)
		}
	}
}

func TestCategorize_AdvancesStatus(t *testing.T) {
	st := store.New()
	st.Add(&models.Bookmark{
		ID:       "aaa",
		URL:      "https://github.com/example/repo",
		Title:    "example repo",
		Status:   models.StatusAnalyzed,
		Features: &models.Features{Keywords: []string{"code", "golang"}},
	})
	st.Add(&models.Bookmark{
		ID:     "bbb",
		URL:    "https://dead.example.com/",
		Status: models.StatusFailed,
	})

	if err := New(nil).Categorize(context.Background(), st); err != nil {
		t.Fatalf("Categorize() failed: %v", err)
	}

	a := st.Get("aaa")
	if a.Status != models.StatusCategorized {
		t.Errorf("status = %q, want categorized", a.Status)
	}
	if a.Category == "" {
		t.Error("category not assigned")
	}

	b := st.Get("bbb")
	if b.Status != models.StatusFailed {
		t.Errorf("failed bookmark status = %q, must stay failed", b.Status)
	}
	if b.Category != "" {
		t.Errorf("failed bookmark got category %q", b.Category)
	}
}
