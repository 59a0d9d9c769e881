// Package duplicate flags near-duplicate posts against the published corpus.
package duplicate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/normalize"
	"github.com/ProtheticGlitch/Enterra/internal/similarity"
)

// Weights of the two signals in CheckDuplicate.
const (
	TitleWeight = 0.6
	TextWeight  = 0.4
)

// Default thresholds.
const (
	DefaultSimilarThreshold = 0.70
	DefaultCheckThreshold   = 0.85
)

// Corpus supplies the published posts to compare against, oldest first,
// leaving out excludeID.
type Corpus interface {
	ListPublishedCorpus(ctx context.Context, excludeID string) ([]*domain.Post, error)
}

// Match is a corpus post with its similarity score.
type Match struct {
	Post  *domain.Post `json:"post"`
	Score float64      `json:"score"`
}

// Detector scores candidate posts against a corpus.
type Detector struct {
	corpus Corpus
	logger *slog.Logger
}

// NewDetector creates a detector over corpus.
func NewDetector(corpus Corpus, logger *slog.Logger) *Detector {
	return &Detector{corpus: corpus, logger: logger}
}

// FindSimilar returns every published post other than excludeID whose
// combined title and body scores at least threshold, best first.
func (d *Detector) FindSimilar(ctx context.Context, excludeID, title, body string, threshold float64) ([]Match, error) {
	if title == "" && body == "" {
		return []Match{}, nil
	}

	posts, err := d.corpus.ListPublishedCorpus(ctx, excludeID)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	text := title + " " + body
	matches := []Match{}
	for _, p := range posts {
		score := similarity.Ratio(text, p.CombinedText())
		if score >= threshold {
			matches = append(matches, Match{Post: p, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

// CheckDuplicate returns the best-scoring published post other than
// excludeID, or nil when none reaches threshold. The score weighs title
// similarity at 0.6 and normalized full-text similarity at 0.4. On equal
// scores the older post wins.
func (d *Detector) CheckDuplicate(ctx context.Context, excludeID, title, body string, threshold float64) (*Match, error) {
	if title == "" && body == "" {
		return nil, nil
	}

	posts, err := d.corpus.ListPublishedCorpus(ctx, excludeID)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	text := normalize.Text(title) + " " + normalize.Text(body)

	var best *Match
	for _, p := range posts {
		score := Score(title, text, p)
		if score < threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{Post: p, Score: score}
		}
	}

	if best != nil {
		d.logger.Debug("duplicate candidate found",
			"post_id", best.Post.ID,
			"exclude_id", excludeID,
			"score", best.Score,
		)
	}
	return best, nil
}

// Score is the weighted duplicate score of a candidate against p. text is
// the candidate's normalized title and body joined by a space.
func Score(title, text string, p *domain.Post) float64 {
	var titleSim float64
	if title != "" && p.Title != "" {
		titleSim = similarity.Ratio(title, p.Title)
	}
	textSim := similarity.Ratio(text, normalize.Text(p.Title)+" "+normalize.Text(p.Body))
	return TitleWeight*titleSim + TextWeight*textSim
}

// Severity grades a match for display: "danger" at or above dangerAt,
// "warning" otherwise.
func Severity(score, dangerAt float64) string {
	if score >= dangerAt {
		return "danger"
	}
	return "warning"
}
