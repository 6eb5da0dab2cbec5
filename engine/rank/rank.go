// Package rank scores harvested posts by an engagement heuristic, assigns
// posts to categories by keyword weight, and truncates ranked output to the
// configured content budget.
package rank

import (
	"sort"
	"strings"

	"github.com/eforeli/XWebNews/engine/domain"
)

// Engagement weights. Reshares count double because amplification signals
// reach; replies count half. Quotes are not weighted. Downstream reports
// depend on these exact values.
const (
	likeWeight    = 1.0
	reshareWeight = 2.0
	replyWeight   = 0.5
)

// Score computes the engagement score for a set of metric counts.
func Score(m domain.Metrics) float64 {
	return float64(m.Likes)*likeWeight +
		float64(m.Reshares)*reshareWeight +
		float64(m.Replies)*replyWeight
}

// Keyword match weights for classification.
const (
	primaryPoints = 3
	relatedPoints = 1
)

// Classifier assigns posts to the best-matching category by keyword weight.
// Only the hybrid mode, where one fetch must be split across every category,
// needs it.
type Classifier struct {
	order    []domain.Category
	keywords map[domain.Category]domain.KeywordSet
	fallback domain.Category
}

// NewClassifier builds a Classifier. The order slice fixes the deterministic
// tie-break: when two categories score equally, the one earlier in order wins.
func NewClassifier(order []domain.Category, keywords map[domain.Category]domain.KeywordSet, fallback domain.Category) *Classifier {
	return &Classifier{order: order, keywords: keywords, fallback: fallback}
}

// Classify returns the category whose keywords best match text. Primary
// keywords score 3 points, related keywords 1 point, matched case-insensitively
// as substrings. With no match at all the fallback category is returned.
func (c *Classifier) Classify(text string) domain.Category {
	lower := strings.ToLower(text)

	best := c.fallback
	bestScore := 0
	for _, cat := range c.order {
		ks := c.keywords[cat]
		score := 0
		for _, kw := range ks.Primary {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score += primaryPoints
			}
		}
		for _, kw := range ks.Related {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score += relatedPoints
			}
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}
	return best
}

// Rank fills in each item's score, groups items by category, sorts every
// group by descending score, and truncates to perCategoryLimit. The sort is
// stable: equal scores keep their input order.
func Rank(items []domain.HarvestItem, perCategoryLimit int) map[domain.Category][]domain.HarvestItem {
	grouped := make(map[domain.Category][]domain.HarvestItem)
	for _, item := range items {
		item.Score = Score(item.Metrics)
		grouped[item.Category] = append(grouped[item.Category], item)
	}

	for cat, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Score > group[j].Score
		})
		if perCategoryLimit > 0 && len(group) > perCategoryLimit {
			group = group[:perCategoryLimit]
		}
		grouped[cat] = group
	}
	return grouped
}
