package pipeline

import (
	"sort"
	"strings"

	"github.com/phrazzld/scry-cards/internal/domain"
)

// DefaultSubtopic collects cards without a subtopic.
const DefaultSubtopic = "General"

// GroupBySubtopic buckets cards by subtopic, case-insensitively. Each group
// is named after the first casing seen and groups are sorted by name
// ignoring case. Cards keep their input order. Regrouping the concatenated
// output yields the same groups.
func GroupBySubtopic(cards []domain.GeneratedFlashcard) []domain.SubdeckGroup {
	index := make(map[string]int)
	groups := make([]domain.SubdeckGroup, 0)

	for _, card := range cards {
		name := strings.TrimSpace(card.Subtopic)
		if name == "" {
			name = DefaultSubtopic
		}
		key := strings.ToLower(name)

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, domain.SubdeckGroup{Subtopic: name})
		}
		groups[i].Flashcards = append(groups[i].Flashcards, card)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		x, y := groups[a].Subtopic, groups[b].Subtopic
		if lx, ly := strings.ToLower(x), strings.ToLower(y); lx != ly {
			return lx < ly
		}
		return x < y
	})
	return groups
}
