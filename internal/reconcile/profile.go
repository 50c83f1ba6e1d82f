package reconcile

import (
	"sort"

	"github.com/vanderwall-lab/kinoplex/internal/model"
)

// Profile projects a reconciled site list onto a single kinase: every site
// where the kinase scores strictly above zero, sorted descending by score.
// The sort is stable so tied scores keep their original ascending-position
// order. An unknown kinase yields an empty profile, not an error.
func Profile(sites []model.Site, kinase string) []model.ProfileEntry {
	var entries []model.ProfileEntry
	for _, s := range sites {
		score, ok := s.KinaseScores[kinase]
		if !ok || score <= 0 {
			continue
		}
		entries = append(entries, model.ProfileEntry{
			Position:         s.Position,
			Site:             s.Site,
			Residue:          s.Residue,
			Score:            score,
			Phosphocompetent: s.FDR05,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
