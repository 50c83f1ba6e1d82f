// Package reconcile merges the three stored prediction tables into unified
// per-site records. Competency rows carry the probabilities and FDR flags;
// the two kinase-specificity tables carry percentile score maps keyed by
// position. Reconciliation attaches the right score map to each site and
// infers the residue identity, preferring the actual sequence when one is
// available.
package reconcile

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vanderwall-lab/kinoplex/internal/model"
	"github.com/vanderwall-lab/kinoplex/internal/motif"
)

// DecodeScores parses a stored kinase_data payload into a kinase-name to
// percentile map. Values are coerced to float64; the loader occasionally
// emits numeric strings, so those are accepted too.
func DecodeScores(payload string) (map[string]float64, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, eris.Wrap(err, "reconcile: decode kinase data")
	}
	scores := make(map[string]float64, len(raw))
	for kinase, v := range raw {
		switch val := v.(type) {
		case float64:
			scores[kinase] = val
		case string:
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "reconcile: non-numeric score for %s", kinase)
			}
			scores[kinase] = f
		default:
			return nil, eris.Errorf("reconcile: non-numeric score for %s", kinase)
		}
	}
	return scores, nil
}

// scoreIndex maps position to decoded kinase scores for one specificity
// table. Rows with unparseable payloads are logged and skipped so a single
// bad row cannot abort reconciliation of the whole protein.
func scoreIndex(table string, rows []model.KinaseScoreRow) map[int]map[string]float64 {
	idx := make(map[int]map[string]float64, len(rows))
	for _, row := range rows {
		scores, err := DecodeScores(row.KinaseData)
		if err != nil {
			zap.L().Warn("skipping malformed kinase row",
				zap.String("table", table),
				zap.String("accession", row.Accession),
				zap.Int("position", row.Position),
				zap.Error(err),
			)
			continue
		}
		idx[row.Position] = scores
	}
	return idx
}

// tyrosineKinases is the allow-list used by the last-resort residue guess:
// a high percentile for any of these suggests a tyrosine site.
var tyrosineKinases = []string{"ABL", "SRC", "FYN", "LCK", "SYK", "JAK", "EGFR", "PDGFR"}

// residueFromSequence reads the residue at the site's 1-indexed position.
// Only a phosphorylatable residue is trusted; anything else falls through
// to the table-membership stages.
func residueFromSequence(sequence string, position int) (model.Residue, bool) {
	b, ok := motif.ResidueAt(sequence, position)
	if !ok {
		return "", false
	}
	r := model.Residue(b)
	if !r.Phosphorylatable() {
		return "", false
	}
	return r, true
}

// residueFromTables infers the residue from which specificity table holds
// the position. The S/T table does not distinguish serine from threonine,
// so membership there reports serine (accepted information loss).
func residueFromTables(position int, st, y map[int]map[string]float64) (model.Residue, bool) {
	if _, ok := st[position]; ok {
		return model.ResidueSerine, true
	}
	if _, ok := y[position]; ok {
		return model.ResidueTyrosine, true
	}
	return "", false
}

// residueFromScores guesses tyrosine when any known tyrosine kinase scores
// above 50 in the attached map. This stage only runs when neither table
// held the position, which leaves the score map empty, so in practice it
// never fires; it is kept to preserve the documented fallback chain.
func residueFromScores(scores map[string]float64) (model.Residue, bool) {
	var max float64
	for _, tk := range tyrosineKinases {
		if s, ok := scores[tk]; ok && s > max {
			max = s
		}
	}
	if max > 50 {
		return model.ResidueTyrosine, true
	}
	return "", false
}

// BuildSites merges the three row sets for one protein into site records.
// It is a pure function of its inputs: exactly one record is emitted per
// competency row, in the given row order. sequence may be empty when no
// annotation is available.
func BuildSites(competency []model.CompetencyRow, st, y []model.KinaseScoreRow, sequence string) []model.Site {
	stIdx := scoreIndex("st_kinase_specificity", st)
	yIdx := scoreIndex("y_kinase_specificity", y)

	sites := make([]model.Site, 0, len(competency))
	for _, row := range competency {
		scores := map[string]float64{}
		if m, ok := stIdx[row.Position]; ok {
			scores = m
		} else if m, ok := yIdx[row.Position]; ok {
			scores = m
		}

		// Ordered fallback chain: sequence wins over table membership,
		// which wins over the tyrosine-score guess, which wins over the
		// serine default.
		residue := model.ResidueSerine
		if r, ok := residueFromSequence(sequence, row.Position); ok {
			residue = r
		} else if r, ok := residueFromTables(row.Position, stIdx, yIdx); ok {
			residue = r
		} else if r, ok := residueFromScores(scores); ok {
			residue = r
		}

		sites = append(sites, model.Site{
			Position:       row.Position,
			Site:           row.Site,
			Residue:        residue,
			ProbRaw:        row.ProbRaw,
			ProbCalibrated: row.ProbCalibrated,
			KnownPositive:  row.KnownPositive,
			FDR05:          row.FDR05,
			FDR02:          row.FDR02,
			FDR01:          row.FDR01,
			KinaseScores:   scores,
		})
	}
	return sites
}

// ComputeStats aggregates a reconciled site list.
func ComputeStats(sites []model.Site) model.SiteStats {
	stats := model.SiteStats{TotalSites: len(sites)}
	for _, s := range sites {
		if s.FDR01 {
			stats.HighConfidence++
		}
		if s.FDR02 {
			stats.MedConfidence++
		}
		if s.KnownPositive {
			stats.KnownPositive++
		}
		if s.Position > stats.MaxPosition {
			stats.MaxPosition = s.Position
		}
	}
	return stats
}
