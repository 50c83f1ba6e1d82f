// Package model defines the shared domain types for phosphorylation-site
// predictions and kinase specificity scores.
package model

// Residue identifies a phosphorylatable amino acid.
type Residue string

const (
	ResidueSerine    Residue = "S"
	ResidueThreonine Residue = "T"
	ResidueTyrosine  Residue = "Y"
)

// Phosphorylatable reports whether r is one of the three residues a kinase
// can target.
func (r Residue) Phosphorylatable() bool {
	return r == ResidueSerine || r == ResidueThreonine || r == ResidueTyrosine
}

// ProteinKey identifies one protein in the prediction corpus. Accession is
// the canonical join key across tables; GeneSymbol may be empty.
type ProteinKey struct {
	Accession  string `json:"uniprot"`
	GeneSymbol string `json:"gene_symbol"`
}

// Display returns the human-facing label used in search suggestions.
func (k ProteinKey) Display() string {
	if k.GeneSymbol == "" {
		return k.Accession
	}
	return k.GeneSymbol + " (" + k.Accession + ")"
}

// CompetencyRow is one stored phospho-competency prediction. Positions are
// 1-indexed and unique per accession. The three FDR flags are independent
// booleans: upstream data is expected to nest them (fdr_01 implies fdr_02
// implies fdr_05) but does not guarantee it, so they are never collapsed
// into a single level.
type CompetencyRow struct {
	Accession      string
	GeneSymbol     string
	Site           string
	Position       int
	KnownPositive  bool
	ProbRaw        float64
	ProbCalibrated float64
	FDR05          bool
	FDR02          bool
	FDR01          bool
}

// KinaseScoreRow is one stored row from either kinase-specificity table.
// KinaseData holds the serialized kinase-name to percentile mapping.
type KinaseScoreRow struct {
	Accession  string
	GeneSymbol string
	Site       string
	Position   int
	KinaseData string
}

// Site is the reconciled per-site record exposed to callers. It joins a
// competency row with whichever kinase table (if any) covers the position,
// plus the inferred residue identity.
type Site struct {
	Position       int                `json:"position"`
	Site           string             `json:"site_id"`
	Residue        Residue            `json:"residue"`
	ProbRaw        float64            `json:"probability_raw"`
	ProbCalibrated float64            `json:"probability_calibrated"`
	KnownPositive  bool               `json:"known_positive"`
	FDR05          bool               `json:"fdr_05"`
	FDR02          bool               `json:"fdr_02"`
	FDR01          bool               `json:"fdr_01"`
	KinaseScores   map[string]float64 `json:"kinase_scores"`
}

// SiteStats aggregates a reconciled site list.
type SiteStats struct {
	TotalSites     int `json:"total_sites"`
	HighConfidence int `json:"high_confidence_sites"`   // fdr_01
	MedConfidence  int `json:"medium_confidence_sites"` // fdr_02
	KnownPositive  int `json:"known_positive_sites"`
	MaxPosition    int `json:"max_position"`
}

// DatabaseStats aggregates the full stored corpus.
type DatabaseStats struct {
	TotalProteins int `json:"total_proteins"`
	TotalSites    int `json:"total_sites"`
	KnownSites    int `json:"known_sites"`
}

// ProfileEntry is one site in a single-kinase activity profile.
type ProfileEntry struct {
	Position         int     `json:"position"`
	Site             string  `json:"site"`
	Residue          Residue `json:"residue"`
	Score            float64 `json:"score"`
	Phosphocompetent bool    `json:"phosphocompetent"` // passes the 5% FDR threshold
}
