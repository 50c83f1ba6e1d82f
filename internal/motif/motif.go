// Package motif extracts local sequence context around phosphorylation
// sites. Kinase recognition is driven by the residues surrounding a site,
// typically about seven on each side, so the window functions here are what
// the site-detail views use to explain specificity.
package motif

// DefaultWindow is the number of residues included on each side of a site.
const DefaultWindow = 7

// Window returns up to 2*window+1 residues centered on the 1-indexed
// position, clipped at the sequence boundaries with no padding. It returns
// an empty string when the position is outside the sequence.
func Window(sequence string, position, window int) string {
	if position < 1 || position > len(sequence) || window < 0 {
		return ""
	}
	center := position - 1
	start := center - window
	if start < 0 {
		start = 0
	}
	end := center + window + 1
	if end > len(sequence) {
		end = len(sequence)
	}
	return sequence[start:end]
}

// ResidueAt returns the residue at the 1-indexed position, with ok=false
// when the position is out of range.
func ResidueAt(sequence string, position int) (byte, bool) {
	if position < 1 || position > len(sequence) {
		return 0, false
	}
	return sequence[position-1], true
}

// CenterIndex returns the index of the site within the string produced by
// Window. The site sits at index window unless clipping at the N-terminus
// pulled it left.
func CenterIndex(position, window int) int {
	if position-1 < window {
		return position - 1
	}
	return window
}
