// Package store provides read-only access to the prediction corpus. The
// corpus is built offline from columnar prediction files; this layer only
// issues indexed SELECTs against the resulting tables.
package store

import (
	"context"

	"github.com/vanderwall-lab/kinoplex/internal/model"
)

// DefaultSearchLimit caps search results when the caller does not specify
// a limit.
const DefaultSearchLimit = 50

// Store defines the lookup operations over the prediction tables. A
// missing identifier is a normal not-found result (nil, nil), never an
// error; only connectivity problems surface as errors.
type Store interface {
	// LookupProtein matches an identifier exactly against accession or
	// gene symbol and returns the first hit.
	LookupProtein(ctx context.Context, identifier string) (*model.ProteinKey, error)

	// LoadRows returns the three raw row sets for an accession: the
	// competency rows ordered by position ascending, and the rows from
	// the S/T and Y kinase-specificity tables in storage order.
	LoadRows(ctx context.Context, accession string) (competency []model.CompetencyRow, st, y []model.KinaseScoreRow, err error)

	// SearchProteins returns distinct proteins whose accession or gene
	// symbol contains the query substring, ordered by gene symbol, capped
	// at limit (DefaultSearchLimit when limit <= 0). Callers are expected
	// to gate queries shorter than two characters.
	SearchProteins(ctx context.Context, query string, limit int) ([]model.ProteinKey, error)

	// Stats returns aggregate counts over the full corpus.
	Stats(ctx context.Context) (*model.DatabaseStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
