package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_LookupProtein_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT DISTINCT uniprot, COALESCE\(gene_symbol, ''\)`).
		WithArgs("TP53").
		WillReturnRows(pgxmock.NewRows([]string{"uniprot", "gene_symbol"}).
			AddRow("P04637", "TP53"))

	key, err := s.LookupProtein(context.Background(), "TP53")
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "P04637", key.Accession)
	assert.Equal(t, "TP53", key.GeneSymbol)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupProtein_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT DISTINCT uniprot, COALESCE\(gene_symbol, ''\)`).
		WithArgs("NOPE123").
		WillReturnError(pgx.ErrNoRows)

	key, err := s.LookupProtein(context.Background(), "NOPE123")
	require.NoError(t, err)
	assert.Nil(t, key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM phospho_competency`).
		WithArgs("P04637").
		WillReturnRows(pgxmock.NewRows([]string{
			"uniprot", "gene_symbol", "site", "position",
			"known_positive", "predicted_prob_raw", "predicted_prob_calibrated",
			"predicted_calibrated_fdr_05", "predicted_calibrated_fdr_02", "predicted_calibrated_fdr_01",
		}).
			AddRow("P04637", "TP53", "P04637_6", 6, true, 0.91, 0.85, true, true, true).
			AddRow("P04637", "TP53", "P04637_20", 20, false, 0.40, 0.33, true, false, false))

	mock.ExpectQuery(`FROM st_kinase_specificity`).
		WithArgs("P04637").
		WillReturnRows(pgxmock.NewRows([]string{"uniprot", "gene_symbol", "site", "position", "kinase_data"}).
			AddRow("P04637", "TP53", "P04637_6", 6, `{"CDK2": 97.5}`))

	mock.ExpectQuery(`FROM y_kinase_specificity`).
		WithArgs("P04637").
		WillReturnRows(pgxmock.NewRows([]string{"uniprot", "gene_symbol", "site", "position", "kinase_data"}).
			AddRow("P04637", "TP53", "P04637_20", 20, `{"SRC": 81.2}`))

	competency, stRows, yRows, err := s.LoadRows(context.Background(), "P04637")
	require.NoError(t, err)
	require.Len(t, competency, 2)
	assert.Equal(t, 6, competency[0].Position)
	assert.True(t, competency[0].FDR01)
	require.Len(t, stRows, 1)
	require.Len(t, yRows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchProteins(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE uniprot ILIKE \$1 OR gene_symbol ILIKE \$1`).
		WithArgs("%TP5%", 50).
		WillReturnRows(pgxmock.NewRows([]string{"uniprot", "gene_symbol"}).
			AddRow("P04637", "TP53").
			AddRow("P04638", "TP53BP2"))

	keys, err := s.SearchProteins(context.Background(), "TP5", 0)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "P04637", keys[0].Accession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(DISTINCT uniprot\) FROM phospho_competency`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM phospho_competency$`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(340))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM phospho_competency WHERE known_positive`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(55))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalProteins)
	assert.Equal(t, 340, stats.TotalSites)
	assert.Equal(t, 55, stats.KnownSites)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS phospho_competency`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
