package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vanderwall-lab/kinoplex/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. This is the
// default backend: the prediction corpus ships as a prebuilt SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	// All access is read-only, so the corpus can be verified at startup:
	// an unreachable or corrupt file fails the process here rather than on
	// the first request.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS phospho_competency (
	id                          INTEGER PRIMARY KEY AUTOINCREMENT,
	uniprot                     TEXT NOT NULL,
	gene_symbol                 TEXT,
	site                        TEXT NOT NULL,
	position                    INTEGER NOT NULL,
	known_positive              INTEGER,
	predicted_prob_raw          REAL,
	predicted_prob_calibrated   REAL,
	predicted_calibrated_fdr_05 INTEGER,
	predicted_calibrated_fdr_02 INTEGER,
	predicted_calibrated_fdr_01 INTEGER
);

CREATE TABLE IF NOT EXISTS st_kinase_specificity (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	uniprot     TEXT NOT NULL,
	gene_symbol TEXT,
	site        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	kinase_data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS y_kinase_specificity (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	uniprot     TEXT NOT NULL,
	gene_symbol TEXT,
	site        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	kinase_data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_phospho_uniprot ON phospho_competency(uniprot);
CREATE INDEX IF NOT EXISTS idx_phospho_gene ON phospho_competency(gene_symbol);
CREATE INDEX IF NOT EXISTS idx_phospho_uniprot_position ON phospho_competency(uniprot, position);
CREATE INDEX IF NOT EXISTS idx_st_uniprot ON st_kinase_specificity(uniprot);
CREATE INDEX IF NOT EXISTS idx_st_gene ON st_kinase_specificity(gene_symbol);
CREATE INDEX IF NOT EXISTS idx_st_uniprot_position ON st_kinase_specificity(uniprot, position);
CREATE INDEX IF NOT EXISTS idx_y_uniprot ON y_kinase_specificity(uniprot);
CREATE INDEX IF NOT EXISTS idx_y_gene ON y_kinase_specificity(gene_symbol);
CREATE INDEX IF NOT EXISTS idx_y_uniprot_position ON y_kinase_specificity(uniprot, position);
`

// Migrate creates the schema when it does not already exist. The offline
// corpus builder normally owns the schema; this keeps empty databases
// queryable and backs the test fixtures.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LookupProtein(ctx context.Context, identifier string) (*model.ProteinKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT DISTINCT uniprot, COALESCE(gene_symbol, '')
		 FROM phospho_competency
		 WHERE uniprot = ? OR gene_symbol = ?
		 LIMIT 1`,
		identifier, identifier,
	)

	var key model.ProteinKey
	err := row.Scan(&key.Accession, &key.GeneSymbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup protein")
	}
	return &key, nil
}

func (s *SQLiteStore) LoadRows(ctx context.Context, accession string) ([]model.CompetencyRow, []model.KinaseScoreRow, []model.KinaseScoreRow, error) {
	competency, err := s.loadCompetency(ctx, accession)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := s.loadKinaseRows(ctx, "st_kinase_specificity", accession)
	if err != nil {
		return nil, nil, nil, err
	}
	y, err := s.loadKinaseRows(ctx, "y_kinase_specificity", accession)
	if err != nil {
		return nil, nil, nil, err
	}
	return competency, st, y, nil
}

func (s *SQLiteStore) loadCompetency(ctx context.Context, accession string) ([]model.CompetencyRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uniprot, COALESCE(gene_symbol, ''), site, position,
		        COALESCE(known_positive, 0),
		        COALESCE(predicted_prob_raw, 0),
		        COALESCE(predicted_prob_calibrated, 0),
		        COALESCE(predicted_calibrated_fdr_05, 0),
		        COALESCE(predicted_calibrated_fdr_02, 0),
		        COALESCE(predicted_calibrated_fdr_01, 0)
		 FROM phospho_competency
		 WHERE uniprot = ?
		 ORDER BY position`,
		accession,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load competency rows")
	}
	defer rows.Close()

	var out []model.CompetencyRow
	for rows.Next() {
		var r model.CompetencyRow
		if err := rows.Scan(
			&r.Accession, &r.GeneSymbol, &r.Site, &r.Position,
			&r.KnownPositive, &r.ProbRaw, &r.ProbCalibrated,
			&r.FDR05, &r.FDR02, &r.FDR01,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan competency row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate competency rows")
}

func (s *SQLiteStore) loadKinaseRows(ctx context.Context, table, accession string) ([]model.KinaseScoreRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uniprot, COALESCE(gene_symbol, ''), site, position, kinase_data
		 FROM `+table+`
		 WHERE uniprot = ?`,
		accession,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load %s rows", table)
	}
	defer rows.Close()

	var out []model.KinaseScoreRow
	for rows.Next() {
		var r model.KinaseScoreRow
		if err := rows.Scan(&r.Accession, &r.GeneSymbol, &r.Site, &r.Position, &r.KinaseData); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s row", table)
		}
		out = append(out, r)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: iterate %s rows", table)
}

func (s *SQLiteStore) SearchProteins(ctx context.Context, query string, limit int) ([]model.ProteinKey, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	pattern := "%" + query + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT uniprot, COALESCE(gene_symbol, '')
		 FROM phospho_competency
		 WHERE uniprot LIKE ? OR gene_symbol LIKE ?
		 ORDER BY gene_symbol
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search proteins")
	}
	defer rows.Close()

	var out []model.ProteinKey
	for rows.Next() {
		var key model.ProteinKey
		if err := rows.Scan(&key.Accession, &key.GeneSymbol); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search row")
		}
		out = append(out, key)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate search rows")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.DatabaseStats, error) {
	var stats model.DatabaseStats

	queries := []struct {
		sql  string
		dest *int
	}{
		{`SELECT COUNT(DISTINCT uniprot) FROM phospho_competency`, &stats.TotalProteins},
		{`SELECT COUNT(*) FROM phospho_competency`, &stats.TotalSites},
		{`SELECT COUNT(*) FROM phospho_competency WHERE known_positive = 1`, &stats.KnownSites},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, eris.Wrap(err, "sqlite: stats")
		}
	}
	return &stats, nil
}
