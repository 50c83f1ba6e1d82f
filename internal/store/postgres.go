package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vanderwall-lab/kinoplex/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies the
// same interface, which is what the unit tests rely on.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool, for deployments that load
// the prediction corpus into a shared Postgres instance instead of the
// bundled SQLite file.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool. The pool is
// pinged before use: an unreachable database is fatal at startup.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS phospho_competency (
	id                          BIGSERIAL PRIMARY KEY,
	uniprot                     TEXT NOT NULL,
	gene_symbol                 TEXT,
	site                        TEXT NOT NULL,
	position                    INTEGER NOT NULL,
	known_positive              BOOLEAN,
	predicted_prob_raw          DOUBLE PRECISION,
	predicted_prob_calibrated   DOUBLE PRECISION,
	predicted_calibrated_fdr_05 BOOLEAN,
	predicted_calibrated_fdr_02 BOOLEAN,
	predicted_calibrated_fdr_01 BOOLEAN
);

CREATE TABLE IF NOT EXISTS st_kinase_specificity (
	id          BIGSERIAL PRIMARY KEY,
	uniprot     TEXT NOT NULL,
	gene_symbol TEXT,
	site        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	kinase_data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS y_kinase_specificity (
	id          BIGSERIAL PRIMARY KEY,
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) LookupProtein(ctx context.Context, identifier string) (*model.ProteinKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT DISTINCT uniprot, COALESCE(gene_symbol, '')
		 FROM phospho_competency
		 WHERE uniprot = $1 OR gene_symbol = $1
		 LIMIT 1`,
		identifier,
	)

	var key model.ProteinKey
	err := row.Scan(&key.Accession, &key.GeneSymbol)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup protein")
	}
	return &key, nil
}

func (s *PostgresStore) LoadRows(ctx context.Context, accession string) ([]model.CompetencyRow, []model.KinaseScoreRow, []model.KinaseScoreRow, error) {
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

func (s *PostgresStore) loadCompetency(ctx context.Context, accession string) ([]model.CompetencyRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT uniprot, COALESCE(gene_symbol, ''), site, position,
		        COALESCE(known_positive, false),
		        COALESCE(predicted_prob_raw, 0),
		        COALESCE(predicted_prob_calibrated, 0),
		        COALESCE(predicted_calibrated_fdr_05, false),
		        COALESCE(predicted_calibrated_fdr_02, false),
		        COALESCE(predicted_calibrated_fdr_01, false)
		 FROM phospho_competency
		 WHERE uniprot = $1
		 ORDER BY position`,
		accession,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load competency rows")
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
			return nil, eris.Wrap(err, "postgres: scan competency row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate competency rows")
}

func (s *PostgresStore) loadKinaseRows(ctx context.Context, table, accession string) ([]model.KinaseScoreRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT uniprot, COALESCE(gene_symbol, ''), site, position, kinase_data
		 FROM `+table+`
		 WHERE uniprot = $1`,
		accession,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load %s rows", table)
	}
	defer rows.Close()

	var out []model.KinaseScoreRow
	for rows.Next() {
		var r model.KinaseScoreRow
		if err := rows.Scan(&r.Accession, &r.GeneSymbol, &r.Site, &r.Position, &r.KinaseData); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s row", table)
		}
		out = append(out, r)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: iterate %s rows", table)
}

func (s *PostgresStore) SearchProteins(ctx context.Context, query string, limit int) ([]model.ProteinKey, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	pattern := "%" + query + "%"

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT uniprot, COALESCE(gene_symbol, '')
		 FROM phospho_competency
		 WHERE uniprot ILIKE $1 OR gene_symbol ILIKE $1
		 ORDER BY 2
		 LIMIT $2`,
		pattern, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search proteins")
	}
	defer rows.Close()

	var out []model.ProteinKey
	for rows.Next() {
		var key model.ProteinKey
		if err := rows.Scan(&key.Accession, &key.GeneSymbol); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search row")
		}
		out = append(out, key)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate search rows")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.DatabaseStats, error) {
	var stats model.DatabaseStats

	queries := []struct {
		sql  string
		dest *int
	}{
		{`SELECT COUNT(DISTINCT uniprot) FROM phospho_competency`, &stats.TotalProteins},
		{`SELECT COUNT(*) FROM phospho_competency`, &stats.TotalSites},
		{`SELECT COUNT(*) FROM phospho_competency WHERE known_positive`, &stats.KnownSites},
	}
	for _, q := range queries {
		if err := s.pool.QueryRow(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, eris.Wrap(err, "postgres: stats")
		}
	}
	return &stats, nil
}
