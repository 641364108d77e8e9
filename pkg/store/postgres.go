package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matzehuels/skillindex/pkg/skill"
)

//go:embed schema.sql
var postgresSchema string

// PostgresStore stores records in the skills table, upserting on repo_url.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pgx pool and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := ping(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, urls []string) (map[string]skill.Record, error) {
	out := make(map[string]skill.Record)
	urls = dedupURLs(urls)
	if len(urls) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT repo_url, name, description, author, quality_score, trust_tier,
		       tags, categories, stars, installable, last_indexed_at
		FROM skills
		WHERE repo_url = ANY($1)
	`, urls)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec        skill.Record
			tier       string
			categories []string
		)
		if err := rows.Scan(&rec.RepoURL, &rec.Name, &rec.Description, &rec.Author, &rec.QualityScore, &tier,
			&rec.Tags, &categories, &rec.Stars, &rec.Installable, &rec.LastIndexedAt); err != nil {
			return nil, err
		}
		rec.TrustTier = skill.Tier(tier)
		rec.Categories = toCategories(categories)
		out[rec.RepoURL] = rec
	}
	return out, rows.Err()
}

func (s *PostgresStore) Upsert(ctx context.Context, rec skill.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO skills (repo_url, name, description, author, quality_score, trust_tier,
		                    tags, categories, stars, installable, last_indexed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (repo_url) DO UPDATE SET
		  name=EXCLUDED.name,
		  description=EXCLUDED.description,
		  author=EXCLUDED.author,
		  quality_score=EXCLUDED.quality_score,
		  trust_tier=EXCLUDED.trust_tier,
		  tags=EXCLUDED.tags,
		  categories=EXCLUDED.categories,
		  stars=EXCLUDED.stars,
		  installable=EXCLUDED.installable,
		  last_indexed_at=EXCLUDED.last_indexed_at
	`, rec.RepoURL, rec.Name, rec.Description, rec.Author, rec.QualityScore, string(rec.TrustTier),
		emptyIfNil(rec.Tags), fromCategories(rec.Categories), rec.Stars, rec.Installable, rec.LastIndexedAt)
	return err
}

func (s *PostgresStore) AppendAudit(ctx context.Context, e skill.AuditEntry) error {
	dist, err := json.Marshal(e.ScoreDistribution)
	if err != nil {
		return err
	}
	counts, err := json.Marshal(e.CategoryCounts)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO index_audit (id, run_id, topics, found, indexed, updated, failed,
		                         score_distribution, category_counts, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8::jsonb,$9::jsonb,$10)
	`, e.ID, e.RunID, emptyIfNil(e.Topics), e.Found, e.Indexed, e.Updated, e.Failed,
		string(dist), string(counts), e.CreatedAt)
	return err
}

// Migrate executes the embedded schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func fromCategories(cs []skill.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

func toCategories(ss []string) []skill.Category {
	if len(ss) == 0 {
		return nil
	}
	out := make([]skill.Category, len(ss))
	for i, s := range ss {
		out[i] = skill.Category(s)
	}
	return out
}
