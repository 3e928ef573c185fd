package db

import (
	"database/sql"
)

// MigrateUp creates the pipeline schema. All statements are idempotent so the
// worker can run them on every start.
func MigrateUp(db *sql.DB) error {
	// pgvector extension for the embedding column. Errors are ignored:
	// the extension may already exist or the role may lack privileges,
	// in which case the CREATE TABLE below fails with a clearer message.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id                  UUID PRIMARY KEY,
    outlet              TEXT NOT NULL,
    link                TEXT NOT NULL UNIQUE,
    title               TEXT NOT NULL,
    raw_description     TEXT,
    scraped_description TEXT,
    category            TEXT,
    image_url           TEXT,
    pub_date            TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    group_id            BIGINT,
    embedding           vector(1536),
    neutral_score       INT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS neutral_groups (
    group_id            BIGINT PRIMARY KEY,
    neutral_title       TEXT NOT NULL,
    neutral_description TEXT,
    category            TEXT,
    relevance           INT,
    source_ids          TEXT[] NOT NULL DEFAULT '{}',
    image_url           TEXT,
    image_medium        TEXT,
    date                TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// Dedup lookups scan one outlet's links.
		`CREATE INDEX IF NOT EXISTS idx_articles_outlet ON articles(outlet)`,
		// Recency filters for grouping references and retention.
		`CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles(pub_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at)`,
		// Group membership lookups; most articles stay ungrouped.
		`CREATE INDEX IF NOT EXISTS idx_articles_group_id ON articles(group_id) WHERE group_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_neutral_groups_date ON neutral_groups(date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_neutral_groups_created_at ON neutral_groups(created_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// IVFFlat cosine index for similarity search over recent embeddings.
	// Ignored when pgvector is unavailable; lists=100 suits <1M rows.
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_articles_embedding
    ON articles USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100)`)

	return nil
}

// MigrateDown drops the pipeline schema in reverse order of creation.
// Use with caution: this deletes all stored articles and groups.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_articles_embedding`,
		`DROP TABLE IF EXISTS neutral_groups`,
		`DROP TABLE IF EXISTS articles`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// The vector extension stays installed: other databases on the same
	// server may depend on it.
	return nil
}
