package index

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const pgSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS chunk_vectors (
	user_id   text   NOT NULL,
	chunk_id  bigint NOT NULL,
	file_id   bigint NOT NULL,
	embedding vector NOT NULL,
	PRIMARY KEY (user_id, chunk_id)
);
CREATE INDEX IF NOT EXISTS chunk_vectors_user_file ON chunk_vectors (user_id, file_id);
`

// PG stores vectors in Postgres with the pgvector extension. Tenant
// isolation rides on the user_id column: every statement filters by it.
// Row-level deletes make removal incremental; Replace runs in a transaction
// so searchers never see a half-rebuilt namespace.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(ctx context.Context, dsn string) (*PG, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn failed: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres failed: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("prepare chunk_vectors schema failed: %w", err)
	}
	return &PG{pool: pool}, nil
}

func (p *PG) Close() {
	p.pool.Close()
}

func (p *PG) Add(ctx context.Context, userID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO chunk_vectors (user_id, chunk_id, file_id, embedding)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, chunk_id)
			 DO UPDATE SET file_id = EXCLUDED.file_id, embedding = EXCLUDED.embedding`,
			userID, int64(e.ChunkID), int64(e.FileID), pgvector.NewVector(e.Vector),
		)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert chunk vector failed: %w", err)
		}
	}
	return nil
}

func (p *PG) Remove(ctx context.Context, userID string, chunkID uint) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE user_id = $1 AND chunk_id = $2`,
		userID, int64(chunkID))
	if err != nil {
		return fmt.Errorf("delete chunk vector failed: %w", err)
	}
	return nil
}

func (p *PG) RemoveFile(ctx context.Context, userID string, fileID uint) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE user_id = $1 AND file_id = $2`,
		userID, int64(fileID))
	if err != nil {
		return fmt.Errorf("delete file vectors failed: %w", err)
	}
	return nil
}

func (p *PG) Search(ctx context.Context, userID string, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	// <=> is cosine distance; score = 1 - distance. chunk_id breaks ties.
	rows, err := p.pool.Query(ctx,
		`SELECT chunk_id, file_id, 1 - (embedding <=> $2) AS score
		 FROM chunk_vectors
		 WHERE user_id = $1
		 ORDER BY embedding <=> $2, chunk_id ASC
		 LIMIT $3`,
		userID, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("search chunk vectors failed: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var chunkID, fileID int64
		var score float64
		if err := rows.Scan(&chunkID, &fileID, &score); err != nil {
			return nil, fmt.Errorf("scan chunk vector hit failed: %w", err)
		}
		hits = append(hits, Hit{ChunkID: uint(chunkID), FileID: uint(fileID), Score: float32(score)})
	}
	return hits, rows.Err()
}

func (p *PG) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM chunk_vectors WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunk vectors failed: %w", err)
	}
	return n, nil
}

func (p *PG) Clear(ctx context.Context, userID string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear tenant vectors failed: %w", err)
	}
	return nil
}

func (p *PG) Replace(ctx context.Context, userID string, entries []Entry) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear namespace in replace failed: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chunk_vectors (user_id, chunk_id, file_id, embedding)
			 VALUES ($1, $2, $3, $4)`,
			userID, int64(e.ChunkID), int64(e.FileID), pgvector.NewVector(e.Vector)); err != nil {
			return fmt.Errorf("insert in replace failed: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace tx failed: %w", err)
	}
	return nil
}
