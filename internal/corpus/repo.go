package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrDuplicateDocID reports an insert whose doc_id is already stored. The
// schema enforces doc_id uniqueness, so concurrent re-deliveries of the
// same segment surface here instead of duplicating rows.
var ErrDuplicateDocID = errors.New("segment doc_id already exists")

type PostgresRepo struct {
	db  *sql.DB
	dim int
}

// NewPostgresRepo wraps db. dim is the corpus-wide embedding dimensionality;
// it is used to substitute zero vectors for missing embedding rows.
func NewPostgresRepo(db *sql.DB, dim int) *PostgresRepo {
	return &PostgresRepo{db: db, dim: dim}
}

// UpsertSource inserts src or, when its locator already exists, updates the
// existing row in place. src.ID is populated either way.
func (r *PostgresRepo) UpsertSource(ctx context.Context, src *Source) error {
	extra, err := json.Marshal(src.Extra)
	if err != nil {
		return fmt.Errorf("marshal extra: %w", err)
	}
	query := `INSERT INTO sources (title, source_type, locator, published_at, author, extra)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (locator) DO UPDATE
		SET title = EXCLUDED.title,
		    source_type = EXCLUDED.source_type,
		    published_at = EXCLUDED.published_at,
		    author = EXCLUDED.author,
		    extra = EXCLUDED.extra,
		    updated_at = NOW()
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		src.Title, src.Type, src.Locator, src.PublishedAt, src.Author, extra).Scan(&src.ID)
}

// SourceByID returns (nil, nil) when no source with the given id exists.
// A dangling source reference must not abort ranking.
func (r *PostgresRepo) SourceByID(ctx context.Context, id int64) (*Source, error) {
	s := &Source{}
	var extra []byte
	query := `SELECT id, title, source_type, locator, published_at, author, extra
		FROM sources WHERE id = $1 AND deleted_at IS NULL`
	var author sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.Title, &s.Type, &s.Locator, &s.PublishedAt, &author, &extra)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Author = author.String
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &s.Extra); err != nil {
			return nil, fmt.Errorf("unmarshal extra: %w", err)
		}
	}
	return s, nil
}

func (r *PostgresRepo) ListSources(ctx context.Context) ([]Source, error) {
	query := `SELECT id, title, source_type, locator, published_at, author, extra
		FROM sources WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		var extra []byte
		var author sql.NullString
		if err := rows.Scan(&s.ID, &s.Title, &s.Type, &s.Locator, &s.PublishedAt, &author, &extra); err != nil {
			return nil, err
		}
		s.Author = author.String
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &s.Extra); err != nil {
				return nil, fmt.Errorf("unmarshal extra: %w", err)
			}
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *PostgresRepo) SoftDeleteSource(ctx context.Context, id int64) error {
	query := `UPDATE sources SET deleted_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// InsertSegment stores the segment row and its embedding in one transaction.
// Segments are immutable afterwards.
func (r *PostgresRepo) InsertSegment(ctx context.Context, seg *Segment, vector []float32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO segments (source_id, text, ts_start, ts_end, doc_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var docID any
	if seg.DocID != "" {
		docID = seg.DocID
	}
	if err := tx.QueryRowContext(ctx, query,
		seg.SourceID, seg.Text, seg.TsStart, seg.TsEnd, docID).Scan(&seg.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateDocID, seg.DocID)
		}
		return err
	}

	if len(vector) > 0 {
		wide := make(pq.Float64Array, len(vector))
		for i, v := range vector {
			wide[i] = float64(v)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO embeddings (segment_id, vector) VALUES ($1, $2)`,
			seg.ID, wide); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SegmentsWithEmbeddings returns every segment paired with its vector, in a
// stable enumeration (segment id order). Missing embeddings become zero
// vectors. The read never mutates state and is safe to call concurrently.
func (r *PostgresRepo) SegmentsWithEmbeddings(ctx context.Context) ([]SegmentVector, error) {
	query := `SELECT s.id, s.source_id, s.text, s.ts_start, s.ts_end, COALESCE(s.doc_id, ''), e.vector
		FROM segments s
		LEFT JOIN embeddings e ON e.segment_id = s.id
		ORDER BY s.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SegmentVector
	for rows.Next() {
		var sv SegmentVector
		var wide pq.Float64Array
		if err := rows.Scan(&sv.Segment.ID, &sv.Segment.SourceID, &sv.Segment.Text,
			&sv.Segment.TsStart, &sv.Segment.TsEnd, &sv.Segment.DocID, &wide); err != nil {
			return nil, err
		}
		if len(wide) == 0 {
			sv.Vector = make([]float32, r.dim)
		} else {
			sv.Vector = make([]float32, len(wide))
			for i, v := range wide {
				sv.Vector[i] = float32(v)
			}
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CountSegments(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&n)
	return n, err
}

func (r *PostgresRepo) CountSources(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources WHERE deleted_at IS NULL`).Scan(&n)
	return n, err
}

// SegmentExistsByDocID supports idempotent re-ingestion: consumers skip
// segments whose external document id is already stored.
func (r *PostgresRepo) SegmentExistsByDocID(ctx context.Context, docID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM segments WHERE doc_id = $1)`
	err := r.db.QueryRowContext(ctx, query, docID).Scan(&exists)
	return exists, err
}
