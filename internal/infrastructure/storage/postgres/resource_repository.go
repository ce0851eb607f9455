package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"parlsync/internal/domain/document"
	"parlsync/internal/domain/resource"
)

const uniqueViolation = "23505"

const resourceColumns = `collection, id, data, etag, created_at, updated_at`

type ResourceRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewResourceRepository(pool *pgxpool.Pool, log *slog.Logger) *ResourceRepository {
	return &ResourceRepository{
		pool: pool,
		log:  log.With("component", "resource_repository"),
	}
}

func (r *ResourceRepository) Insert(ctx context.Context, records ...*resource.Record) error {
	const query = `
		INSERT INTO resources (collection, id, data, etag, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, rec := range records {
			_, err := tx.Exec(ctx, query,
				rec.Collection, rec.ID, rec.Data.Bytes(), rec.ETag, rec.Created, rec.Updated)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
					return fmt.Errorf("%w: %s/%s", resource.ErrDuplicateID, rec.Collection, rec.ID)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("failed to insert resources", "count", len(records), "error", err)
		return fmt.Errorf("insert resources: %w", err)
	}
	return nil
}

func (r *ResourceRepository) Get(ctx context.Context, collection, id string) (*resource.Record, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE collection = $1 AND id = $2`

	rec, err := scanResource(r.pool.QueryRow(ctx, query, collection, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, resource.ErrNotFound
		}
		r.log.Error("failed to get resource", "collection", collection, "id", id, "error", err)
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return rec, nil
}

func (r *ResourceRepository) Replace(ctx context.Context, rec *resource.Record) error {
	const query = `
		UPDATE resources
		SET data = $1, etag = $2, updated_at = $3
		WHERE collection = $4 AND id = $5`

	result, err := r.pool.Exec(ctx, query, rec.Data.Bytes(), rec.ETag, rec.Updated, rec.Collection, rec.ID)
	if err != nil {
		r.log.Error("failed to replace resource", "collection", rec.Collection, "id", rec.ID, "error", err)
		return fmt.Errorf("replace resource: %w", err)
	}
	if result.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *ResourceRepository) Delete(ctx context.Context, collection, id string) error {
	const query = `DELETE FROM resources WHERE collection = $1 AND id = $2`

	result, err := r.pool.Exec(ctx, query, collection, id)
	if err != nil {
		r.log.Error("failed to delete resource", "collection", collection, "id", id, "error", err)
		return fmt.Errorf("delete resource: %w", err)
	}
	if result.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *ResourceRepository) Find(ctx context.Context, collection string, q resource.Query) ([]resource.Record, int, error) {
	f, err := buildFilter(collection, q.Where)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM resources WHERE `+f.where(), f.args...).Scan(&total); err != nil {
		r.log.Error("failed to count resources", "collection", collection, "error", err)
		return nil, 0, fmt.Errorf("count resources: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM resources WHERE %s ORDER BY %s`,
		resourceColumns, f.where(), f.orderBy(q.Sort))
	if q.MaxResults > 0 {
		query += fmt.Sprintf(` LIMIT %s OFFSET %s`, f.arg(q.MaxResults), f.arg(q.Offset()))
	}

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		r.log.Error("failed to find resources", "collection", collection, "error", err)
		return nil, 0, fmt.Errorf("find resources: %w", err)
	}
	defer rows.Close()

	var records []resource.Record
	for rows.Next() {
		rec, err := scanResource(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan resource: %w", err)
		}
		records = append(records, *rec)
	}
	return records, total, rows.Err()
}

func (r *ResourceRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanResource(row pgx.Row) (*resource.Record, error) {
	var rec resource.Record
	var data []byte

	if err := row.Scan(&rec.Collection, &rec.ID, &data, &rec.ETag, &rec.Created, &rec.Updated); err != nil {
		return nil, err
	}

	doc, err := document.FromBytes(data)
	if err != nil {
		return nil, err
	}
	rec.Data = doc
	rec.Created = rec.Created.UTC()
	rec.Updated = rec.Updated.UTC()
	return &rec, nil
}
