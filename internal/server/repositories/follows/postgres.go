// Package follows provides the PostgreSQL-backed store for follow edges.
package follows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/dbx"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

// pairConstraint is the unique index on (follower_id, followed_id).
const pairConstraint = "follows_pair_key"

const selectColumns = `SELECT id, follower_id, followed_id, is_approved, created_at, updated_at FROM follows`

// PostgresRepository implements follow storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new edge. The timestamps are assigned by the database.
// A concurrent insert of the same pair loses on the unique index and gets
// common.ErrorConflict.
func (r *PostgresRepository) Insert(ctx context.Context, follow *models.Follow) (*models.Follow, error) {
	query := `
		INSERT INTO follows (id, follower_id, followed_id, is_approved)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		follow.ID, follow.FollowerID, follow.FollowedID, follow.IsApproved).
		Scan(&follow.CreatedAt, &follow.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, pairConstraint) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return follow, nil
}

// FindByPair returns the edge for the exact ordered pair or common.ErrorNotFound.
func (r *PostgresRepository) FindByPair(ctx context.Context, followerID, followedID string) (*models.Follow, error) {
	query := selectColumns + ` WHERE follower_id = $1 AND followed_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, followerID, followedID))
}

// FindByID returns the edge with the given id or common.ErrorNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Follow, error) {
	query := selectColumns + ` WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByIDForUpdate is FindByID with a row lock held until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *PostgresRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Follow, error) {
	query := selectColumns + ` WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindAllByFollowed lists every edge pointing at followedID, approved or not,
// in insertion order. The result is never nil.
func (r *PostgresRepository) FindAllByFollowed(ctx context.Context, followedID string) ([]*models.Follow, error) {
	query := selectColumns + ` WHERE followed_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, followedID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Follow, 0)
	for rows.Next() {
		var item models.Follow
		if err := rows.Scan(
			&item.ID, &item.FollowerID, &item.FollowedID, &item.IsApproved,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Update persists the approval flag and refreshes updated_at from the
// database clock. Approved edges are never rewritten: an edge that is
// missing or already approved yields common.ErrorNotFound.
func (r *PostgresRepository) Update(ctx context.Context, follow *models.Follow) (*models.Follow, error) {
	query := `
		UPDATE follows SET is_approved = $2, updated_at = now()
		WHERE id = $1 AND NOT is_approved
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, follow.ID, follow.IsApproved).Scan(&follow.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return follow, nil
}

// Delete removes the edge with the given id. Nothing deleted means
// common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM follows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Follow, error) {
	follow := &models.Follow{}
	err := row.Scan(
		&follow.ID, &follow.FollowerID, &follow.FollowedID, &follow.IsApproved,
		&follow.CreatedAt, &follow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return follow, nil
}
