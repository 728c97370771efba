// Package credentials stores password hashes, one row per account.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/dbx"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, credential *models.Credential) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (id, account_id, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, credential.ID, credential.AccountID, credential.PasswordHash).
		Scan(&credential.CreatedAt, &credential.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, "credentials_account_id_key") {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return credential, nil
}

// FindByAccountID returns the credential of the account or common.ErrorNotFound.
func (r *PostgresRepository) FindByAccountID(ctx context.Context, accountID string) (*models.Credential, error) {
	query := `
		SELECT id, account_id, password_hash, created_at, updated_at
		FROM credentials
		WHERE account_id = $1
	`
	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, accountID).
		Scan(&c.ID, &c.AccountID, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}
