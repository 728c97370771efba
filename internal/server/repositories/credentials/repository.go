package credentials

import (
	"context"

	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, credential *models.Credential) (*models.Credential, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.Credential, error)
}
