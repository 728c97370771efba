package accounts

import (
	"context"

	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

// Repository is the account directory.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}
