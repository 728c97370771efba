package follows

import (
	"context"

	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

// Repository is the relationship store: follow edges keyed by the ordered
// (follower, followed) pair.
type Repository interface {
	Insert(ctx context.Context, follow *models.Follow) (*models.Follow, error)
	FindByPair(ctx context.Context, followerID, followedID string) (*models.Follow, error)
	FindByID(ctx context.Context, id string) (*models.Follow, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Follow, error)
	FindAllByFollowed(ctx context.Context, followedID string) ([]*models.Follow, error)
	Update(ctx context.Context, follow *models.Follow) (*models.Follow, error)
	Delete(ctx context.Context, id string) error
}
