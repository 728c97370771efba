// Package services contains server-side business logic. This file implements
// FollowService, the follow-edge lifecycle: create, approve, delete and list.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/dbx"
	"github.com/dmitrijs2005/socialgraph/internal/logging"
	"github.com/dmitrijs2005/socialgraph/internal/server/metrics"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/repomanager"
)

// TransitionRecorder receives every successful follow lifecycle transition.
// *metrics.Metrics implements it.
type TransitionRecorder interface {
	FollowTransition(transition string)
}

type nopRecorder struct{}

func (nopRecorder) FollowTransition(string) {}

// FollowService owns the follow state machine:
//
//	Absent  --create--> Pending | Approved (Approved when the target is public)
//	Pending --approve--> Approved
//	Pending | Approved --delete--> Absent
//
// Approving an approved edge is a conflict.
type FollowService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	recorder    TransitionRecorder
}

// NewFollowService constructs a FollowService. A nil logger or recorder
// is replaced by a no-op.
func NewFollowService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, recorder TransitionRecorder) *FollowService {
	if logger == nil {
		logger = logging.Nop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &FollowService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "follows"),
		recorder:    recorder,
	}
}

// CreateFollow makes followerID follow followedID. The edge is approved
// right away unless the followed account is private.
//
// The pair lookup is only a fast path; two racing creates are settled by
// the unique index and the loser gets common.ErrorConflict as well.
func (s *FollowService) CreateFollow(ctx context.Context, followerID, followedID string) (*models.Follow, error) {
	if followerID == followedID {
		return nil, fmt.Errorf("account cannot follow itself: %w", common.ErrorValidation)
	}

	repo := s.repomanager.Follows(s.db)

	_, err := repo.FindByPair(ctx, followerID, followedID)
	if err == nil {
		return nil, fmt.Errorf("follow relationship already exists: %w", common.ErrorConflict)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching follow: %w", err)
	}

	_, followed, err := s.resolvePair(ctx, followerID, followedID)
	if err != nil {
		return nil, err
	}

	follow := &models.Follow{
		ID:         uuid.NewString(),
		FollowerID: followerID,
		FollowedID: followedID,
		IsApproved: !followed.IsPrivate,
	}

	created, err := repo.Insert(ctx, follow)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, fmt.Errorf("follow relationship already exists: %w", common.ErrorConflict)
		}
		return nil, fmt.Errorf("error creating follow: %w", err)
	}

	transition := metrics.TransitionCreatedPending
	if created.IsApproved {
		transition = metrics.TransitionCreatedApproved
	}
	s.recorder.FollowTransition(transition)
	s.logger.Info(ctx, "follow created",
		"id", created.ID, "follower_id", followerID, "followed_id", followedID, "approved", created.IsApproved)

	return created, nil
}

// DeleteFollow removes the edge for the exact pair, whatever its approval
// state. Rejecting a pending request and unfollowing are the same operation.
func (s *FollowService) DeleteFollow(ctx context.Context, followerID, followedID string) error {
	repo := s.repomanager.Follows(s.db)

	follow, err := repo.FindByPair(ctx, followerID, followedID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("follow relationship not found: %w", common.ErrorNotFound)
		}
		return fmt.Errorf("error searching follow: %w", err)
	}

	if err := repo.Delete(ctx, follow.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("follow relationship not found: %w", common.ErrorNotFound)
		}
		return fmt.Errorf("error deleting follow: %w", err)
	}

	s.recorder.FollowTransition(metrics.TransitionDeleted)
	s.logger.Info(ctx, "follow deleted", "id", follow.ID, "follower_id", followerID, "followed_id", followedID)
	return nil
}

// ApproveFollow moves a pending edge to approved. The edge is read with a
// row lock, so a concurrent approval waits and then sees the approved state.
func (s *FollowService) ApproveFollow(ctx context.Context, id string) (*models.Follow, error) {
	var approved *models.Follow

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Follows(tx)

		follow, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("follow request not found: %w", common.ErrorNotFound)
			}
			return fmt.Errorf("error searching follow: %w", err)
		}
		if follow.IsApproved {
			return fmt.Errorf("follow request already approved: %w", common.ErrorConflict)
		}

		follow.IsApproved = true
		approved, err = repo.Update(ctx, follow)
		if err != nil {
			// the update only matches pending edges
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("follow request already approved: %w", common.ErrorConflict)
			}
			return fmt.Errorf("error approving follow: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.FollowTransition(metrics.TransitionApproved)
	s.logger.Info(ctx, "follow approved", "id", approved.ID, "follower_id", approved.FollowerID, "followed_id", approved.FollowedID)
	return approved, nil
}

// ListFollowsByFollowed returns every edge that targets followedID, pending
// ones included. An existing account with no followers yields an empty slice.
func (s *FollowService) ListFollowsByFollowed(ctx context.Context, followedID string) ([]*models.Follow, error) {
	if _, err := s.repomanager.Accounts(s.db).FindByID(ctx, followedID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("account %s not found: %w", followedID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}

	follows, err := s.repomanager.Follows(s.db).FindAllByFollowed(ctx, followedID)
	if err != nil {
		return nil, fmt.Errorf("error listing follows: %w", err)
	}
	if follows == nil {
		follows = []*models.Follow{}
	}
	return follows, nil
}

// resolvePair fetches both accounts concurrently and joins the results
// before either is inspected. When one lookup fails and the other finds
// nothing, the failure is reported rather than NotFound.
func (s *FollowService) resolvePair(ctx context.Context, followerID, followedID string) (*models.Account, *models.Account, error) {
	repo := s.repomanager.Accounts(s.db)

	var (
		follower, followed       *models.Account
		followerErr, followedErr error
	)
	// no shared cancellation: both lookups run to completion
	var g errgroup.Group

	g.Go(func() error {
		var err error
		follower, err = repo.FindByID(ctx, followerID)
		followerErr = accountLookupError(followerID, err)
		return followerErr
	})
	g.Go(func() error {
		var err error
		followed, err = repo.FindByID(ctx, followedID)
		followedErr = accountLookupError(followedID, err)
		return followedErr
	})

	if g.Wait() == nil {
		return follower, followed, nil
	}
	for _, err := range []error{followerErr, followedErr} {
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, nil, err
		}
	}
	if followerErr != nil {
		return nil, nil, followerErr
	}
	return nil, nil, followedErr
}

func accountLookupError(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("account %s not found: %w", id, common.ErrorNotFound)
	default:
		return fmt.Errorf("error searching account: %w", err)
	}
}
