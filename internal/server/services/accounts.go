package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/dbx"
	"github.com/dmitrijs2005/socialgraph/internal/logging"
	"github.com/dmitrijs2005/socialgraph/internal/server/auth"
	"github.com/dmitrijs2005/socialgraph/internal/server/config"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AccountService provides the account directory operations and
// authentication:
//   - Register: create an account with its password credential
//   - GetAccount / GetCredential: lookups
//   - Login: verify the password and mint tokens
//   - RefreshToken: rotate refresh tokens and mint new access tokens
type AccountService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	passwordHashCost             int
}

// NewAccountService constructs an AccountService using repositories and server config.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *AccountService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &AccountService{
		db:                           db,
		repomanager:                  m,
		logger:                       logger.With("module", "accounts"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		passwordHashCost:             cfg.PasswordHashCost,
	}
}

// Register creates the account and its credential in one transaction.
// A taken email or username yields common.ErrorConflict.
func (s *AccountService) Register(ctx context.Context, email, username string, password []byte, isPrivate bool) (*models.Account, error) {
	hash, err := auth.HashPassword(password, s.passwordHashCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	account := &models.Account{
		ID:        uuid.NewString(),
		Email:     email,
		UserName:  username,
		IsPrivate: isPrivate,
	}

	var created *models.Account
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repomanager.Accounts(tx).Create(ctx, account)
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return fmt.Errorf("email or username already taken: %w", common.ErrorConflict)
			}
			return fmt.Errorf("error creating account: %w", err)
		}

		credential := &models.Credential{
			ID:           uuid.NewString(),
			AccountID:    created.ID,
			PasswordHash: hash,
		}
		if _, err := s.repomanager.Credentials(tx).Create(ctx, credential); err != nil {
			return fmt.Errorf("error creating credential: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account registered", "id", created.ID, "username", created.UserName, "private", created.IsPrivate)
	return created, nil
}

// GetAccount returns the account or common.ErrorNotFound.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.repomanager.Accounts(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("account %s not found: %w", id, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}
	return account, nil
}

// GetCredential returns the credential of an account. The hash is excluded
// from its JSON form.
func (s *AccountService) GetCredential(ctx context.Context, accountID string) (*models.Credential, error) {
	credential, err := s.repomanager.Credentials(s.db).FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("credential for account %s not found: %w", accountID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error searching credential: %w", err)
	}
	return credential, nil
}

// Login verifies the password of the account registered under email and,
// on success, returns the account with a new TokenPair. An unknown email
// and a wrong password are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email string, password []byte) (*models.Account, *TokenPair, error) {
	account, err := s.repomanager.Accounts(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	credential, err := s.repomanager.Credentials(s.db).FindByAccountID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	ok, err := auth.CheckPassword(credential.PasswordHash, password)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unusable", "account_id", account.ID, "error", err)
		return nil, nil, common.ErrorInternal
	}
	if !ok {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, account.ID, s.db)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info(ctx, "account logged in", "id", account.ID)
	return account, pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired;
// unknown or already rotated ones yield ErrorUnauthorized.
func (s *AccountService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.AccountID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// AccountIDFromAccessToken verifies an access token and returns its subject.
func (s *AccountService) AccountIDFromAccessToken(token string) (string, error) {
	return auth.GetAccountIDFromToken(token, s.jwtSecret)
}

func (s *AccountService) generateTokenPair(ctx context.Context, accountID string, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(accountID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(common.RefreshTokenSize)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, accountID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
