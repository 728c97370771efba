// Package httpapi exposes the follow and account services as a JSON API
// built on gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/socialgraph/internal/logging"
	"github.com/dmitrijs2005/socialgraph/internal/server/metrics"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
	"github.com/dmitrijs2005/socialgraph/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// FollowService is the follow lifecycle used by the handlers.
type FollowService interface {
	CreateFollow(ctx context.Context, followerID, followedID string) (*models.Follow, error)
	DeleteFollow(ctx context.Context, followerID, followedID string) error
	ApproveFollow(ctx context.Context, id string) (*models.Follow, error)
	ListFollowsByFollowed(ctx context.Context, followedID string) ([]*models.Follow, error)
}

// AccountService is the account directory and authentication used by the handlers.
type AccountService interface {
	Register(ctx context.Context, email, username string, password []byte, isPrivate bool) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetCredential(ctx context.Context, accountID string) (*models.Credential, error)
	Login(ctx context.Context, email string, password []byte) (*models.Account, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	AccountIDFromAccessToken(token string) (string, error)
}

// HTTPServer serves the /api routes and /metrics.
type HTTPServer struct {
	address  string
	logger   logging.Logger
	follows  FollowService
	accounts AccountService
	metrics  *metrics.Metrics
	engine   *gin.Engine
}

// NewHTTPServer builds the router. m may be nil, in which case neither the
// metrics middleware nor /metrics is installed.
func NewHTTPServer(address string, l logging.Logger, fs FollowService, as AccountService, m *metrics.Metrics) *HTTPServer {
	s := &HTTPServer{
		address:  address,
		logger:   l.With("module", "http_server"),
		follows:  fs,
		accounts: as,
		metrics:  m,
	}
	s.engine = s.newRouter()
	return s
}

// Handler returns the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled, then drains
// in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *HTTPServer) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	drained := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		drained <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Serve returns as soon as the listener closes; handlers may still run
	if err := <-drained; err != nil {
		s.logger.Error(ctx, "HTTP shutdown error", "error", err)
		return err
	}
	return nil
}
