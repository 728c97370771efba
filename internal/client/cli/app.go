package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/socialgraph/internal/client/api"
	"github.com/dmitrijs2005/socialgraph/internal/client/config"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// apiClient is the part of *api.Client the commands use.
type apiClient interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, email, username string, password []byte, isPrivate bool) (*models.Account, error)
	Login(ctx context.Context, email string, password []byte) (*api.Session, error)
	Logout()
	Session() *api.Session
	Me(ctx context.Context) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	Follow(ctx context.Context, followerID, followedID string) (*models.Follow, error)
	Unfollow(ctx context.Context, followerID, followedID string) error
	Approve(ctx context.Context, followID string) (*models.Follow, error)
	Followers(ctx context.Context, accountID string) ([]*models.Follow, error)
}

type App struct {
	config *config.Config
	api    apiClient
	reader *bufio.Reader
	out    io.Writer

	mu   sync.Mutex
	mode Mode
}

func NewApp(c *config.Config) (*App, error) {
	client := api.NewClient(c.ServerURL, c.RequestTimeout)
	return newApp(c, client, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, client apiClient, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: client, reader: bufio.NewReader(in), out: out}
}

// Run probes the server once, starts the connectivity watcher and blocks in
// the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to socialgraph CLI (type 'help' for commands)")
	a.probe(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.api.Session() != nil
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) getStatus() string {
	s := ""
	if sess := a.api.Session(); sess != nil && sess.Account != nil {
		s = sess.Account.UserName + " "
	}
	s += string(a.currentMode())
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.api.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
