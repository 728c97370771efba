package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialgraph/internal/client/api"
	"github.com/dmitrijs2005/socialgraph/internal/common"
	"github.com/dmitrijs2005/socialgraph/internal/server/models"
)

// getSimpleText, getYesNo and getPassword are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getYesNo      = GetYesNo
	getPassword   = GetPassword
)

var errNotLoggedIn = errors.New("not logged in")

// Register prompts for the account details and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	private, err := getYesNo(a.reader, "Private account?", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	account, err := a.api.Register(ctx, email, username, password, private)
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "Registered %s (id=%s)\n", account.UserName, account.ID)
	return nil
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	session, err := a.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", session.Account.UserName)
	return nil
}

// Logout drops the local session.
func (a *App) Logout(ctx context.Context) error {
	a.api.Logout()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Me prints the account of the session.
func (a *App) Me(ctx context.Context) error {
	account, err := a.api.Me(ctx)
	if err != nil {
		return a.fail(err)
	}
	printAccount(a, account)
	return nil
}

// Whois prints the public profile of any account.
func (a *App) Whois(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("whois <account_id>")
	}

	account, err := a.api.GetAccount(ctx, args[0])
	if err != nil {
		return a.fail(err)
	}
	printAccount(a, account)
	return nil
}

// Follow follows the given account as the logged-in user.
func (a *App) Follow(ctx context.Context, args []string) error {
	me, target, err := a.selfAndArg(args, "follow <account_id>")
	if err != nil {
		return err
	}

	f, err := a.api.Follow(ctx, me, target)
	if err != nil {
		return a.fail(err)
	}
	if f.IsApproved {
		fmt.Fprintf(a.out, "Now following %s\n", target)
	} else {
		fmt.Fprintf(a.out, "Follow request %s sent, waiting for approval\n", f.ID)
	}
	return nil
}

// Unfollow stops following the given account, or withdraws a pending request.
func (a *App) Unfollow(ctx context.Context, args []string) error {
	me, target, err := a.selfAndArg(args, "unfollow <account_id>")
	if err != nil {
		return err
	}

	if err := a.api.Unfollow(ctx, me, target); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Unfollowed %s\n", target)
	return nil
}

// Reject removes an inbound request (or follower) of the logged-in user.
func (a *App) Reject(ctx context.Context, args []string) error {
	me, follower, err := a.selfAndArg(args, "reject <follower_id>")
	if err != nil {
		return err
	}

	if err := a.api.Unfollow(ctx, follower, me); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Removed %s\n", follower)
	return nil
}

// Approve accepts a pending follow request by its id.
func (a *App) Approve(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("approve <follow_id>")
	}

	f, err := a.api.Approve(ctx, args[0])
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Approved %s -> %s\n", f.FollowerID, f.FollowedID)
	return nil
}

// Followers lists the edges pointing at the given account, or at the
// logged-in user without an argument.
func (a *App) Followers(ctx context.Context, args []string) error {
	var target string
	if len(args) > 0 {
		target = args[0]
	} else {
		me, err := a.self()
		if err != nil {
			return err
		}
		target = me
	}

	list, err := a.api.Followers(ctx, target)
	if err != nil {
		return a.fail(err)
	}
	printFollows(a, list, false)
	return nil
}

// Requests lists the pending inbound requests of the logged-in user.
func (a *App) Requests(ctx context.Context) error {
	me, err := a.self()
	if err != nil {
		return err
	}

	list, err := a.api.Followers(ctx, me)
	if err != nil {
		return a.fail(err)
	}
	printFollows(a, list, true)
	return nil
}

func (a *App) self() (string, error) {
	s := a.api.Session()
	if s == nil || s.Account == nil {
		return "", a.fail(errNotLoggedIn)
	}
	return s.Account.ID, nil
}

func (a *App) selfAndArg(args []string, usage string) (string, string, error) {
	if len(args) == 0 {
		return "", "", a.usage(usage)
	}
	me, err := a.self()
	if err != nil {
		return "", "", err
	}
	return me, args[0], nil
}

func (a *App) usage(u string) error {
	fmt.Fprintln(a.out, "Usage:", u)
	return common.ErrorValidation
}

func (a *App) fail(err error) error {
	fmt.Fprintln(a.out, "Error:", err)
	return err
}

func printAccount(a *App, account *models.Account) {
	visibility := "public"
	if account.IsPrivate {
		visibility = "private"
	}
	fmt.Fprintf(a.out, "%s  %s  %s  %s\n", account.ID, account.UserName, account.Email, visibility)
}

func printFollows(a *App, list []*models.Follow, pendingOnly bool) {
	n := 0
	for _, f := range list {
		if pendingOnly && f.IsApproved {
			continue
		}
		state := "approved"
		if f.Pending() {
			state = "pending"
		}
		fmt.Fprintf(a.out, "%s  %s  %s\n", f.ID, f.FollowerID, state)
		n++
	}
	if n == 0 {
		fmt.Fprintln(a.out, "Nothing to show")
	}
}
