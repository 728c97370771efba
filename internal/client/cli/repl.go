package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Whois(ctx context.Context, args []string) error
	Follow(ctx context.Context, args []string) error
	Unfollow(ctx context.Context, args []string) error
	Approve(ctx context.Context, args []string) error
	Reject(ctx context.Context, args []string) error
	Followers(ctx context.Context, args []string) error
	Requests(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the socialgraph CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and the rest as its arguments, and dispatches to methods on 'a'.
// The loop exits on scanner EOF or when the user types "exit" or "quit".
//
// Commands that need a session are only offered after login. Errors returned
// by handlers are ignored here; handlers report them to the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("sg %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if needsSession(cmd) && !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, whois, follow, unfollow, followers, requests, approve, reject, logout, exit")
			} else {
				printlnFn("Available commands: register, login, whois <account_id>, followers <account_id>, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "me":
			_ = a.Me(ctx)

		case "whois":
			_ = a.Whois(ctx, args)

		case "follow":
			_ = a.Follow(ctx, args)

		case "unfollow":
			_ = a.Unfollow(ctx, args)

		case "approve":
			_ = a.Approve(ctx, args)

		case "reject":
			_ = a.Reject(ctx, args)

		case "followers":
			_ = a.Followers(ctx, args)

		case "requests":
			_ = a.Requests(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func needsSession(cmd string) bool {
	switch cmd {
	case "logout", "me", "follow", "unfollow", "approve", "reject", "requests":
		return true
	}
	return false
}
