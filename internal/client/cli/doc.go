// Package cli provides the interactive socialgraph command-line client.
//
// It wires configuration, the HTTP API client and an interactive REPL. A
// background watcher probes the server and switches the prompt between
// online and offline.
//
// Commands:
//   - register / login / logout / me
//   - follow <account_id>, unfollow <account_id>
//   - followers [account_id], requests
//   - approve <follow_id>, reject <follower_id>
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
