package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/socialgraph/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the server (default from Config)
//	-i int      online check interval in seconds, > 0 (default from Config)
//	-t int      request timeout in seconds, > 0 (default from Config)
//
// os.Args is filtered with flagx.FilterArgs so -c/-config and unknown flags
// do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server HTTP API")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// non-positive values keep what defaults and JSON set
	if *onlineCheckInterval > 0 {
		cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	}
	if *requestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	}
}
