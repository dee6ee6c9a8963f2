package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/userdir/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the directory server
//	-t int      request timeout in seconds
//
// The args are filtered with flagx.FilterArgs so subcommand flags parsed
// elsewhere do not interfere.
func parseFlags(cfg *Config, args []string) {
	filtered := flagx.FilterArgs(args, []string{"-a", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "base URL of the directory server")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(filtered); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
