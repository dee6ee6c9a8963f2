package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/userdir/internal/client/cli"
	"github.com/dmitrijs2005/userdir/internal/client/config"
)

func main() {

	args := os.Args[1:]
	cfg := config.LoadConfig(args)

	// everything from the first non-flag token on belongs to the
	// subcommand; global flags and their values are skipped
	var cmdArgs []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) > 0 && arg[0] == '-' {
			if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		cmdArgs = args[i:]
		break
	}

	app := cli.NewApp(cfg, os.Stdin, os.Stdout)
	if err := app.Run(context.Background(), cmdArgs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
