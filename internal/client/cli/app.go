// Package cli implements the userctl command line client. Every invocation
// runs exactly one subcommand against the directory server.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/userdir/internal/client/api"
	"github.com/dmitrijs2005/userdir/internal/client/config"
)

type App struct {
	cfg    *config.Config
	client *api.Client
	in     *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		cfg:    cfg,
		client: api.NewClient(cfg),
		in:     bufio.NewReader(in),
		out:    out,
	}
}

type command struct {
	name string
	help string
	run  func(ctx context.Context, args []string) error
}

func (a *App) commands() []command {
	return []command{
		{"create", "create a new user (admin only)", a.cmdCreate},
		{"update-info", "update a user's name, gender and birthday", a.cmdUpdateInfo},
		{"passwd", "change a user's password", a.cmdPasswd},
		{"rename", "change a user's login", a.cmdRename},
		{"list", "list active users (admin only)", a.cmdList},
		{"get", "show one user by login (admin only)", a.cmdGet},
		{"self", "show your own record", a.cmdSelf},
		{"older-than", "list users older than an age (admin only)", a.cmdOlderThan},
		{"delete", "soft or hard delete a user (admin only)", a.cmdDelete},
		{"restore", "restore a soft-deleted user (admin only)", a.cmdRestore},
	}
}

// Run dispatches a single subcommand. args holds everything after the
// program name with the global flags already consumed by config loading.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return fmt.Errorf("no command given")
	}

	name := args[0]
	for _, cmd := range a.commands() {
		if cmd.name == name {
			return cmd.run(ctx, args[1:])
		}
	}

	a.usage()
	return fmt.Errorf("unknown command %q", name)
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: userctl [-a server] [-t timeout] <command> [flags]")
	fmt.Fprintln(a.out, "Commands:")
	for _, cmd := range a.commands() {
		fmt.Fprintf(a.out, "  %-12s %s\n", cmd.name, cmd.help)
	}
}

// authenticate logs the caller in with the login passed via -l and a
// password read from the terminal, then switches the client to the issued
// bearer token.
func (a *App) authenticate(ctx context.Context, login string) error {
	if login == "" {
		return fmt.Errorf("login is required (-l)")
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	pair, err := a.client.Login(ctx, login, password)
	if err != nil {
		return err
	}
	a.client.SetToken(pair.AccessToken)
	return nil
}
