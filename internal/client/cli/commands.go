package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/userdir/internal/client/api"
)

// parseBirthday accepts a YYYY-MM-DD date or an empty string.
func parseBirthday(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid birthday %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}

func (a *App) cmdCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	login := fs.String("login", "", "login of the new user")
	name := fs.String("name", "", "name of the new user")
	gender := fs.Int("gender", 2, "gender: 0 female, 1 male, 2 unspecified")
	birthday := fs.String("birthday", "", "birthday, YYYY-MM-DD")
	admin := fs.Bool("admin", false, "grant admin rights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Password for the new user:")
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	bd, err := parseBirthday(*birthday)
	if err != nil {
		return err
	}

	created, err := a.client.CreateUser(ctx, &api.CreateUserRequest{
		Login:    *login,
		Password: password,
		Name:     *name,
		Gender:   *gender,
		Birthday: bd,
		Admin:    *admin,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created user %s (%s)\n", created.Login, created.Name)
	return nil
}

func (a *App) cmdUpdateInfo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-info", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	target := fs.String("target", "", "login of the user to update")
	name := fs.String("name", "", "new name")
	gender := fs.Int("gender", 2, "gender: 0 female, 1 male, 2 unspecified")
	birthday := fs.String("birthday", "", "birthday, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	bd, err := parseBirthday(*birthday)
	if err != nil {
		return err
	}

	updated, err := a.client.UpdateInfo(ctx, &api.UpdateInfoRequest{
		TargetLogin: *target,
		Name:        *name,
		Gender:      *gender,
		Birthday:    bd,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Updated user %s (%s)\n", updated.Login, updated.Name)
	return nil
}

func (a *App) cmdPasswd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	target := fs.String("target", "", "login of the user whose password to change")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "New password:")
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	msg, err := a.client.ChangePassword(ctx, *target, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) cmdRename(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	target := fs.String("target", "", "current login")
	newLogin := fs.String("new", "", "new login")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	if err := a.client.ChangeLogin(ctx, *target, *newLogin); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %s to %s\n", *target, *newLogin)
	return nil
}

func (a *App) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	list, err := a.client.ActiveUsers(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, list.Message)
	for _, u := range list.Users {
		fmt.Fprintf(a.out, "  %-16s %s\n", u.Login, u.Name)
	}
	return nil
}

func (a *App) cmdGet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	login := fs.String("login", "", "login to look up")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	u, err := a.client.UserByLogin(ctx, *login)
	if err != nil {
		return err
	}
	printUser(a.out, u)
	return nil
}

func (a *App) cmdSelf(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("self", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	u, err := a.client.Self(ctx)
	if err != nil {
		return err
	}
	printUser(a.out, u)
	return nil
}

func (a *App) cmdOlderThan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("older-than", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	age := fs.Int("age", 0, "age threshold in years")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	list, err := a.client.UsersOlderThan(ctx, *age)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, list.Message)
	for _, u := range list.Users {
		fmt.Fprintf(a.out, "  %-16s %s\n", u.Login, u.Name)
	}
	return nil
}

func (a *App) cmdDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	login := fs.String("login", "", "login of the user to delete")
	hard := fs.Bool("hard", false, "permanently remove instead of soft delete")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	msg, err := a.client.DeleteUser(ctx, *login, !*hard)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) cmdRestore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	caller := fs.String("l", "", "your login")
	login := fs.String("login", "", "login of the user to restore")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.authenticate(ctx, *caller); err != nil {
		return err
	}

	msg, err := a.client.RestoreUser(ctx, *login)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func printUser(w io.Writer, u *api.UserSummary) {
	fmt.Fprintf(w, "Login:    %s\n", u.Login)
	fmt.Fprintf(w, "Name:     %s\n", u.Name)
	fmt.Fprintf(w, "Gender:   %d\n", u.Gender)
	if u.Birthday != nil {
		fmt.Fprintf(w, "Birthday: %s\n", u.Birthday.Format("2006-01-02"))
	}
	if u.IsActive != nil {
		fmt.Fprintf(w, "Active:   %t\n", *u.IsActive)
	}
}
