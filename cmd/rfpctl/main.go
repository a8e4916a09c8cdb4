// Command rfpctl runs operator tasks against the rfpdesk table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"rfpdesk/api/internal/app"
	"rfpdesk/api/internal/authpw"
	"rfpdesk/api/internal/config"
	"rfpdesk/api/internal/logger"
	"rfpdesk/api/internal/rbac"
)

const usage = `usage: rfpctl <command> [flags]

commands:
  migrate          apply pending Postgres migrations
  ping             check table, session store and object storage
  reconcile-links  rebuild RFP to proposal links from the proposals
  purge-cache      delete cached integration records of one owner
  create-user      register a user
  set-role         change a user's role
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintln(os.Stderr, "rfpctl:", err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "rfpctl:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(out)
	exec := cmd(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return exec(ctx, a, out)
}

type command func(fs *flag.FlagSet) func(ctx context.Context, a *app.App, out io.Writer) error

var commands = map[string]command{
	"migrate":         migrateCmd,
	"ping":            pingCmd,
	"reconcile-links": reconcileCmd,
	"purge-cache":     purgeCacheCmd,
	"create-user":     createUserCmd,
	"set-role":        setRoleCmd,
}

func migrateCmd(*flag.FlagSet) func(context.Context, *app.App, io.Writer) error {
	return func(ctx context.Context, a *app.App, out io.Writer) error {
		applied, err := a.Migrate(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "no pending migrations")
		}
		for _, name := range applied {
			fmt.Fprintln(out, "applied", name)
		}
		return nil
	}
}

func pingCmd(*flag.FlagSet) func(context.Context, *app.App, io.Writer) error {
	return func(ctx context.Context, a *app.App, out io.Writer) error {
		if err := a.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "ok (%s backend)\n", a.Config.Backend)
		return nil
	}
}

func reconcileCmd(*flag.FlagSet) func(context.Context, *app.App, io.Writer) error {
	return func(ctx context.Context, a *app.App, out io.Writer) error {
		report, err := a.Repos.Links.Reconcile(ctx)
		if err != nil {
			return err
		}
		a.Log.Infow("links reconciled", "proposals", report.Proposals, "rewritten", report.Rewritten, "removed", report.Removed, "orphaned", report.Orphaned)
		fmt.Fprintf(out, "proposals=%d rewritten=%d removed=%d orphaned=%d\n", report.Proposals, report.Rewritten, report.Removed, report.Orphaned)
		return nil
	}
}

func purgeCacheCmd(fs *flag.FlagSet) func(context.Context, *app.App, io.Writer) error {
	kind := fs.String("kind", "RFP", "owner kind (USER, RFP, PROPOSAL, TEMPLATE, COMPANY)")
	owner := fs.String("owner", "", "owner id")
	provider := fs.String("provider", "", "integration provider")
	return func(ctx context.Context, a *app.App, out io.Writer) error {
		if *owner == "" || *provider == "" {
			return fmt.Errorf("%w: -owner and -provider are required", errUsage)
		}
		n, err := a.Repos.Integrations.PurgeCache(ctx, *kind, *owner, *provider)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "purged %d cache records\n", n)
		return nil
	}
}

func createUserCmd(fs *flag.FlagSet) func(context.Context, *app.App, io.Writer) error {
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email address")
	role := fs.String("role", string(rbac.DefaultRole), "role")
	return func(ctx context.Context, a *app.App, out io.Writer) error {
		password := os.Getenv("RFPDESK_NEW_PASSWORD")
		if password == "" {
			return fmt.Errorf("%w: set RFPDESK_NEW_PASSWORD", errUsage)
		}
		tokens, err := a.Auth.SignUp(ctx, authpw.SignUpRequest{Username: *username, Email: *email, Password: password})
		if err != nil {
			if tokens == nil {
				return err
			}
			a.Log.Warnw("user created without a session", "user_id", tokens.UserID, "error", err)
		}
		if r := rbac.Normalize(*role); r != rbac.DefaultRole {
			if _, err := a.Repos.Users.SetRole(ctx, tokens.UserID, string(r)); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, tokens.UserID)
		return nil
	}
}

func setRoleCmd(fs *flag.FlagSet) func(context.Context, *app.App, io.Writer) error {
	userID := fs.String("user", "", "user id")
	role := fs.String("role", "", "viewer, reviewer, editor or admin")
	return func(ctx context.Context, a *app.App, out io.Writer) error {
		r := rbac.Normalize(*role)
		if *userID == "" || string(r) != *role {
			return fmt.Errorf("%w: -user and a valid -role are required", errUsage)
		}
		user, err := a.Repos.Users.SetRole(ctx, *userID, string(r))
		if err != nil {
			return err
		}
		if _, err := a.Sessions.RevokeUser(ctx, user.ID); err != nil {
			a.Log.Warnw("revoke sessions after role change failed", "user_id", user.ID, "error", err)
		}
		fmt.Fprintf(out, "%s is now %s\n", user.Username, user.Role)
		return nil
	}
}
