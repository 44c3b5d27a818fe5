package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/civisim/civisim-api/config"
	"github.com/civisim/civisim-api/internal/bootstrap"
	"github.com/civisim/civisim-api/internal/data"
	"github.com/civisim/civisim-api/internal/devseed"
	"github.com/civisim/civisim-api/internal/domain/identity"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger(os.Getenv("LOG_LEVEL"))

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrate,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run migrations and seed development profiles (one per role)",
			run:         runDBSeed,
		},
		"grant-role": {
			name:        "grant-role",
			description: "Grant a role to a profile",
			run:         runGrantRole,
		},
		"revoke-role": {
			name:        "revoke-role",
			description: "Revoke a role from a profile (citizen cannot be revoked)",
			run:         runRevokeRole,
		},
		"list-profiles": {
			name:        "list-profiles",
			description: "List profiles with their roles",
			run:         runListProfiles,
		},
		"list-sessions": {
			name:        "list-sessions",
			description: "List active sessions in Redis",
			run:         runListSessions,
		},
		"clear-sessions": {
			name:        "clear-sessions",
			description: "Delete active sessions from Redis (forces re-login)",
			run:         runClearSessions,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: civisim-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "seed timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !cmdCtx.Config.IsDev {
		return fmt.Errorf("db-seed is restricted to development mode (set DEV=true)")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	if err := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); err != nil {
		return err
	}
	return devseed.Run(ctx, db, cmdCtx.Logger)
}

type roleChangeOptions struct {
	UserID string
	Role   identity.Role
}

func parseRoleChangeFlags(name string, args []string) (roleChangeOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	userID := fs.String("user", "", "profile user id (UUID)")
	roleTag := fs.String("role", "", "role tag, e.g. juiz or police")
	if err := fs.Parse(args); err != nil {
		return roleChangeOptions{}, err
	}
	if *userID == "" {
		return roleChangeOptions{}, fmt.Errorf("-user is required")
	}
	role, err := identity.ParseRole(*roleTag)
	if err != nil {
		return roleChangeOptions{}, fmt.Errorf("-role: %w", err)
	}
	return roleChangeOptions{UserID: *userID, Role: role}, nil
}

func runGrantRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseRoleChangeFlags("grant-role", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	if err := data.NewProfileRepo(db).GrantRole(ctx, opts.UserID, opts.Role); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}

	cmdCtx.Logger.Info("role granted", "user_id", opts.UserID, "role", opts.Role)
	cmdCtx.Logger.Info("active sessions pick the change up on their next resolution; run clear-sessions to force it")
	return nil
}

func runRevokeRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseRoleChangeFlags("revoke-role", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	if err := data.NewProfileRepo(db).RevokeRole(ctx, opts.UserID, opts.Role); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}

	cmdCtx.Logger.Info("role revoked", "user_id", opts.UserID, "role", opts.Role)
	return nil
}

func runListProfiles(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-profiles", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum number of profiles to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	profiles, err := data.NewProfileRepo(db).List(ctx, *limit)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(tw, "USER ID\tUSERNAME\tEMAIL\tROLES\tONBOARDED\n"); err != nil {
		return err
	}
	for _, p := range profiles {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%t\n",
			p.UserID, p.Username, p.Email, strings.Join(p.Roles.Strings(), ","), p.OnboardingDone); err != nil {
			return err
		}
	}
	return tw.Flush()
}
