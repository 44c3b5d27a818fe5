package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

const sessionKeyPattern = "session:*"

type clearSessionsOptions struct {
	UserID string
	All    bool
	DryRun bool
	Yes    bool
}

func runListSessions(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-sessions", flag.ContinueOnError)
	userID := fs.String("user", "", "only sessions for this user id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()

	client, err := connectRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer closeRedis(cmdCtx.Logger, client)

	sessions, err := scanSessions(ctx, client, *userID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(tw, "SESSION ID\tUSER ID\tEMAIL\tEXPIRES\n"); err != nil {
		return err
	}
	for _, s := range sessions {
		if err := writef(tw, "%s\t%s\t%s\t%s\n",
			s.ID, s.UserID, s.Identity.Email, s.ExpiresAt.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runClearSessions(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("clear-sessions", flag.ContinueOnError)
	userID := fs.String("user", "", "only sessions for this user id")
	all := fs.Bool("all", false, "clear every session")
	dryRun := fs.Bool("dry-run", false, "report what would be deleted without deleting")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := clearSessionsOptions{UserID: *userID, All: *all, DryRun: *dryRun, Yes: *yes}
	if opts.UserID == "" && !opts.All {
		return fmt.Errorf("pass -user <id> or -all")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()

	client, err := connectRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer closeRedis(cmdCtx.Logger, client)

	sessions, err := scanSessions(ctx, client, opts.UserID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		cmdCtx.Logger.Info("no matching sessions")
		return nil
	}

	if opts.DryRun {
		cmdCtx.Logger.Info("dry run", "sessions", len(sessions))
		return nil
	}
	if !opts.Yes {
		if err := confirm(fmt.Sprintf("delete %d session(s)?", len(sessions))); err != nil {
			return err
		}
	}

	deleted := 0
	for _, s := range sessions {
		if err := client.Del(ctx, "session:"+s.ID).Err(); err != nil {
			return fmt.Errorf("delete session %s: %w", s.ID, err)
		}
		deleted++
	}

	cmdCtx.Logger.Info("sessions cleared", "deleted", deleted)
	return nil
}

// scanSessions walks the session keyspace with SCAN so the command stays safe
// against large keyspaces.
func scanSessions(ctx context.Context, client redis.UniversalClient, userID string) ([]identity.Session, error) {
	var sessions []identity.Session
	iter := client.Scan(ctx, 0, sessionKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		raw, err := client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if err == redis.Nil {
				// Expired between scan and get.
				continue
			}
			return nil, fmt.Errorf("get %s: %w", iter.Val(), err)
		}

		var sess identity.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Val(), err)
		}
		if userID != "" && sess.UserID != userID {
			continue
		}
		sessions = append(sessions, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return sessions, nil
}

func confirm(prompt string) error {
	if err := writef(os.Stdout, "%s [y/N]: ", prompt); err != nil {
		return err
	}
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
		return fmt.Errorf("aborted")
	}
	return nil
}
