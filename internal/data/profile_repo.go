package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/civisim/civisim-api/internal/errors"

	"github.com/civisim/civisim-api/internal/data/pgxutil"
	"github.com/civisim/civisim-api/internal/domain/identity"
	"github.com/civisim/civisim-api/internal/ports"
)

// profileRow mirrors the profiles table. Roles are stored as a text[] and
// normalized into a RoleSet at this boundary.
type profileRow struct {
	UserID         string         `db:"user_id"`
	Username       string         `db:"username"`
	DisplayName    string         `db:"display_name"`
	Email          string         `db:"email"`
	Phone          sql.NullString `db:"phone"`
	Roles          []string       `db:"roles"`
	OnboardingDone bool           `db:"onboarding_done"`
	SocialHandle   sql.NullString `db:"social_handle"`
	CreatedAt      sql.NullTime   `db:"created_at"`
	UpdatedAt      sql.NullTime   `db:"updated_at"`
}

func (row profileRow) toDomain() (identity.Profile, error) {
	roles, err := identity.ParseRoles(row.Roles)
	if err != nil {
		return identity.Profile{}, fmt.Errorf("profile %s: %w", row.UserID, err)
	}
	p := identity.Profile{
		UserID:         row.UserID,
		Username:       row.Username,
		DisplayName:    row.DisplayName,
		Email:          row.Email,
		Phone:          row.Phone.String,
		Roles:          roles,
		OnboardingDone: row.OnboardingDone,
		SocialHandle:   row.SocialHandle.String,
	}
	if row.CreatedAt.Valid {
		p.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		p.UpdatedAt = row.UpdatedAt.Time
	}
	return p, nil
}

const profileColumns = `user_id, username, display_name, email, phone, roles, onboarding_done, social_handle, created_at, updated_at`

// ProfileRepo provides database operations for user profiles.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider (useful for tests).
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

// Fetch returns the profile for a user id, or ports.ErrProfileNotFound.
func (r *ProfileRepo) Fetch(ctx context.Context, userID string) (identity.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return identity.Profile{}, apperrors.Validation("user id is required")
	}

	var row profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+profileColumns+`
			FROM profiles
			WHERE user_id = $1
		`, userID)
		if err != nil {
			return fmt.Errorf("query profile: %w", err)
		}
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Profile{}, ports.ErrProfileNotFound
		}
		return identity.Profile{}, apperrors.MapDBError(err)
	}
	return row.toDomain()
}

// EnsureExists invokes the idempotent server-side creation function for the
// given identity. It succeeds whether the row was created or already present.
func (r *ProfileRepo) EnsureExists(ctx context.Context, ident identity.Identity) error {
	if strings.TrimSpace(ident.UserID) == "" {
		return apperrors.Validation("user id is required")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx,
			`SELECT ensure_profile_exists($1, $2, $3)`,
			ident.UserID, ident.Email, nullable(ident.Phone),
		)
		return execErr
	})
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("ensure profile %s: %w", ident.UserID, err))
	}
	return nil
}

// ResolveIdentifier maps a username or phone number to the account email, or
// ports.ErrAccountNotFound. Email identifiers are resolved by the caller.
func (r *ProfileRepo) ResolveIdentifier(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", apperrors.Validation("identifier is required")
	}

	var email string
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT email
			FROM profiles
			WHERE lower(username) = lower($1) OR phone = $1
			LIMIT 1
		`, identifier).Scan(&email)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ports.ErrAccountNotFound
		}
		return "", apperrors.MapDBError(err)
	}
	return email, nil
}

// GrantRole adds a role to the profile's role set. Granting an already-held
// role is a no-op. Returns ports.ErrProfileNotFound for unknown users.
func (r *ProfileRepo) GrantRole(ctx context.Context, userID string, role identity.Role) error {
	return r.updateRoles(ctx, userID, `
		UPDATE profiles
		SET roles = CASE WHEN $2 = ANY(roles) THEN roles ELSE array_append(roles, $2) END,
		    updated_at = $3
		WHERE user_id = $1
	`, role)
}

// RevokeRole removes a role from the profile's role set. The citizen role
// cannot be revoked; every profile keeps baseline access.
func (r *ProfileRepo) RevokeRole(ctx context.Context, userID string, role identity.Role) error {
	if role == identity.RoleCitizen {
		return apperrors.Validation("the citizen role cannot be revoked")
	}
	return r.updateRoles(ctx, userID, `
		UPDATE profiles
		SET roles = array_remove(roles, $2),
		    updated_at = $3
		WHERE user_id = $1
	`, role)
}

func (r *ProfileRepo) updateRoles(ctx context.Context, userID, query string, role identity.Role) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperrors.Validation("user id is required")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, query, userID, string(role), r.timeProvider.Now().UTC())
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return ports.ErrProfileNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ports.ErrProfileNotFound) {
			return err
		}
		return apperrors.MapDBError(fmt.Errorf("update roles for %s: %w", userID, err))
	}
	return nil
}

// MarkOnboarded records completion of the first-login onboarding flow.
func (r *ProfileRepo) MarkOnboarded(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperrors.Validation("user id is required")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE profiles
			SET onboarding_done = TRUE, updated_at = $2
			WHERE user_id = $1
		`, userID, r.timeProvider.Now().UTC())
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return ports.ErrProfileNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ports.ErrProfileNotFound) {
			return err
		}
		return apperrors.MapDBError(err)
	}
	return nil
}

// List returns profiles ordered by creation time, newest first. Used by the
// admin CLI for inspection.
func (r *ProfileRepo) List(ctx context.Context, limit int) ([]identity.Profile, error) {
	if limit <= 0 {
		limit = 50
	}

	var rowsOut []profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+profileColumns+`
			FROM profiles
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
		if err != nil {
			return fmt.Errorf("query profiles: %w", err)
		}
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	out := make([]identity.Profile, 0, len(rowsOut))
	for _, row := range rowsOut {
		p, convErr := row.toDomain()
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, p)
	}
	return out, nil
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
