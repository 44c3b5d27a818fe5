// Package devseed populates a development database with a cast of profiles
// covering every role, so guards and gates can be exercised without clicking
// through registration.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/civisim/civisim-api/internal/data"
	"github.com/civisim/civisim-api/internal/domain/identity"
)

type seedProfile struct {
	Email string
	Roles []identity.Role
}

// seedProfiles is one profile per privileged role plus a plain citizen.
// User IDs are derived from the email so reseeding is idempotent.
var seedProfiles = []seedProfile{
	{Email: "cidadao@civisim.dev"},
	{Email: "admin@civisim.dev", Roles: []identity.Role{identity.RoleAdmin}},
	{Email: "presidente@civisim.dev", Roles: []identity.Role{identity.RolePresidente}},
	{Email: "ministro@civisim.dev", Roles: []identity.Role{identity.RoleMinistro}},
	{Email: "senador@civisim.dev", Roles: []identity.Role{identity.RoleSenador}},
	{Email: "deputado@civisim.dev", Roles: []identity.Role{identity.RoleDeputado}},
	{Email: "juiz@civisim.dev", Roles: []identity.Role{identity.RoleJuiz}},
	{Email: "police@civisim.dev", Roles: []identity.Role{identity.RolePolice}},
	{Email: "agies@civisim.dev", Roles: []identity.Role{identity.RoleAGIES}},
	{Email: "forcas@civisim.dev", Roles: []identity.Role{identity.RoleForcasArmadas}},
}

// Run seeds the development profiles. Safe to run repeatedly: profile
// creation is the same idempotent ensure call the login path uses, and role
// grants skip roles already held.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	repo := data.NewProfileRepo(db)

	for _, p := range seedProfiles {
		userID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("civisim-dev:"+p.Email)).String()
		if err := repo.EnsureExists(ctx, identity.Identity{UserID: userID, Email: p.Email}); err != nil {
			return fmt.Errorf("ensure profile %s: %w", p.Email, err)
		}
		for _, role := range p.Roles {
			if err := repo.GrantRole(ctx, userID, role); err != nil {
				return fmt.Errorf("grant %s to %s: %w", role, p.Email, err)
			}
		}
		logger.InfoContext(ctx, "seeded profile", "email", p.Email, "user_id", userID, "roles", p.Roles)
	}
	return nil
}
