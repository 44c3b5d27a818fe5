package httpx

import (
	"net/http"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// Area role sets for the guarded shell subtrees.
var (
	governmentRoles = identity.NewRoleSet(
		identity.RolePresidente,
		identity.RoleMinistro,
		identity.RoleSenador,
		identity.RoleDeputado,
	)
	securityRoles = identity.NewRoleSet(
		identity.RolePolice,
		identity.RoleAGIES,
		identity.RoleForcasArmadas,
	)
	justiceRoles = identity.NewRoleSet(identity.RoleJuiz)
)

// PanelHandlers serves the role-gated area entry points. The real content
// lives in the frontend; these endpoints confirm access and hand back the
// panel descriptor for the caller's primary role.
type PanelHandlers struct{}

func (h *PanelHandlers) serve(w http.ResponseWriter, r *http.Request) {
	profile, ok := ProfileFromContext(r.Context())
	if !ok {
		// Unreachable behind the guards; kept for direct mounting in tests.
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errNoSessionCookie,
		})
		return
	}
	WriteJSON(w, http.StatusOK, identity.PanelForProfile(*profile))
}

func registerPanelRoutes(mux *http.ServeMux, h *PanelHandlers) {
	// Admin entry from the public shell: silent redirect home for everyone
	// who is not an admin.
	mux.Handle("GET /admin", RequireAdminHome(http.HandlerFunc(h.serve)))
	// The admin area itself is strict: login redirect or an in-place 403.
	mux.Handle("GET /admin/", RequireAdminArea(http.HandlerFunc(h.serve)))

	mux.Handle("GET /api/gov/panel", RequireRoles(governmentRoles)(http.HandlerFunc(h.serve)))
	mux.Handle("GET /api/seguranca/panel", RequireRoles(securityRoles)(http.HandlerFunc(h.serve)))
	mux.Handle("GET /api/justica/panel", RequireRoles(justiceRoles)(http.HandlerFunc(h.serve)))

	// Citizen dashboard shell.
	mux.Handle("GET /painel", RequireSession(http.HandlerFunc(h.serve)))
}
