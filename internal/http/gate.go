package httpx

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// GateHandler serves the role-dual service entry points. Each service (bank,
// courthouse, police station) has a citizen-facing view and an operator panel;
// the gate decides which one a visitor reaches, or asks when both apply.
type GateHandler struct {
	Gates map[string]identity.ServiceGate
}

// Enter handles GET /services/{service}.
func (h *GateHandler) Enter(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("service")
	gate, ok := h.Gates[slug]
	if !ok {
		http.NotFound(w, r)
		return
	}

	st := StateFromContext(r.Context())
	switch gate.Decide(st) {
	case identity.GatePending:
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	case identity.GateLogin:
		// Preserve the citizen path as the post-login destination.
		target := "/login?redirect_uri=" + url.QueryEscape(gate.CitizenPath)
		http.Redirect(w, r, target, http.StatusSeeOther)
	case identity.GateChoice:
		h.renderChoice(w, r, gate)
	case identity.GateSetup:
		http.Redirect(w, r, gate.SetupPath, http.StatusSeeOther)
	default:
		http.Redirect(w, r, gate.CitizenPath, http.StatusSeeOther)
	}
}

// renderChoice presents exactly two actions and never navigates on its own.
func (h *GateHandler) renderChoice(w http.ResponseWriter, r *http.Request, gate identity.ServiceGate) {
	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"outcome":      "choice",
			"citizen_path": gate.CitizenPath,
			"panel_path":   gate.PanelPath,
		})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, gateChoiceHTML, gate.CitizenPath, gate.PanelPath)
}

const gateChoiceHTML = `<!doctype html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Como deseja entrar?</title></head>
<body>
<main>
<h1>Como deseja entrar?</h1>
<p><a href="%s">Como cidadão</a></p>
<p><a href="%s">Como operador</a></p>
</main>
</body>
</html>
`
