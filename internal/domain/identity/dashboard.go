package identity

// Panel describes the dashboard a role lands on. The mapping is a closed
// variant resolved through an exhaustive switch so adding a role without a
// panel fails to compile instead of falling through a lookup table.
type Panel struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// PanelFor resolves the dashboard panel for a single role.
func PanelFor(role Role) Panel {
	switch role {
	case RoleAdmin:
		return Panel{Slug: "admin", Title: "Administration", Path: "/admin"}
	case RolePresidente:
		return Panel{Slug: "presidencia", Title: "Presidência", Path: "/gov/presidencia"}
	case RoleMinistro:
		return Panel{Slug: "ministerio", Title: "Ministério", Path: "/gov/ministerio"}
	case RoleSenador:
		return Panel{Slug: "senado", Title: "Senado", Path: "/gov/senado"}
	case RoleDeputado:
		return Panel{Slug: "camara", Title: "Câmara", Path: "/gov/camara"}
	case RoleJuiz:
		return Panel{Slug: "tribunal", Title: "Tribunal", Path: "/justica/tribunal"}
	case RolePolice:
		return Panel{Slug: "policia", Title: "Polícia", Path: "/seguranca/policia"}
	case RoleAGIES:
		return Panel{Slug: "agies", Title: "AGIES", Path: "/seguranca/agies"}
	case RoleForcasArmadas:
		return Panel{Slug: "forcas-armadas", Title: "Forças Armadas", Path: "/seguranca/forcas-armadas"}
	case RoleCitizen:
		return Panel{Slug: "cidadao", Title: "Painel do Cidadão", Path: "/painel"}
	default:
		// Unreachable for values produced by ParseRole; citizens are the
		// conservative landing for anything else.
		return Panel{Slug: "cidadao", Title: "Painel do Cidadão", Path: "/painel"}
	}
}

// PanelForProfile resolves the panel for a profile's highest-precedence role.
func PanelForProfile(p Profile) Panel {
	return PanelFor(p.Roles.Primary())
}
