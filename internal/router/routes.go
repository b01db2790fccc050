package router

import "billed/internal/core"

// Path identifiers for the route table.
const (
	PathLogin   = "/login"
	PathBills   = "/bills"
	PathNewBill = "/bills/new"
)

// View names as defined in the embedded templates.
const (
	ViewLogin   = "login"
	ViewBills   = "bills"
	ViewNewBill = "new_bill"
)

// Route pairs a view with the roles allowed to see it. An empty role list
// means the route is public.
type Route struct {
	View  string
	Title string
	Roles []string
}

// Table is the static route table: path identifier to route. It never
// changes after process start.
var Table = map[string]Route{
	PathLogin:   {View: ViewLogin, Title: "Billed"},
	PathBills:   {View: ViewBills, Title: "Mes notes de frais", Roles: []string{core.RoleEmployee}},
	PathNewBill: {View: ViewNewBill, Title: "Envoyer une note de frais", Roles: []string{core.RoleEmployee}},
}

// Allowed reports whether the role may access the route.
func (rt Route) Allowed(role string) bool {
	if len(rt.Roles) == 0 {
		return true
	}
	for _, r := range rt.Roles {
		if r == role {
			return true
		}
	}
	return false
}
