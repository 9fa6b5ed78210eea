package auth

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
	RoleViewer  Role = "viewer"
)

type Capability string

const (
	CapCreateSale  Capability = "sale:create"
	CapAdjustStock Capability = "stock:adjust"
)

// Actor is the resolved identity a request acts as. It is always passed
// by parameter; nothing below the HTTP layer reads session state.
type Actor struct {
	ID   string
	Name string
	Role Role
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleCashier, RoleViewer:
		return Role(s), true
	}
	return "", false
}

var grants = map[Role]map[Capability]bool{
	RoleAdmin:   {CapCreateSale: true, CapAdjustStock: true},
	RoleManager: {CapCreateSale: true, CapAdjustStock: true},
	RoleCashier: {CapCreateSale: true},
	RoleViewer:  {},
}

// TableGate answers capability checks from a flat role grant table.
type TableGate struct{}

func NewTableGate() *TableGate { return &TableGate{} }

func (g *TableGate) Allows(a Actor, cap Capability) bool {
	return grants[a.Role][cap]
}

func (g *TableGate) CanCreateSale(a Actor) bool {
	return g.Allows(a, CapCreateSale)
}

func (g *TableGate) CanAdjustStock(a Actor) bool {
	return g.Allows(a, CapAdjustStock)
}
