package domain

// Role identifies what kind of principal is acting on a ticket.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Capability names an action a role may perform.
type Capability string

const (
	CapabilityCreateTicket  Capability = "create_ticket"
	CapabilityReply         Capability = "reply"
	CapabilityReadInternal  Capability = "read_internal"
	CapabilityManageTickets Capability = "manage_tickets"
	CapabilityViewStats     Capability = "view_stats"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleCustomer: {
		CapabilityCreateTicket: true,
		CapabilityReply:        true,
	},
	RoleAdmin: {
		CapabilityCreateTicket:  true,
		CapabilityReply:         true,
		CapabilityReadInternal:  true,
		CapabilityManageTickets: true,
		CapabilityViewStats:     true,
	},
}

// Can reports whether the role holds the given capability.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// User is the read model for the external identity directory. The engine
// consumes it but does not own or validate the directory itself.
type User struct {
	ID   string
	Name string
	Role Role
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   string
	Role Role
	Name string
}

// SystemActor is used by scheduled jobs; timeline entries it produces carry
// a null actor id.
var SystemActor = Actor{ID: "", Role: RoleAdmin, Name: "system"}

// IsSystem reports whether the actor is the internal scheduler principal.
func (a Actor) IsSystem() bool {
	return a.ID == ""
}
