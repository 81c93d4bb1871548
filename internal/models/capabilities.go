package models

// Capability is a named permission checked against an actor's role before
// an operation proceeds.
type Capability string

const (
	CapCreateComplaint   Capability = "create_complaint"
	CapViewOwnComplaints Capability = "view_own_complaints"
	CapViewAllComplaints Capability = "view_all_complaints"
	CapUpdateStatus      Capability = "update_status"
	CapAssign            Capability = "assign"
	CapComment           Capability = "comment"
	CapViewPublic        Capability = "view_public"
)

var (
	citizenCaps = []Capability{
		CapCreateComplaint,
		CapViewOwnComplaints,
	}
	authorityCaps = []Capability{
		CapViewAllComplaints,
		CapUpdateStatus,
		CapAssign,
		CapComment,
	}

	roleCaps = map[Role]map[Capability]bool{
		RoleCitizen:   capSet(citizenCaps),
		RoleAuthority: capSet(authorityCaps),
		// Admin is a strict superset: the union of every other role's
		// capabilities, computed here once rather than per capability.
		RoleAdmin: capSet(append(append([]Capability{}, citizenCaps...), authorityCaps...)),
	}
)

func capSet(caps []Capability) map[Capability]bool {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Can reports whether the role satisfies the capability. CapViewPublic is
// granted to everyone, including unauthenticated callers.
func (r Role) Can(c Capability) bool {
	if c == CapViewPublic {
		return true
	}
	return roleCaps[r][c]
}
