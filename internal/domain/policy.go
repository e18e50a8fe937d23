package domain

// Identity is the caller identity resolved from an API key. The zero value
// is anonymous.
type Identity struct {
	TenantID string
	Role     KeyRole
}

// TenantIdentity returns the identity of a single tenant.
func TenantIdentity(tenantID string) Identity {
	return Identity{TenantID: tenantID, Role: KeyRoleTenant}
}

// ServiceIdentity returns the administrative/service identity.
func ServiceIdentity() Identity {
	return Identity{Role: KeyRoleService}
}

// IsAnonymous returns true when no identity was established.
func (i Identity) IsAnonymous() bool {
	return i.Role == ""
}

// IsService returns true for the administrative/service identity.
func (i Identity) IsService() bool {
	return i.Role == KeyRoleService
}

// Principal is the fully resolved caller evaluated by Authorize: either a
// tenant record, the service identity, or anonymous (both fields unset).
type Principal struct {
	Tenant  *Tenant
	Service bool
}

// Anonymous reports whether the principal carries no identity at all.
func (p Principal) Anonymous() bool {
	return !p.Service && p.Tenant == nil
}

// Operation is an access-policy operation on a resource.
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Resource describes the ownership facts of the object an operation targets.
// A nil OwnerID means a global/shared resource.
type Resource struct {
	OwnerID   *string
	CourseTag *string
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Allowed returns true for an Allow decision.
func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Authorize evaluates the access policy for a principal, operation, and
// resource. The rules are the declarative row-level predicates of the store,
// checked explicitly at every entrypoint:
//
//   - the service identity bypasses all restrictions
//   - read:   ownership OR course match OR unrestricted-global
//   - write, update, delete: ownership only
//   - anonymous principals are always denied
func Authorize(p Principal, op Operation, res Resource) Decision {
	if p.Service {
		return Allow
	}
	if p.Tenant == nil {
		return Deny
	}

	owned := res.OwnerID != nil && *res.OwnerID == p.Tenant.ID

	switch op {
	case OpRead:
		if owned {
			return Allow
		}
		if res.OwnerID != nil {
			// Private to another tenant.
			return Deny
		}
		if res.CourseTag == nil {
			// Unrestricted global.
			return Allow
		}
		if p.Tenant.CourseTag != nil && *p.Tenant.CourseTag == *res.CourseTag {
			return Allow
		}
		return Deny
	case OpWrite, OpUpdate, OpDelete:
		if owned {
			return Allow
		}
		return Deny
	}

	return Deny
}
