package claims

// Default role names.
const (
	AdminRole = "mcp-admin"
	UserRole  = "mcp-user"
)

// Policy maps the admin and user capabilities to role names. The zero value
// uses AdminRole and UserRole. Admin does not imply user.
type Policy struct {
	AdminRole string
	UserRole  string
}

// DefaultPolicy is the policy used by IsAdmin and IsUser.
var DefaultPolicy = Policy{AdminRole: AdminRole, UserRole: UserRole}

// IsAdmin reports whether cs carries the admin role.
func (p Policy) IsAdmin(cs ClaimSet) bool {
	return cs.HasRole(p.adminRole())
}

// IsUser reports whether cs carries the user role.
func (p Policy) IsUser(cs ClaimSet) bool {
	return cs.HasRole(p.userRole())
}

func (p Policy) adminRole() string {
	if p.AdminRole == "" {
		return AdminRole
	}
	return p.AdminRole
}

func (p Policy) userRole() string {
	if p.UserRole == "" {
		return UserRole
	}
	return p.UserRole
}

// IsAdmin reports whether cs carries the mcp-admin role.
func IsAdmin(cs ClaimSet) bool { return DefaultPolicy.IsAdmin(cs) }

// IsUser reports whether cs carries the mcp-user role.
func IsUser(cs ClaimSet) bool { return DefaultPolicy.IsUser(cs) }
