package roles

// Role is the permission level of a profile.
type Role string

const (
	Staff      Role = "staff"
	Technician Role = "technician"
	Admin      Role = "admin"
)

type HierarchyLevel int

const (
	StaffLevel      HierarchyLevel = 1
	TechnicianLevel HierarchyLevel = 2
	AdminLevel      HierarchyLevel = 3
)

func (r Role) GetHierarchyLevel() HierarchyLevel {
	switch r {
	case Staff:
		return StaffLevel
	case Technician:
		return TechnicianLevel
	case Admin:
		return AdminLevel
	default:
		return 0
	}
}

// HasPermission reports whether r is at least requiredRole. Unknown roles
// have no permissions.
func (r Role) HasPermission(requiredRole Role) bool {
	level := r.GetHierarchyLevel()
	return level > 0 && level >= requiredRole.GetHierarchyLevel()
}

func (r Role) IsValid() bool {
	switch r {
	case Staff, Technician, Admin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
