package core

// Roles carried by an authenticated request.
const (
	RoleFaculty     = "Faculty"
	RoleCoordinator = "Project Coordinator"
	RoleDEO         = "DEO"
	RoleStudent     = "student"
)

var (
	FacultyRoles = []string{RoleDEO, RoleCoordinator, RoleFaculty}
	AllRoles     = []string{RoleDEO, RoleCoordinator, RoleFaculty, RoleStudent}

	// ScoringRoles may submit review scores.
	ScoringRoles = []string{RoleFaculty}
	// AttendanceRoles may mark or reset attendance.
	AttendanceRoles = []string{RoleFaculty, RoleCoordinator}
	// ManagerRoles may upload spreadsheets and change or delete registrations.
	ManagerRoles = []string{RoleCoordinator, RoleDEO}
)

// Principal identifies the caller of a request.
type Principal struct {
	ID   string // faculty id or registration number
	Role string
}

// RoleAllowed reports whether `role` is one of `allowed`.
// An empty `allowed` list admits any known role.
func RoleAllowed(role string, allowed ...string) bool {
	if len(allowed) == 0 {
		allowed = AllRoles
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// IsFacultyRole reports whether `role` is a staff role.
func IsFacultyRole(role string) bool {
	return RoleAllowed(role, FacultyRoles...)
}
