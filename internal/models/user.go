package models

// Role represents what a registered user is allowed to do.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleProgrammer Role = "programmer"
)

// CanManageTasks reports whether the role may create tasks, manage users,
// and reverse archived tasks.
func (r Role) CanManageTasks() bool {
	return r == RoleAdmin
}

// CanExecuteTasks reports whether the role may be assigned tasks and close
// them. Admins act as assignees too, so both roles qualify.
func (r Role) CanExecuteTasks() bool {
	return r == RoleAdmin || r == RoleProgrammer
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleProgrammer
}

// User is a registered chat identity. The ID is the external chat id and
// never changes; neither does the role once the user is created.
type User struct {
	ID   int64
	Name string
	Role Role
}
