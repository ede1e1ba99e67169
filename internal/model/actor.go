package model

// Role is the authority level of a staff member.
type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Actor identifies who is performing an operation.  The request layer has
// already authenticated both the staff member and the device.
type Actor struct {
	StaffID  string
	DeviceID string
	Role     Role
}

// IsAdmin reports whether the actor may use administrative overrides.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// SystemActor is used for background work such as the TTL sweep.
var SystemActor = Actor{}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StaffRef returns the staff id as a nullable column value.
func (a Actor) StaffRef() *string { return optional(a.StaffID) }

// DeviceRef returns the device id as a nullable column value.
func (a Actor) DeviceRef() *string { return optional(a.DeviceID) }
