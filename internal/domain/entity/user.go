package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// User usuario del sistema (pertenece a una Company).
// LocationID solo aplica a staff: queda atado a su ubicación asignada.
type User struct {
	ID         string
	CompanyID  string
	Email      string
	Name       string
	Role       string // admin, manager, staff
	LocationID string // vacío para admin/manager
	Status     string // active, inactive, suspended
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CanAccessLocation admin y manager operan sobre cualquier ubicación de su
// empresa; staff solo sobre la suya.
func (u *User) CanAccessLocation(locationID string) bool {
	switch u.Role {
	case RoleAdmin, RoleManager:
		return true
	case RoleStaff:
		return u.LocationID == locationID
	}
	return false
}
