package entity

import "time"

// Roles válidos para User; coinciden con los del token.
const (
	RoleAdmin    = "admin"
	RoleContador = "contador"
	RoleOperador = "operador"
)

// User usuario de una empresa. Su ID es el actor que queda en la bitácora.
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string // bcrypt
	Name         string
	Role         string // admin, contador, operador
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
