package entity

import "time"

// Company contribuyente emisor (tenant). El RUT se guarda en formato canónico 12.345.678-5.
type Company struct {
	ID        string
	RUT       string
	Name      string // razón social
	Giro      string // actividad económica
	Address   string
	Comuna    string
	Email     string
	Status    string // active, suspended
	CreatedAt time.Time
	UpdatedAt time.Time
}
