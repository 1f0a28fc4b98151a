package dto

import "time"

// CreateCompanyRequest alta de un contribuyente emisor junto a su primer administrador.
type CreateCompanyRequest struct {
	RUT           string `json:"rut" validate:"required,min=8,max=12"`
	Name          string `json:"name" validate:"required,min=1,max=200"`
	Giro          string `json:"giro" validate:"omitempty,max=200"`
	Address       string `json:"address"`
	Comuna        string `json:"comuna"`
	Email         string `json:"email" validate:"omitempty,email"`
	AdminEmail    string `json:"admin_email" validate:"omitempty,email"`
	AdminPassword string `json:"admin_password" validate:"omitempty,min=8"`
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID        string    `json:"id"`
	RUT       string    `json:"rut"`
	Name      string    `json:"name"`
	Giro      string    `json:"giro,omitempty"`
	Address   string    `json:"address,omitempty"`
	Comuna    string    `json:"comuna,omitempty"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Cuentas creadas por el plan por defecto (0 si ya existía o está deshabilitado).
	SeededAccounts int           `json:"seeded_accounts,omitempty"`
	Admin          *UserResponse `json:"admin,omitempty"`
}

// CompanyListResponse lista paginada de empresas.
type CompanyListResponse struct {
	Items []CompanyResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
