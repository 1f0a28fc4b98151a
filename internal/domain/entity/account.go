package entity

import "time"

// AccountClass clase de cuenta del plan contable.
type AccountClass string

const (
	ClassActivo  AccountClass = "activo"
	ClassPasivo  AccountClass = "pasivo"
	ClassCapital AccountClass = "capital"
	ClassIngreso AccountClass = "ingreso"
	ClassGasto   AccountClass = "gasto"
)

// Valid indica si la clase es una de las reconocidas.
func (c AccountClass) Valid() bool {
	switch c {
	case ClassActivo, ClassPasivo, ClassCapital, ClassIngreso, ClassGasto:
		return true
	}
	return false
}

// DebitNature activos y gastos aumentan por el debe; el resto por el haber.
func (c AccountClass) DebitNature() bool {
	return c == ClassActivo || c == ClassGasto
}

// Account cuenta del plan de cuentas de una empresa. No guarda saldo: el saldo
// se deriva siempre de las líneas contabilizadas.
type Account struct {
	CompanyID string
	Code      string // jerárquico: 1.1.03
	Name      string
	Class     AccountClass
	CreatedAt time.Time
}
