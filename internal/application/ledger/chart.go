package ledger

import "github.com/jhoicas/libro-tributario/internal/domain/entity"

// Cuentas que usan los asientos automáticos (ventas, cobros, gastos).
const (
	AccountCaja          = "1.1.01"
	AccountBanco         = "1.1.02"
	AccountClientes      = "1.1.03"
	AccountIVACredito    = "1.1.04"
	AccountActivoFijo    = "1.2.01"
	AccountProveedores   = "2.1.01"
	AccountIVADebito     = "2.1.02"
	AccountRemunPorPagar = "2.1.03"
	AccountCapital       = "3.1.01"
	AccountResultados    = "3.1.02"
	AccountVentas        = "4.1.01"
	AccountVentasExentas = "4.1.02"
	AccountCostoVentas   = "5.1.01"
	AccountGastosGrales  = "5.1.02"
	AccountRemuneracion  = "5.1.03"
	AccountArriendos     = "5.1.04"
)

// DefaultChart plan de cuentas mínimo de una pyme chilena.
func DefaultChart() []entity.Account {
	return []entity.Account{
		{Code: AccountCaja, Name: "Caja", Class: entity.ClassActivo},
		{Code: AccountBanco, Name: "Banco", Class: entity.ClassActivo},
		{Code: AccountClientes, Name: "Clientes", Class: entity.ClassActivo},
		{Code: AccountIVACredito, Name: "IVA Crédito Fiscal", Class: entity.ClassActivo},
		{Code: AccountActivoFijo, Name: "Activo Fijo", Class: entity.ClassActivo},
		{Code: AccountProveedores, Name: "Proveedores", Class: entity.ClassPasivo},
		{Code: AccountIVADebito, Name: "IVA Débito Fiscal", Class: entity.ClassPasivo},
		{Code: AccountRemunPorPagar, Name: "Remuneraciones por Pagar", Class: entity.ClassPasivo},
		{Code: AccountCapital, Name: "Capital", Class: entity.ClassCapital},
		{Code: AccountResultados, Name: "Resultados Acumulados", Class: entity.ClassCapital},
		{Code: AccountVentas, Name: "Ventas", Class: entity.ClassIngreso},
		{Code: AccountVentasExentas, Name: "Ventas Exentas", Class: entity.ClassIngreso},
		{Code: AccountCostoVentas, Name: "Costo de Ventas", Class: entity.ClassGasto},
		{Code: AccountGastosGrales, Name: "Gastos Generales", Class: entity.ClassGasto},
		{Code: AccountRemuneracion, Name: "Remuneraciones", Class: entity.ClassGasto},
		{Code: AccountArriendos, Name: "Arriendos", Class: entity.ClassGasto},
	}
}
