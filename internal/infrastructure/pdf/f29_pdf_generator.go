package pdf

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// GenerateF29 resumen del F29 del período. No reemplaza la declaración en el portal del SII.
func (g *MarotoPDFGenerator) GenerateF29(company *entity.Company, tp *entity.TaxPeriod) ([]byte, error) {
	if company == nil || tp == nil {
		return nil, fmt.Errorf("pdf: faltan empresa o período")
	}
	m := newMaroto("Resumen F29 "+tp.Period, company.Name)

	m.AddRows(row.New(16).Add(
		col.New(8).Add(
			text.New(company.Name, props.Text{Style: fontstyle.Bold, Size: 13, Top: 1}),
			text.New("R.U.T.: "+company.RUT, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("FORMULARIO 29", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New("Período "+tp.Period, props.Text{Size: 9, Align: align.Right, Top: 9}),
		),
	))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(
		f29Row("Ventas y servicios afectos (neto)", tp.VentasAfectas, false),
		f29Row("Ventas y servicios exentos", tp.VentasExentas, false),
		f29Row("Débito fiscal", tp.IvaVentas, true),
		f29Row("Compras afectas (neto)", tp.ComprasAfectas, false),
		f29Row("Crédito fiscal", tp.IvaCompras, true),
	)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	if tp.Payable() {
		m.AddRows(f29Row("IVA determinado a pagar", tp.IvaResultante, true))
	} else {
		m.AddRows(f29Row("Remanente de crédito fiscal", tp.Remanente(), true))
	}

	m.AddRows(line.NewRow(4))
	m.AddRows(row.New(6).Add(col.New(12).Add(text.New(
		fmt.Sprintf("Documentos: %d   |   Gastos con crédito: %d   |   Calculado: %s",
			tp.DocumentCount, tp.ExpenseCount, tp.ComputedAt.In(time.UTC).Format("02/01/2006 15:04 MST")),
		props.Text{Size: 7, Color: colorGray},
	))))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar F29: %w", err)
	}
	return out.GetBytes(), nil
}

func f29Row(label string, v decimal.Decimal, bold bool) core.Row {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	return row.New(7).Add(
		col.New(8).Add(text.New(label, props.Text{Size: 9, Style: style, Top: 1})),
		col.New(4).Add(text.New("$"+formatMoney(v), props.Text{Size: 9, Style: style, Align: align.Right, Top: 1, Right: 1})),
	)
}
