// Package pdf genera la representación impresa de un DTE y el resumen del F29.
//
// Layout del DTE (A4):
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón social / giro / dirección │ RUT · TIPO · N°   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECEPTOR: Razón social + RUT + fechas                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Desc% | Monto          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Neto o Exento / IVA / TOTAL                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TIMBRE: QR con los datos del timbre + leyenda SII           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 190, Green: 20, Blue: 20}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.DocumentPDFGenerator y period.PDFGenerator con Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

func newMaroto(title, author string) core.Maroto {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(title, true).
		WithAuthor(author, true).
		Build()
	return maroto.New(cfg)
}

// Generate genera el PDF del documento y devuelve sus bytes.
func (g *MarotoPDFGenerator) Generate(company *entity.Company, doc *entity.Document) ([]byte, error) {
	if company == nil || doc == nil {
		return nil, fmt.Errorf("pdf: faltan empresa o documento")
	}
	m := newMaroto(sii.DTEName(doc.DocType), company.Name)

	m.AddRows(headerRow(company, doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(receptorRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(doc)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(timbreRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones del DTE ─────────────────────────────────────────────────────────

// headerRow: emisor (izq) y recuadro RUT / tipo / folio (der).
func headerRow(company *entity.Company, doc *entity.Document) core.Row {
	return row.New(22).Add(
		col.New(7).Add(
			text.New(company.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Top: 1,
			}),
			text.New(nonEmpty(company.Giro, ""), props.Text{
				Size: 8, Top: 8, Color: colorGray,
			}),
			text.New(strings.TrimSpace(company.Address+" "+company.Comuna), props.Text{
				Size: 8, Top: 13, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("R.U.T.: "+doc.IssuerRUT, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Center, Color: colorPrimary, Top: 1,
			}),
			text.New(strings.ToUpper(nonEmpty(sii.DTEName(doc.DocType), "DOCUMENTO")), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Center, Color: colorPrimary, Top: 7,
			}),
			text.New(fmt.Sprintf("N° %d", doc.Folio), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Center, Color: colorPrimary, Top: 13,
			}),
		),
	)
}

// receptorRow: datos del receptor y fechas.
func receptorRow(doc *entity.Document) core.Row {
	due := "—"
	if !doc.DueDate.IsZero() {
		due = doc.DueDate.Format("02/01/2006")
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(doc.ReceiverName, doc.ReceiverRUT), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("R.U.T.: %s   |   Emisión: %s   |   Vencimiento: %s",
				doc.ReceiverRUT, doc.IssueDate.Format("02/01/2006"), due,
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Desc%", 1, align.Center),
		h("Monto", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por línea de detalle.
func tableDetailRows(doc *entity.Document) []core.Row {
	result := make([]core.Row, 0, len(doc.Lines))
	for _, d := range doc.Lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				d.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				d.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(d.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				d.DiscountPct.StringFixed(0)+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				"$"+formatMoney(d.Amount),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(doc *entity.Document) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}

	netLabel := "Monto neto:"
	if sii.IsExempt(doc.DocType) {
		netLabel = "Monto exento:"
	}
	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label(netLabel),
			text.New("IVA:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 6}),
			text.New("TOTAL:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 2, Top: 12, Color: colorPrimary}),
		),
		col.New(3).Add(
			value("$"+formatMoney(doc.Subtotal), 0),
			value("$"+formatMoney(doc.VAT), 6),
			text.New("$"+formatMoney(doc.Total), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 1, Top: 12, Color: colorPrimary,
			}),
		),
	)
}

// timbreRows: QR con los datos del timbre y leyenda.
func timbreRows(doc *entity.Document) []core.Row {
	ted := fmt.Sprintf("RE=%s|TD=%d|F=%d|FE=%s|RR=%s|MNT=%s",
		doc.IssuerRUT, doc.DocType, doc.Folio, doc.IssueDate.Format("2006-01-02"), doc.ReceiverRUT, doc.Total.StringFixed(0))
	return []core.Row{
		row.New(40).Add(
			col.New(4).Add(code.NewQr(ted, props.Rect{Percent: 95, Center: true})),
			col.New(8).Add(
				text.New("Timbre Electrónico SII", props.Text{
					Style: fontstyle.Bold, Size: 9, Top: 6, Left: 3, Color: colorPrimary,
				}),
				text.New("Verifique documento: www.sii.cl", props.Text{
					Size: 8, Top: 14, Left: 3, Color: colorGray,
				}),
				text.New("Estado SII: "+string(doc.Submission), props.Text{
					Size: 8, Top: 20, Left: 3, Color: colorGray,
				}),
			),
		),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney pesos con puntos de miles: 1000000 → "1.000.000", -2500 → "-2.500".
func formatMoney(d decimal.Decimal) string {
	s := d.Round(0).Abs().StringFixed(0)
	n := len(s)
	buf := make([]byte, 0, n+n/3+1)
	if d.Round(0).IsNegative() {
		buf = append(buf, '-')
	}
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
