// Package dte arma el XML de los documentos tributarios electrónicos y simula al SII
// como receptor de envíos.
package dte

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

const (
	NsSiiDTE     = "http://www.sii.cl/SiiDte"
	dteVersion   = "1.0"
	tedAlgorithm = "SHA1withRSA"
	maxItemName  = 80
	maxRazon     = 100
)

// XMLBuilderService construye el XML del DTE (sin firma XMLDSig; la agrega el signer).
type XMLBuilderService struct {
	now func() time.Time
}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{now: time.Now}
}

// DocumentElementID valor del atributo ID de <Documento>; la firma lo referencia.
func DocumentElementID(doc *entity.Document) string {
	return fmt.Sprintf("T%dF%d", doc.DocType, doc.Folio)
}

// Build implementa billing.DTEBuilder.
func (s *XMLBuilderService) Build(company *entity.Company, doc *entity.Document, caf *entity.CAF) ([]byte, error) {
	if company == nil || doc == nil {
		return nil, fmt.Errorf("dte: faltan empresa o documento")
	}
	if doc.Folio <= 0 {
		return nil, fmt.Errorf("dte: documento %s sin folio asignado", doc.ID)
	}

	xdoc := etree.NewDocument()
	xdoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := xdoc.CreateElement("DTE")
	root.CreateAttr("xmlns", NsSiiDTE)
	root.CreateAttr("version", dteVersion)

	documento := root.CreateElement("Documento")
	documento.CreateAttr("ID", DocumentElementID(doc))

	s.writeEncabezado(documento.CreateElement("Encabezado"), company, doc)
	for _, l := range doc.Lines {
		writeDetalle(documento.CreateElement("Detalle"), doc, l)
	}
	if doc.ReferenceID != "" {
		ref := documento.CreateElement("Referencia")
		ref.CreateElement("NroLinRef").SetText("1")
		ref.CreateElement("TpoDocRef").SetText("SET")
		ref.CreateElement("FolioRef").SetText(doc.ReferenceID)
		ref.CreateElement("CodRef").SetText("1")
	}

	ted, err := s.buildTED(company, doc, caf)
	if err != nil {
		return nil, err
	}
	documento.AddChild(ted)
	documento.CreateElement("TmstFirma").SetText(s.now().Format("2006-01-02T15:04:05"))

	xdoc.Indent(2)
	return xdoc.WriteToBytes()
}

func (s *XMLBuilderService) writeEncabezado(enc *etree.Element, company *entity.Company, doc *entity.Document) {
	id := enc.CreateElement("IdDoc")
	id.CreateElement("TipoDTE").SetText(strconv.Itoa(doc.DocType))
	id.CreateElement("Folio").SetText(strconv.FormatInt(doc.Folio, 10))
	id.CreateElement("FchEmis").SetText(doc.IssueDate.Format("2006-01-02"))
	if !doc.DueDate.IsZero() && !sii.IsBoleta(doc.DocType) {
		id.CreateElement("FchVenc").SetText(doc.DueDate.Format("2006-01-02"))
	}

	emisor := enc.CreateElement("Emisor")
	emisor.CreateElement("RUTEmisor").SetText(plainRUT(doc.IssuerRUT))
	emisor.CreateElement("RznSoc").SetText(truncate(company.Name, maxRazon))
	if company.Giro != "" {
		emisor.CreateElement("GiroEmis").SetText(truncate(company.Giro, maxItemName))
	}
	if company.Address != "" {
		emisor.CreateElement("DirOrigen").SetText(company.Address)
	}
	if company.Comuna != "" {
		emisor.CreateElement("CmnaOrigen").SetText(company.Comuna)
	}

	receptor := enc.CreateElement("Receptor")
	receptor.CreateElement("RUTRecep").SetText(plainRUT(doc.ReceiverRUT))
	if doc.ReceiverName != "" {
		receptor.CreateElement("RznSocRecep").SetText(truncate(doc.ReceiverName, maxRazon))
	}

	tot := enc.CreateElement("Totales")
	if sii.IsExempt(doc.DocType) {
		tot.CreateElement("MntExe").SetText(pesos(doc.Subtotal))
	} else {
		tot.CreateElement("MntNeto").SetText(pesos(doc.Subtotal))
		rate := decimal.Zero
		if doc.Subtotal.IsPositive() {
			rate = doc.VAT.Div(doc.Subtotal).Mul(decimal.NewFromInt(100)).Round(0)
		}
		tot.CreateElement("TasaIVA").SetText(rate.String())
		tot.CreateElement("IVA").SetText(pesos(doc.VAT))
	}
	tot.CreateElement("MntTotal").SetText(pesos(doc.Total))
}

func writeDetalle(det *etree.Element, doc *entity.Document, l entity.DocumentLine) {
	det.CreateElement("NroLinDet").SetText(strconv.Itoa(l.LineNo))
	if sii.IsExempt(doc.DocType) {
		det.CreateElement("IndExe").SetText("1")
	}
	det.CreateElement("NmbItem").SetText(truncate(l.Description, maxItemName))
	det.CreateElement("QtyItem").SetText(l.Quantity.String())
	det.CreateElement("PrcItem").SetText(l.UnitPrice.String())
	if l.DiscountPct.IsPositive() {
		det.CreateElement("DescuentoPct").SetText(l.DiscountPct.String())
	}
	det.CreateElement("MontoItem").SetText(pesos(l.Amount))
}

// buildTED timbre electrónico: datos mínimos del documento más el CAF, firmados con la
// llave privada del CAF (RSASK). Un CAF registrado a mano, sin XML, deja FRMT vacío.
func (s *XMLBuilderService) buildTED(company *entity.Company, doc *entity.Document, caf *entity.CAF) (*etree.Element, error) {
	ted := etree.NewElement("TED")
	ted.CreateAttr("version", dteVersion)
	dd := ted.CreateElement("DD")
	dd.CreateElement("RE").SetText(plainRUT(doc.IssuerRUT))
	dd.CreateElement("TD").SetText(strconv.Itoa(doc.DocType))
	dd.CreateElement("F").SetText(strconv.FormatInt(doc.Folio, 10))
	dd.CreateElement("FE").SetText(doc.IssueDate.Format("2006-01-02"))
	dd.CreateElement("RR").SetText(plainRUT(doc.ReceiverRUT))
	dd.CreateElement("RSR").SetText(truncate(doc.ReceiverName, 40))
	dd.CreateElement("MNT").SetText(pesos(doc.Total))
	item := ""
	if len(doc.Lines) > 0 {
		item = doc.Lines[0].Description
	}
	dd.CreateElement("IT1").SetText(truncate(item, 40))

	var key *rsa.PrivateKey
	if caf != nil && len(caf.RawXML) > 0 {
		cafEl, sk, err := parseCAFXML(caf.RawXML)
		if err != nil {
			return nil, err
		}
		if cafEl != nil {
			dd.AddChild(cafEl)
		}
		key = sk
	}
	dd.CreateElement("TSTED").SetText(s.now().Format("2006-01-02T15:04:05"))

	frmt := ted.CreateElement("FRMT")
	frmt.CreateAttr("algoritmo", tedAlgorithm)
	if key != nil {
		sig, err := signDD(dd, key)
		if err != nil {
			return nil, err
		}
		frmt.SetText(sig)
	}
	return ted, nil
}

// parseCAFXML extrae el nodo <CAF> y la llave RSASK del XML entregado por el SII.
func parseCAFXML(raw []byte) (*etree.Element, *rsa.PrivateKey, error) {
	cafDoc := etree.NewDocument()
	// Raw ya viene en UTF-8 aunque conserve la cabecera ISO-8859-1.
	cafDoc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	if err := cafDoc.ReadFromBytes(raw); err != nil {
		return nil, nil, fmt.Errorf("dte: leer CAF: %w", err)
	}
	var cafEl *etree.Element
	if el := cafDoc.FindElement("//CAF"); el != nil {
		cafEl = el.Copy()
	}
	skEl := cafDoc.FindElement("//RSASK")
	if skEl == nil {
		return cafEl, nil, nil
	}
	block, _ := pem.Decode([]byte(strings.TrimSpace(skEl.Text())))
	if block == nil {
		return cafEl, nil, nil
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return cafEl, k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("dte: llave RSASK del CAF: %w", err)
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("dte: la llave RSASK del CAF no es RSA")
	}
	return cafEl, rk, nil
}

// signDD firma el DD serializado sin espacios entre elementos.
func signDD(dd *etree.Element, key *rsa.PrivateKey) (string, error) {
	d := etree.NewDocument()
	d.SetRoot(dd.Copy())
	d.WriteSettings.CanonicalText = true
	flat, err := d.WriteToString()
	if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(flat))
	sig, err := rsa.SignPKCS1v15(nil, key, crypto.SHA1, sum[:])
	if err != nil {
		return "", fmt.Errorf("dte: firmar timbre: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// plainRUT 12.345.678-5 → 12345678-5 (formato de los XML del SII).
func plainRUT(rut string) string {
	return strings.ReplaceAll(rut, ".", "")
}

func pesos(d decimal.Decimal) string {
	return d.Round(0).StringFixed(0)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
