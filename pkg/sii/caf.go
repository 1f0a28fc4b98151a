package sii

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DefaultCAFValidityMonths vigencia de un CAF de factura desde su autorización (Res. Ex. SII N°11/2003).
const DefaultCAFValidityMonths = 6

// CAFData contenido útil de un archivo CAF (Código de Autorización de Folios).
type CAFData struct {
	IssuerRUT    string // RUT del emisor en formato canónico
	IssuerName   string
	DocType      int
	RangeFrom    int64
	RangeTo      int64
	AuthorizedAt time.Time
	ExpiresAt    time.Time
	KeyID        string
	Raw          []byte // XML original en UTF-8, se conserva para timbrar
}

type autorizacion struct {
	XMLName xml.Name `xml:"AUTORIZACION"`
	CAF     struct {
		DA struct {
			RE  string `xml:"RE"`
			RS  string `xml:"RS"`
			TD  string `xml:"TD"`
			RNG struct {
				D string `xml:"D"`
				H string `xml:"H"`
			} `xml:"RNG"`
			FA  string `xml:"FA"`
			IDK string `xml:"IDK"`
		} `xml:"DA"`
	} `xml:"CAF"`
}

// ParseCAF lee un CAF tal como lo descarga el SII (ISO-8859-1) y valida su contenido.
// validityMonths <= 0 usa DefaultCAFValidityMonths.
func ParseCAF(r io.Reader, validityMonths int) (*CAFData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sii: leer CAF: %w", err)
	}
	var a autorizacion
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("sii: decodificar CAF: %w", err)
	}
	da := a.CAF.DA

	rut, err := NormalizeRUT(da.RE)
	if err != nil {
		return nil, fmt.Errorf("sii: RUT emisor del CAF: %w", err)
	}
	docType, err := strconv.Atoi(strings.TrimSpace(da.TD))
	if err != nil || DTEName(docType) == "" {
		return nil, fmt.Errorf("sii: tipo de documento del CAF inválido: %q", da.TD)
	}
	from, err := strconv.ParseInt(strings.TrimSpace(da.RNG.D), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("sii: folio desde inválido: %q", da.RNG.D)
	}
	to, err := strconv.ParseInt(strings.TrimSpace(da.RNG.H), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("sii: folio hasta inválido: %q", da.RNG.H)
	}
	if from <= 0 || to < from {
		return nil, fmt.Errorf("sii: rango de folios inválido [%d, %d]", from, to)
	}
	fa, err := time.Parse("2006-01-02", strings.TrimSpace(da.FA))
	if err != nil {
		return nil, fmt.Errorf("sii: fecha de autorización inválida: %q", da.FA)
	}
	if validityMonths <= 0 {
		validityMonths = DefaultCAFValidityMonths
	}

	utf8Raw, err := toUTF8(raw)
	if err != nil {
		utf8Raw = raw
	}
	return &CAFData{
		IssuerRUT:    rut,
		IssuerName:   strings.TrimSpace(da.RS),
		DocType:      docType,
		RangeFrom:    from,
		RangeTo:      to,
		AuthorizedAt: fa,
		ExpiresAt:    fa.AddDate(0, validityMonths, 0),
		KeyID:        strings.TrimSpace(da.IDK),
		Raw:          utf8Raw,
	}, nil
}

func toUTF8(raw []byte) ([]byte, error) {
	head := raw
	if len(head) > 100 {
		head = head[:100]
	}
	if !bytes.Contains(bytes.ToUpper(head), []byte("ISO-8859-1")) {
		return raw, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	return out, err
}
