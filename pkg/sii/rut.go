package sii

import (
	"fmt"
	"strings"
	"unicode"
)

// pesos del módulo 11 del SII: se aplican de derecha a izquierda sobre el cuerpo del RUT,
// partiendo en 2 y volviendo a 2 después de 7.
var rutWeights = [6]int{2, 3, 4, 5, 6, 7}

// RUT identificador tributario chileno ya validado (cuerpo + dígito verificador).
type RUT struct {
	Body  string // 7 u 8 dígitos, sin puntos
	DV    byte   // '0'..'9' o 'K'
	Valid bool
}

// String devuelve el RUT en formato canónico (12.345.678-5).
func (r RUT) String() string {
	if r.Body == "" {
		return ""
	}
	return FormatRUT(r.Body, r.DV)
}

// ValidateRUT normaliza y valida un RUT ("12.345.678-5", "12345678-5" o "123456785").
// Devuelve el RUT con Valid=false y un error descriptivo si el formato o el DV no cuadran.
func ValidateRUT(raw string) (RUT, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', ' ':
			return -1
		}
		return unicode.ToUpper(r)
	}, raw)
	if len(clean) < 2 {
		return RUT{}, fmt.Errorf("sii: RUT vacío o incompleto: %q", raw)
	}
	body, dv := clean[:len(clean)-1], clean[len(clean)-1]
	if len(body) < 7 || len(body) > 8 {
		return RUT{Body: body, DV: dv}, fmt.Errorf("sii: el cuerpo del RUT debe tener 7 u 8 dígitos, se recibieron %d", len(body))
	}
	expected, err := ComputeDV(body)
	if err != nil {
		return RUT{Body: body, DV: dv}, err
	}
	if dv != expected {
		return RUT{Body: body, DV: dv}, fmt.Errorf("sii: dígito verificador inválido: esperado %c, recibido %c", expected, dv)
	}
	return RUT{Body: body, DV: dv, Valid: true}, nil
}

// IsValidRUT atajo booleano sobre ValidateRUT.
func IsValidRUT(raw string) bool {
	r, err := ValidateRUT(raw)
	return err == nil && r.Valid
}

// ComputeDV calcula el dígito verificador para un cuerpo numérico.
func ComputeDV(body string) (byte, error) {
	if body == "" {
		return 0, fmt.Errorf("sii: cuerpo de RUT vacío")
	}
	var sum int
	w := 0
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("sii: el cuerpo del RUT contiene caracteres no numéricos: %q", body)
		}
		sum += int(c-'0') * rutWeights[w]
		w = (w + 1) % len(rutWeights)
	}
	switch v := 11 - sum%11; v {
	case 11:
		return '0', nil
	case 10:
		return 'K', nil
	default:
		return byte('0' + v), nil
	}
}

// FormatRUT arma la forma canónica con separador de miles: 12.345.678-5, 1.234.567-K.
func FormatRUT(body string, dv byte) string {
	n := len(body)
	var sb strings.Builder
	sb.Grow(n + n/3 + 2)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteByte(body[i])
	}
	sb.WriteByte('-')
	sb.WriteByte(byte(unicode.ToUpper(rune(dv))))
	return sb.String()
}

// NormalizeRUT valida y devuelve la forma canónica; útil antes de persistir.
func NormalizeRUT(raw string) (string, error) {
	r, err := ValidateRUT(raw)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}
