// Package sii contiene el dígito verificador del RUT, los catálogos de documentos
// tributarios electrónicos y la lectura de archivos CAF entregados por el SII (Chile).
package sii

// =============================================================================
// Tipos de DTE (Formato DTE, tabla de códigos de documento)
// =============================================================================

const (
	DTEFacturaAfecta = 33 // Factura electrónica
	DTEFacturaExenta = 34 // Factura no afecta o exenta electrónica
	DTEBoletaAfecta  = 39 // Boleta electrónica
	DTEBoletaExenta  = 41 // Boleta exenta electrónica
	DTENotaDebito    = 56 // Nota de débito electrónica
	DTENotaCredito   = 61 // Nota de crédito electrónica
)

// ValidDTETypes códigos aceptados por el motor de documentos.
var ValidDTETypes = map[int]string{
	DTEFacturaAfecta: "Factura Electrónica",
	DTEFacturaExenta: "Factura No Afecta o Exenta Electrónica",
	DTEBoletaAfecta:  "Boleta Electrónica",
	DTEBoletaExenta:  "Boleta Exenta Electrónica",
	DTENotaDebito:    "Nota de Débito Electrónica",
	DTENotaCredito:   "Nota de Crédito Electrónica",
}

// IsExempt indica si el tipo de documento no lleva IVA.
func IsExempt(docType int) bool {
	return docType == DTEFacturaExenta || docType == DTEBoletaExenta
}

// IsBoleta las boletas se cobran al contado (Caja) en vez de Clientes.
func IsBoleta(docType int) bool {
	return docType == DTEBoletaAfecta || docType == DTEBoletaExenta
}

// SignFor devuelve el signo con que el documento suma al débito fiscal del período:
// la nota de crédito resta, el resto suma.
func SignFor(docType int) int64 {
	if docType == DTENotaCredito {
		return -1
	}
	return 1
}

// DTEName nombre legible del tipo, o cadena vacía si no existe.
func DTEName(docType int) string {
	return ValidDTETypes[docType]
}

// =============================================================================
// Ambientes del SII
// =============================================================================

const (
	EnvCertificacion = "certificacion" // maullin.sii.cl
	EnvProduccion    = "produccion"    // palena.sii.cl
)

// =============================================================================
// Estados de envío reportados por el SII (consulta de estado por TrackID)
// =============================================================================

const (
	SIIStatusRecibido  = "REC" // recibido, en proceso
	SIIStatusAceptado  = "EPR" // envío procesado, documento aceptado
	SIIStatusReparos   = "RLV" // aceptado con reparos leves
	SIIStatusRechazado = "RCH" // rechazado
)
