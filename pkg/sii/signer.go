package sii

import (
	"context"
	"crypto/tls"
	"errors"
	"time"
)

// ErrUnavailable el SII no respondió; el envío o la consulta pueden reintentarse.
var ErrUnavailable = errors.New("sii: servicio no disponible")

// Signer firma un DTE (XMLDSig enveloped) con el certificado del contribuyente.
type Signer interface {
	// Sign recibe el XML del documento y devuelve el mismo XML con ds:Signature
	// agregado como último hijo del elemento raíz.
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}

// Envelope documento listo para enviarse al SII.
type Envelope struct {
	DocumentID  string
	IssuerRUT   string
	ReceiverRUT string
	DocType     int
	Folio       int64
	XML         []byte
}

// StatusResult respuesta a una consulta de estado por TrackID.
type StatusResult struct {
	TrackID   string
	Code      string // ver SIIStatus*
	Accepted  bool
	Final     bool // false mientras el SII sigue procesando
	Reason    string
	CheckedAt time.Time
}

// Submitter colaborador del SII: envío de DTE y consulta de estado.
// La implementación de este repositorio es un simulador; el protocolo real queda fuera.
type Submitter interface {
	Submit(ctx context.Context, env Envelope) (trackID string, err error)
	Status(ctx context.Context, trackID string) (StatusResult, error)
}
