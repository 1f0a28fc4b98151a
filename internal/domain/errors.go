package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sentinelas, comparables con errors.Is).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrUnauthorized   = errors.New("no autorizado")
	ErrForbidden      = errors.New("acceso denegado")
	ErrConflict       = errors.New("conflicto con el estado actual")
	ErrUnbalanced     = errors.New("asiento descuadrado")
	ErrFolioExhausted = errors.New("folios del CAF agotados")
	ErrFolioExpired   = errors.New("no hay CAF vigente")
	ErrImmutable      = errors.New("asiento contabilizado, no se puede modificar")
	ErrUnknownAccount = errors.New("cuenta contable desconocida")
	ErrRejected       = errors.New("documento rechazado por el SII")
	ErrPersistence    = errors.New("falla de persistencia")
	ErrTransition     = errors.New("transición de estado inválida")
)

// Tipos de error reportados en auditoría y en respuestas HTTP.
const (
	KindValidation         = "ValidationError"
	KindImbalance          = "ImbalanceError"
	KindFolioExhausted     = "FolioExhaustedError"
	KindFolioExpired       = "FolioExpiredError"
	KindImmutableEntry     = "ImmutableEntryError"
	KindUnknownAccount     = "UnknownAccountError"
	KindAuthorityRejection = "AuthorityRejectionError"
	KindPersistence        = "PersistenceError"
	KindInvalidTransition  = "InvalidTransitionError"
	KindNotFound           = "NotFound"
	KindForbidden          = "Forbidden"
	KindConflict           = "Conflict"
	KindInternal           = "Internal"
)

// ValidationError RUT mal formado, cantidad no positiva, descuento fuera de rango, etc.
// Problems acumula todos los problemas encontrados en una misma validación.
type ValidationError struct {
	Problems []string
}

// NewValidationError arma un ValidationError con uno o más problemas.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return "validación: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() []error { return []error{ErrInvalidInput} }

// ImbalanceError Σdebe != Σhaber.
type ImbalanceError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("asiento descuadrado: debe %s, haber %s", e.Debit.String(), e.Credit.String())
}

func (e *ImbalanceError) Unwrap() error { return ErrUnbalanced }

// FolioExhaustedError el CAF vigente ya entregó su último folio.
type FolioExhaustedError struct {
	DocType int
	CAFID   string
	RangeTo int64
}

func (e *FolioExhaustedError) Error() string {
	return fmt.Sprintf("folios agotados para DTE %d (CAF %s, hasta %d): solicite un nuevo CAF", e.DocType, e.CAFID, e.RangeTo)
}

func (e *FolioExhaustedError) Unwrap() error { return ErrFolioExhausted }

// FolioExpiredError no existe CAF vigente para el tipo a la fecha indicada.
type FolioExpiredError struct {
	DocType int
	AsOf    time.Time
}

func (e *FolioExpiredError) Error() string {
	return fmt.Sprintf("sin CAF vigente para DTE %d al %s", e.DocType, e.AsOf.Format("2006-01-02"))
}

func (e *FolioExpiredError) Unwrap() error { return ErrFolioExpired }

// ImmutableEntryError intento de editar un asiento que ya no está en borrador.
type ImmutableEntryError struct {
	EntryID string
	Status  string
}

func (e *ImmutableEntryError) Error() string {
	return fmt.Sprintf("asiento %s en estado %s: sólo se permite un asiento de reversa", e.EntryID, e.Status)
}

func (e *ImmutableEntryError) Unwrap() error { return ErrImmutable }

// UnknownAccountError una línea referencia una cuenta que no existe en el plan.
type UnknownAccountError struct {
	Code string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("cuenta contable desconocida: %s", e.Code)
}

func (e *UnknownAccountError) Unwrap() error { return ErrUnknownAccount }

// AuthorityRejectionError el SII rechazó el documento; queda en rechazada y puede reenviarse.
type AuthorityRejectionError struct {
	DocumentID string
	TrackID    string
	Reason     string
}

func (e *AuthorityRejectionError) Error() string {
	return fmt.Sprintf("documento %s rechazado por el SII (track %s): %s", e.DocumentID, e.TrackID, e.Reason)
}

func (e *AuthorityRejectionError) Unwrap() error { return ErrRejected }

// PersistenceError falla del almacenamiento. Transient marca las fallas que vale la pena
// reintentar; Degraded indica que la respuesta se sirvió desde caché.
type PersistenceError struct {
	Op        string
	Err       error
	Transient bool
	Degraded  bool
}

// NewPersistenceError envuelve un error de almacenamiento.
func NewPersistenceError(op string, err error, transient bool) *PersistenceError {
	return &PersistenceError{Op: op, Err: err, Transient: transient}
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return "persistencia: " + e.Op
	}
	return fmt.Sprintf("persistencia: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPersistence}
	}
	return []error{ErrPersistence, e.Err}
}

// InvalidTransitionError movimiento no permitido en una máquina de estados.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: transición %s → %s no permitida", e.Entity, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrTransition }

// KindOf clasifica un error para auditoría y para el código HTTP.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		ie *ImbalanceError
		fx *FolioExhaustedError
		fe *FolioExpiredError
		im *ImmutableEntryError
		ua *UnknownAccountError
		ar *AuthorityRejectionError
		pe *PersistenceError
		it *InvalidTransitionError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ie):
		return KindImbalance
	case errors.As(err, &fx):
		return KindFolioExhausted
	case errors.As(err, &fe):
		return KindFolioExpired
	case errors.As(err, &im):
		return KindImmutableEntry
	case errors.As(err, &ua):
		return KindUnknownAccount
	case errors.As(err, &ar):
		return KindAuthorityRejection
	case errors.As(err, &pe):
		return KindPersistence
	case errors.As(err, &it):
		return KindInvalidTransition
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// IsTransient true si el error es una falla de persistencia reintentable.
func IsTransient(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Transient
}

// IsDomainRejection true para rechazos de negocio (se auditan como WARN);
// el resto (persistencia, SII caído, internos) se audita como ERROR.
func IsDomainRejection(err error) bool {
	switch KindOf(err) {
	case KindPersistence, KindInternal, KindAuthorityRejection:
		return false
	}
	return true
}
