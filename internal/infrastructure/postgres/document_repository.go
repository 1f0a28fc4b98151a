package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo DTE emitidos. Las líneas de detalle van en una columna JSONB.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `id, company_id, doc_type, folio, caf_id, issuer_rut, receiver_rut, receiver_name,
	issue_date, due_date, lines, subtotal, vat, total, submission, settlement, rejection_reason,
	track_id, attempts, signed_xml, journal_entry_id, payment_entry_id, reference_id, created_by,
	created_at, updated_at, accepted_at, paid_at`

// documentLineJSON forma persistida de una línea.
type documentLineJSON struct {
	LineNo      int    `json:"line_no"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	DiscountPct string `json:"discount_pct"`
	Amount      string `json:"amount"`
}

// Create persiste el documento. Folio ya usado para la empresa y tipo -> domain.ErrDuplicate.
func (r *DocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	lines, err := marshalLines(d.Lines)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28)`,
		d.ID, d.CompanyID, d.DocType, d.Folio, d.CAFID, d.IssuerRUT, d.ReceiverRUT, d.ReceiverName,
		d.IssueDate, nullTime(d.DueDate), lines, d.Subtotal, d.VAT, d.Total, string(d.Submission), string(d.Settlement),
		d.RejectionReason, d.TrackID, d.Attempts, d.SignedXML, d.JournalEntryID, d.PaymentEntryID, d.ReferenceID,
		d.CreatedBy, d.CreatedAt, d.UpdatedAt, d.AcceptedAt, d.PaidAt,
	)
	return wrap("documents.Create", err)
}

// Update guarda el estado completo del documento.
func (r *DocumentRepo) Update(ctx context.Context, d *entity.Document) error {
	lines, err := marshalLines(d.Lines)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE documents
		SET folio = $2, caf_id = $3, receiver_rut = $4, receiver_name = $5, issue_date = $6, due_date = $7,
		    lines = $8, subtotal = $9, vat = $10, total = $11, submission = $12, settlement = $13,
		    rejection_reason = $14, track_id = $15, attempts = $16, signed_xml = $17,
		    journal_entry_id = $18, payment_entry_id = $19, reference_id = $20,
		    updated_at = $21, accepted_at = $22, paid_at = $23
		WHERE id = $1`,
		d.ID, d.Folio, d.CAFID, d.ReceiverRUT, d.ReceiverName, d.IssueDate, nullTime(d.DueDate),
		lines, d.Subtotal, d.VAT, d.Total, string(d.Submission), string(d.Settlement),
		d.RejectionReason, d.TrackID, d.Attempts, d.SignedXML,
		d.JournalEntryID, d.PaymentEntryID, d.ReferenceID,
		d.UpdatedAt, d.AcceptedAt, d.PaidAt,
	)
	if err != nil {
		return wrap("documents.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documento %s: %w", d.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID documento con sus líneas; (nil, nil) si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	return r.get(ctx, "documents.GetByID", `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

// GetForUpdate documento bloqueado con FOR UPDATE. Dos consultas de estado o anulaciones
// concurrentes del mismo documento quedan serializadas aquí.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	return r.get(ctx, "documents.GetForUpdate", `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
}

func (r *DocumentRepo) get(ctx context.Context, op, query, id string) (*entity.Document, error) {
	d, err := scanDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrap(op, err)
	}
	return d, nil
}

// List documentos filtrados, por fecha de emisión, tipo y folio.
func (r *DocumentRepo) List(ctx context.Context, f repository.DocumentFilter) ([]*entity.Document, error) {
	where := []string{"company_id = $1"}
	args := []any{f.CompanyID}
	if f.DocType != 0 {
		args = append(args, f.DocType)
		where = append(where, fmt.Sprintf("doc_type = $%d", len(args)))
	}
	if f.Submission != "" {
		args = append(args, string(f.Submission))
		where = append(where, fmt.Sprintf("submission = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("issue_date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("issue_date <= $%d", len(args)))
	}
	args = append(args, limitOrAll(f.Limit), f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE %s ORDER BY issue_date, doc_type, folio LIMIT $%d OFFSET $%d`,
		documentColumns, strings.Join(where, " AND "), len(args)-1, len(args))
	return r.list(ctx, "documents.List", query, args...)
}

// ListIssuedBetween documentos emitidos en [from, to).
func (r *DocumentRepo) ListIssuedBetween(ctx context.Context, companyID string, from, to time.Time) ([]*entity.Document, error) {
	return r.list(ctx, "documents.ListIssuedBetween", `
		SELECT `+documentColumns+` FROM documents
		 WHERE company_id = $1 AND issue_date >= $2 AND issue_date < $3
		 ORDER BY issue_date, doc_type, folio`, companyID, from, to)
}

func (r *DocumentRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Document, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	var list []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		list = append(list, d)
	}
	return list, wrap(op, rows.Err())
}

func scanDocument(s scanner) (*entity.Document, error) {
	var (
		d          entity.Document
		dueDate    *time.Time
		lines      []byte
		submission string
		settlement string
	)
	err := s.Scan(&d.ID, &d.CompanyID, &d.DocType, &d.Folio, &d.CAFID, &d.IssuerRUT, &d.ReceiverRUT, &d.ReceiverName,
		&d.IssueDate, &dueDate, &lines, &d.Subtotal, &d.VAT, &d.Total, &submission, &settlement, &d.RejectionReason,
		&d.TrackID, &d.Attempts, &d.SignedXML, &d.JournalEntryID, &d.PaymentEntryID, &d.ReferenceID, &d.CreatedBy,
		&d.CreatedAt, &d.UpdatedAt, &d.AcceptedAt, &d.PaidAt)
	if err != nil {
		return nil, err
	}
	if dueDate != nil {
		d.DueDate = *dueDate
	}
	d.Submission = entity.SubmissionStatus(submission)
	d.Settlement = entity.SettlementStatus(settlement)
	if d.Lines, err = unmarshalLines(lines); err != nil {
		return nil, err
	}
	return &d, nil
}

func marshalLines(lines []entity.DocumentLine) ([]byte, error) {
	out := make([]documentLineJSON, 0, len(lines))
	for _, l := range lines {
		out = append(out, documentLineJSON{
			LineNo:      l.LineNo,
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			UnitPrice:   l.UnitPrice.String(),
			DiscountPct: l.DiscountPct.String(),
			Amount:      l.Amount.String(),
		})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("documento: serializar líneas: %w", err)
	}
	return b, nil
}

func unmarshalLines(raw []byte) ([]entity.DocumentLine, error) {
	var in []documentLineJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("documento: leer líneas: %w", err)
	}
	out := make([]entity.DocumentLine, 0, len(in))
	for _, l := range in {
		var (
			line entity.DocumentLine
			err  error
		)
		line.LineNo = l.LineNo
		line.Description = l.Description
		if line.Quantity, err = parseDecimal(l.Quantity); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = parseDecimal(l.UnitPrice); err != nil {
			return nil, err
		}
		if line.DiscountPct, err = parseDecimal(l.DiscountPct); err != nil {
			return nil, err
		}
		if line.Amount, err = parseDecimal(l.Amount); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}
