package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

type documentRepo struct{ v view }

func folioTaken(d *data, doc *entity.Document) bool {
	if doc.Folio == 0 {
		return false
	}
	for _, o := range d.documents {
		if o.ID != doc.ID && o.CompanyID == doc.CompanyID && o.DocType == doc.DocType && o.Folio == doc.Folio {
			return true
		}
	}
	return false
}

func (r *documentRepo) Create(_ context.Context, doc *entity.Document) error {
	return r.v.write("documents.Create", func(d *data) error {
		if _, ok := d.documents[doc.ID]; ok {
			return duplicate("documento", doc.ID)
		}
		if folioTaken(d, doc) {
			return duplicate("folio", fmt.Sprintf("%d/%d", doc.DocType, doc.Folio))
		}
		d.documents[doc.ID] = doc.Clone()
		return nil
	})
}

func (r *documentRepo) Update(_ context.Context, doc *entity.Document) error {
	return r.v.write("documents.Update", func(d *data) error {
		if _, ok := d.documents[doc.ID]; !ok {
			return notFound("documento", doc.ID)
		}
		if folioTaken(d, doc) {
			return duplicate("folio", fmt.Sprintf("%d/%d", doc.DocType, doc.Folio))
		}
		d.documents[doc.ID] = doc.Clone()
		return nil
	})
}

func (r *documentRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	var out *entity.Document
	err := r.v.read("documents.GetByID", func(d *data) error {
		out = d.documents[id].Clone()
		return nil
	})
	return out, err
}

// GetForUpdate en memoria Run ya serializa las transacciones; basta con leer.
func (r *documentRepo) GetForUpdate(_ context.Context, id string) (*entity.Document, error) {
	var out *entity.Document
	err := r.v.read("documents.GetForUpdate", func(d *data) error {
		out = d.documents[id].Clone()
		return nil
	})
	return out, err
}

func (r *documentRepo) List(_ context.Context, f repository.DocumentFilter) ([]*entity.Document, error) {
	out, err := r.filter("documents.List", func(doc *entity.Document) bool {
		if doc.CompanyID != f.CompanyID {
			return false
		}
		if f.DocType != 0 && doc.DocType != f.DocType {
			return false
		}
		if f.Submission != "" && doc.Submission != f.Submission {
			return false
		}
		if f.From != nil && doc.IssueDate.Before(*f.From) {
			return false
		}
		if f.To != nil && doc.IssueDate.After(*f.To) {
			return false
		}
		return true
	})
	return page(out, f.Limit, f.Offset), err
}

func (r *documentRepo) ListIssuedBetween(_ context.Context, companyID string, from, to time.Time) ([]*entity.Document, error) {
	return r.filter("documents.ListIssuedBetween", func(doc *entity.Document) bool {
		return doc.CompanyID == companyID && !doc.IssueDate.Before(from) && doc.IssueDate.Before(to)
	})
}

func (r *documentRepo) filter(op string, keep func(*entity.Document) bool) ([]*entity.Document, error) {
	var out []*entity.Document
	err := r.v.read(op, func(d *data) error {
		for _, doc := range d.documents {
			if keep(doc) {
				out = append(out, doc.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.Before(out[j].IssueDate)
		}
		if out[i].DocType != out[j].DocType {
			return out[i].DocType < out[j].DocType
		}
		return out[i].Folio < out[j].Folio
	})
	return out, err
}
