package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

type cafRepo struct{ v view }

func (r *cafRepo) Create(_ context.Context, c *entity.CAF) error {
	return r.v.write("cafs.Create", func(d *data) error {
		if _, ok := d.cafs[c.ID]; ok {
			return duplicate("CAF", c.ID)
		}
		cp := *c
		d.cafs[c.ID] = &cp
		return nil
	})
}

func (r *cafRepo) GetByID(_ context.Context, id string) (*entity.CAF, error) {
	var out *entity.CAF
	err := r.v.read("cafs.GetByID", func(d *data) error {
		if c, ok := d.cafs[id]; ok {
			cp := *c
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *cafRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.CAF, error) {
	return r.list("cafs.ListByCompany", func(c *entity.CAF) bool { return c.CompanyID == companyID })
}

// ListForAllocation dentro de Run el candado de transacción ya serializa a los asignadores.
func (r *cafRepo) ListForAllocation(_ context.Context, companyID string, docType int) ([]*entity.CAF, error) {
	return r.list("cafs.ListForAllocation", func(c *entity.CAF) bool {
		return c.CompanyID == companyID && c.DocType == docType && c.Vigente
	})
}

func (r *cafRepo) ListByType(_ context.Context, companyID string, docType int) ([]*entity.CAF, error) {
	return r.list("cafs.ListByType", func(c *entity.CAF) bool {
		return c.CompanyID == companyID && c.DocType == docType
	})
}

func (r *cafRepo) Update(_ context.Context, c *entity.CAF) error {
	return r.v.write("cafs.Update", func(d *data) error {
		prev, ok := d.cafs[c.ID]
		if !ok {
			return notFound("CAF", c.ID)
		}
		cp := *c
		if cp.NextFree < prev.NextFree {
			cp.NextFree = prev.NextFree
		}
		d.cafs[c.ID] = &cp
		return nil
	})
}

func (r *cafRepo) list(op string, keep func(*entity.CAF) bool) ([]*entity.CAF, error) {
	var out []*entity.CAF
	err := r.v.read(op, func(d *data) error {
		for _, c := range d.cafs {
			if keep(c) {
				cp := *c
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocType != out[j].DocType {
			return out[i].DocType < out[j].DocType
		}
		return out[i].RangeFrom < out[j].RangeFrom
	})
	return out, err
}
