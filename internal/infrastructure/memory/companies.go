package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

type companyRepo struct{ v view }

func (r *companyRepo) Create(_ context.Context, c *entity.Company) error {
	return r.v.write("companies.Create", func(d *data) error {
		if _, ok := d.companies[c.ID]; ok {
			return duplicate("empresa", c.ID)
		}
		for _, other := range d.companies {
			if other.RUT == c.RUT {
				return duplicate("empresa con RUT", c.RUT)
			}
		}
		cp := *c
		d.companies[c.ID] = &cp
		return nil
	})
}

func (r *companyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	var out *entity.Company
	err := r.v.read("companies.GetByID", func(d *data) error {
		if c, ok := d.companies[id]; ok {
			cp := *c
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *companyRepo) GetByRUT(_ context.Context, rut string) (*entity.Company, error) {
	var out *entity.Company
	err := r.v.read("companies.GetByRUT", func(d *data) error {
		for _, c := range d.companies {
			if c.RUT == rut {
				cp := *c
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *companyRepo) List(_ context.Context, limit, offset int) ([]*entity.Company, error) {
	var out []*entity.Company
	err := r.v.read("companies.List", func(d *data) error {
		for _, c := range d.companies {
			cp := *c
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), err
}
