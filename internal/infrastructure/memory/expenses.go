package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

type expenseRepo struct{ v view }

func (r *expenseRepo) Create(_ context.Context, e *entity.Expense) error {
	return r.v.write("expenses.Create", func(d *data) error {
		if _, ok := d.expenses[e.ID]; ok {
			return duplicate("gasto", e.ID)
		}
		cp := *e
		d.expenses[e.ID] = &cp
		return nil
	})
}

func (r *expenseRepo) GetByID(_ context.Context, id string) (*entity.Expense, error) {
	var out *entity.Expense
	err := r.v.read("expenses.GetByID", func(d *data) error {
		if e, ok := d.expenses[id]; ok {
			cp := *e
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *expenseRepo) Update(_ context.Context, e *entity.Expense) error {
	return r.v.write("expenses.Update", func(d *data) error {
		if _, ok := d.expenses[e.ID]; !ok {
			return notFound("gasto", e.ID)
		}
		cp := *e
		d.expenses[e.ID] = &cp
		return nil
	})
}

func (r *expenseRepo) ListBetween(_ context.Context, companyID string, from, to time.Time) ([]*entity.Expense, error) {
	var out []*entity.Expense
	err := r.v.read("expenses.ListBetween", func(d *data) error {
		for _, e := range d.expenses {
			if e.CompanyID == companyID && !e.Date.Before(from) && e.Date.Before(to) {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, err
}
