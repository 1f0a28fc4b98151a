package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

type journalRepo struct{ v view }

func (r *journalRepo) NextNumber(_ context.Context, companyID string) (int64, error) {
	var n int64
	err := r.v.write("journal.NextNumber", func(d *data) error {
		d.sequences[companyID]++
		n = d.sequences[companyID]
		return nil
	})
	return n, err
}

func (r *journalRepo) Create(_ context.Context, e *entity.JournalEntry) error {
	return r.v.write("journal.Create", func(d *data) error {
		if _, ok := d.entries[e.ID]; ok {
			return duplicate("asiento", e.ID)
		}
		d.entries[e.ID] = e.Clone()
		return nil
	})
}

func (r *journalRepo) Update(_ context.Context, e *entity.JournalEntry) error {
	return r.v.write("journal.Update", func(d *data) error {
		if _, ok := d.entries[e.ID]; !ok {
			return notFound("asiento", e.ID)
		}
		d.entries[e.ID] = e.Clone()
		return nil
	})
}

func (r *journalRepo) GetByID(_ context.Context, id string) (*entity.JournalEntry, error) {
	var out *entity.JournalEntry
	err := r.v.read("journal.GetByID", func(d *data) error {
		out = d.entries[id].Clone()
		return nil
	})
	return out, err
}

func (r *journalRepo) GetForUpdate(_ context.Context, id string) (*entity.JournalEntry, error) {
	var out *entity.JournalEntry
	err := r.v.read("journal.GetForUpdate", func(d *data) error {
		out = d.entries[id].Clone()
		return nil
	})
	return out, err
}

func (r *journalRepo) List(_ context.Context, f repository.JournalFilter) ([]*entity.JournalEntry, error) {
	var out []*entity.JournalEntry
	err := r.v.read("journal.List", func(d *data) error {
		for _, e := range d.entries {
			if e.CompanyID != f.CompanyID {
				continue
			}
			if f.Status != "" && e.Status != f.Status {
				continue
			}
			if f.From != nil && e.Date.Before(*f.From) {
				continue
			}
			if f.To != nil && e.Date.After(*f.To) {
				continue
			}
			out = append(out, e.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return page(out, f.Limit, f.Offset), err
}

func (r *journalRepo) SumPosted(_ context.Context, companyID, accountCode string, asOf time.Time) ([]repository.AccountSum, error) {
	sums := map[string]*repository.AccountSum{}
	err := r.v.read("journal.SumPosted", func(d *data) error {
		for _, e := range d.entries {
			if e.CompanyID != companyID || !e.Posted() || e.Date.After(asOf) {
				continue
			}
			for _, l := range e.Lines {
				if accountCode != "" && l.AccountCode != accountCode {
					continue
				}
				s, ok := sums[l.AccountCode]
				if !ok {
					s = &repository.AccountSum{AccountCode: l.AccountCode, Debit: decimal.Zero, Credit: decimal.Zero}
					sums[l.AccountCode] = s
				}
				s.Debit = s.Debit.Add(l.Debit)
				s.Credit = s.Credit.Add(l.Credit)
			}
		}
		return nil
	})
	out := make([]repository.AccountSum, 0, len(sums))
	for _, s := range sums {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out, err
}
