package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

type accountRepo struct{ v view }

func accountKey(companyID, code string) string { return companyID + "|" + code }

func (r *accountRepo) Create(_ context.Context, a *entity.Account) error {
	return r.v.write("accounts.Create", func(d *data) error {
		k := accountKey(a.CompanyID, a.Code)
		if _, ok := d.accounts[k]; ok {
			return duplicate("cuenta", a.Code)
		}
		cp := *a
		d.accounts[k] = &cp
		return nil
	})
}

func (r *accountRepo) Get(_ context.Context, companyID, code string) (*entity.Account, error) {
	var out *entity.Account
	err := r.v.read("accounts.Get", func(d *data) error {
		if a, ok := d.accounts[accountKey(companyID, code)]; ok {
			cp := *a
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *accountRepo) List(_ context.Context, companyID string) ([]*entity.Account, error) {
	var out []*entity.Account
	err := r.v.read("accounts.List", func(d *data) error {
		for _, a := range d.accounts {
			if a.CompanyID == companyID {
				cp := *a
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}
