package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

type userRepo struct{ v view }

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	return r.v.write("users.Create", func(d *data) error {
		if _, ok := d.users[u.ID]; ok {
			return duplicate("usuario", u.ID)
		}
		for _, other := range d.users {
			if strings.EqualFold(other.Email, u.Email) {
				return duplicate("usuario con email", u.Email)
			}
		}
		cp := *u
		d.users[u.ID] = &cp
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.v.read("users.GetByID", func(d *data) error {
		if u, ok := d.users[id]; ok {
			cp := *u
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	var out *entity.User
	err := r.v.read("users.GetByEmail", func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				cp := *u
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *userRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.User, error) {
	var out []*entity.User
	err := r.v.read("users.ListByCompany", func(d *data) error {
		for _, u := range d.users {
			if u.CompanyID == companyID {
				cp := *u
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return page(out, limit, offset), err
}
