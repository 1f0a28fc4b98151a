package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

type auditRepo struct{ v view }

func (r *auditRepo) Append(_ context.Context, e *entity.AuditLogEntry) error {
	return r.v.write("audit.Append", func(d *data) error {
		cp := *e
		d.audit = append(d.audit, &cp)
		return nil
	})
}

func (r *auditRepo) Query(_ context.Context, f entity.AuditFilter) ([]*entity.AuditLogEntry, int, error) {
	var matched []*entity.AuditLogEntry
	err := r.v.read("audit.Query", func(d *data) error {
		for _, e := range d.audit {
			if matches(e, f) {
				cp := *e
				matched = append(matched, &cp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	// más reciente primero
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	return page(matched, f.Limit, f.Offset), len(matched), nil
}

func (r *auditRepo) DeleteOlderThan(_ context.Context, companyID string, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.v.write("audit.DeleteOlderThan", func(d *data) error {
		kept := d.audit[:0:0]
		for _, e := range d.audit {
			if (companyID == "" || e.CompanyID == companyID) && e.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		d.audit = kept
		return nil
	})
	return removed, err
}

func matches(e *entity.AuditLogEntry, f entity.AuditFilter) bool {
	if f.CompanyID != "" && e.CompanyID != f.CompanyID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if len(f.Levels) > 0 {
		ok := false
		for _, l := range f.Levels {
			if e.Level == l {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if f.Text != "" {
		q := strings.ToLower(f.Text)
		hay := strings.ToLower(e.Action + " " + e.Message + " " + e.EntityID)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}
