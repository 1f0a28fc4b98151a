// Package memory implementa repository.Store en memoria. Lo usan los tests de los
// casos de uso y el modo local sin base de datos (DB_DRIVER=memory).
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

var _ repository.Store = (*Store)(nil)

type data struct {
	companies map[string]*entity.Company
	users     map[string]*entity.User
	accounts  map[string]*entity.Account // companyID|code
	entries   map[string]*entity.JournalEntry
	sequences map[string]int64
	cafs      map[string]*entity.CAF
	documents map[string]*entity.Document
	expenses  map[string]*entity.Expense
	audit     []*entity.AuditLogEntry
}

func newData() *data {
	return &data{
		companies: make(map[string]*entity.Company),
		users:     make(map[string]*entity.User),
		accounts:  make(map[string]*entity.Account),
		entries:   make(map[string]*entity.JournalEntry),
		sequences: make(map[string]int64),
		cafs:      make(map[string]*entity.CAF),
		documents: make(map[string]*entity.Document),
		expenses:  make(map[string]*entity.Expense),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.companies {
		cp := *v
		c.companies[k] = &cp
	}
	for k, v := range d.users {
		cp := *v
		c.users[k] = &cp
	}
	for k, v := range d.accounts {
		cp := *v
		c.accounts[k] = &cp
	}
	for k, v := range d.entries {
		c.entries[k] = v.Clone()
	}
	for k, v := range d.sequences {
		c.sequences[k] = v
	}
	for k, v := range d.cafs {
		cp := *v
		c.cafs[k] = &cp
	}
	for k, v := range d.documents {
		c.documents[k] = v.Clone()
	}
	for k, v := range d.expenses {
		cp := *v
		c.expenses[k] = &cp
	}
	c.audit = append(make([]*entity.AuditLogEntry, 0, len(d.audit)), d.audit...)
	return c
}

// Store almacenamiento en memoria. Las transacciones se serializan: Run trabaja sobre
// una copia y la publica sólo si fn termina sin error. Las escrituras fuera de
// transacción también toman el candado de transacción.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	d    *data

	faultMu sync.RWMutex
	fault   func(op string) error
}

// New crea un store vacío.
func New() *Store {
	return &Store{d: newData()}
}

// SetFault instala una función que puede hacer fallar cualquier operación por nombre
// ("documents.ListIssuedBetween", "audit.Append", ...). nil la desinstala.
func (s *Store) SetFault(fn func(op string) error) {
	s.faultMu.Lock()
	s.fault = fn
	s.faultMu.Unlock()
}

func (s *Store) check(op string) error {
	s.faultMu.RLock()
	fn := s.fault
	s.faultMu.RUnlock()
	if fn == nil {
		return nil
	}
	if err := fn(op); err != nil {
		return domain.NewPersistenceError(op, err, true)
	}
	return nil
}

// Repos repositorios fuera de transacción.
func (s *Store) Repos() repository.Repos {
	return reposOver(&rootView{s: s})
}

// Run ejecuta fn sobre una copia aislada; si fn devuelve error (o entra en pánico)
// la copia se descarta y nada queda escrito.
func (s *Store) Run(ctx context.Context, fn func(tx repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snap := s.d.clone()
	s.mu.RUnlock()

	if err := fn(reposOver(&txView{s: s, d: snap})); err != nil {
		return err
	}
	if err := s.check("tx.Commit"); err != nil {
		return err
	}
	s.mu.Lock()
	s.d = snap
	s.mu.Unlock()
	return nil
}

// view abstrae el acceso a los datos: directo (con candados) o sobre la copia de una transacción.
type view interface {
	read(op string, fn func(d *data) error) error
	write(op string, fn func(d *data) error) error
}

type rootView struct{ s *Store }

func (v *rootView) read(op string, fn func(d *data) error) error {
	if err := v.s.check(op); err != nil {
		return err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return fn(v.s.d)
}

func (v *rootView) write(op string, fn func(d *data) error) error {
	if err := v.s.check(op); err != nil {
		return err
	}
	v.s.txMu.Lock()
	defer v.s.txMu.Unlock()
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.d)
}

type txView struct {
	s *Store
	d *data
}

func (v *txView) read(op string, fn func(d *data) error) error {
	if err := v.s.check(op); err != nil {
		return err
	}
	return fn(v.d)
}

func (v *txView) write(op string, fn func(d *data) error) error {
	return v.read(op, fn)
}

func reposOver(v view) repository.Repos {
	return repository.Repos{
		Companies: &companyRepo{v: v},
		Users:     &userRepo{v: v},
		Accounts:  &accountRepo{v: v},
		Journal:   &journalRepo{v: v},
		CAFs:      &cafRepo{v: v},
		Documents: &documentRepo{v: v},
		Expenses:  &expenseRepo{v: v},
		Audit:     &auditRepo{v: v},
	}
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
}

func duplicate(what, key string) error {
	return fmt.Errorf("%s %s: %w", what, key, domain.ErrDuplicate)
}

func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
