package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/memory"
)

func TestRun_ErrorDescartaTodo(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	boom := errors.New("boom")

	err := s.Run(ctx, func(tx repository.Repos) error {
		require.NoError(t, tx.Accounts.Create(ctx, &entity.Account{CompanyID: "c1", Code: "1.1.01", Name: "Caja", Class: entity.ClassActivo}))
		got, err := tx.Accounts.Get(ctx, "c1", "1.1.01")
		require.NoError(t, err)
		require.NotNil(t, got, "la transacción ve sus propias escrituras")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Repos().Accounts.Get(ctx, "c1", "1.1.01")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRun_CommitPublica(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Run(ctx, func(tx repository.Repos) error {
		return tx.Accounts.Create(ctx, &entity.Account{CompanyID: "c1", Code: "1.1.01", Name: "Caja", Class: entity.ClassActivo})
	}))
	got, err := s.Repos().Accounts.Get(ctx, "c1", "1.1.01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Caja", got.Name)
}

func TestJournal_NextNumberCorrelativoConcurrente(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Run(ctx, func(tx repository.Repos) error {
				n, err := tx.Journal.NextNumber(ctx, "c1")
				if err != nil {
					return err
				}
				mu.Lock()
				seen[n] = true
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 20)
	for i := int64(1); i <= 20; i++ {
		assert.True(t, seen[i], "falta el número %d", i)
	}
}

func TestDocuments_FolioDuplicadoRechazado(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := s.Repos().Documents
	require.NoError(t, repo.Create(ctx, &entity.Document{ID: "a", CompanyID: "c1", DocType: 33, Folio: 7}))
	err := repo.Create(ctx, &entity.Document{ID: "b", CompanyID: "c1", DocType: 33, Folio: 7})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	// mismo folio en otro tipo es válido
	assert.NoError(t, repo.Create(ctx, &entity.Document{ID: "c", CompanyID: "c1", DocType: 39, Folio: 7}))
}

func TestJournal_SumPostedIgnoraBorradores(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := s.Repos().Journal
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	mk := func(id string, st entity.EntryStatus, amount int64) *entity.JournalEntry {
		v := decimal.NewFromInt(amount)
		return &entity.JournalEntry{ID: id, CompanyID: "c1", Date: day, Status: st, Lines: []entity.JournalLine{
			{LineNo: 1, AccountCode: "1.1.01", Debit: v, Credit: decimal.Zero},
			{LineNo: 2, AccountCode: "4.1.01", Debit: decimal.Zero, Credit: v},
		}}
	}
	require.NoError(t, repo.Create(ctx, mk("a", entity.EntryContabilizado, 1000)))
	require.NoError(t, repo.Create(ctx, mk("b", entity.EntryBorrador, 500)))

	sums, err := repo.SumPosted(ctx, "c1", "1.1.01", day)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "1000", sums[0].Debit.String())

	sums, err = repo.SumPosted(ctx, "c1", "", day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, sums, "asOf anterior a la fecha del asiento")
}

func TestAudit_QueryYPurga(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := s.Repos().Audit
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, &entity.AuditLogEntry{
			ID: string(rune('a' + i)), CompanyID: "c1", Timestamp: base.AddDate(0, 0, i),
			Level: entity.AuditAudit, Category: entity.CategoryFolio, Action: "asignar",
		}))
	}
	items, total, err := repo.Query(ctx, entity.AuditFilter{CompanyID: "c1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.Equal(t, "e", items[0].ID, "el más reciente primero")

	n, err := repo.DeleteOlderThan(ctx, "c1", base.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, total, err = repo.Query(ctx, entity.AuditFilter{CompanyID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSetFault_DevuelvePersistenceError(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.SetFault(func(op string) error {
		if op == "documents.ListIssuedBetween" {
			return errors.New("conexión perdida")
		}
		return nil
	})
	_, err := s.Repos().Documents.ListIssuedBetween(ctx, "c1", time.Now(), time.Now())
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	assert.True(t, domain.IsTransient(err))

	s.SetFault(nil)
	_, err = s.Repos().Documents.ListIssuedBetween(ctx, "c1", time.Now(), time.Now())
	assert.NoError(t, err)
}
