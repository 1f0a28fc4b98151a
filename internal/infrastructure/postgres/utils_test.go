package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

func TestWrap_UniqueViolationEsDuplicado(t *testing.T) {
	err := wrap("documents.Create", &pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.False(t, domain.IsTransient(err))
}

func TestWrap_ClasificaTransitorios(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"serializacion", &pgconn.PgError{Code: "40001"}, true},
		{"conexion", &pgconn.PgError{Code: "08006"}, true},
		{"sintaxis", &pgconn.PgError{Code: "42601"}, false},
		{"otro", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wrap("op", tc.err)
			assert.ErrorIs(t, err, domain.ErrPersistence)
			assert.Equal(t, tc.transient, domain.IsTransient(err))
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
}

func TestLimitOrAll(t *testing.T) {
	assert.Nil(t, limitOrAll(0))
	require.NotNil(t, limitOrAll(20))
	assert.Equal(t, 20, *limitOrAll(20))
}

func TestLineasDocumento_IdaYVuelta(t *testing.T) {
	in := []entity.DocumentLine{{
		LineNo:      1,
		Description: "Servicio",
		Quantity:    decimal.RequireFromString("1.5"),
		UnitPrice:   decimal.NewFromInt(10000),
		DiscountPct: decimal.NewFromInt(10),
		Amount:      decimal.NewFromInt(13500),
	}}
	raw, err := marshalLines(in)
	require.NoError(t, err)

	out, err := unmarshalLines(raw)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Quantity.Equal(in[0].Quantity))
	assert.True(t, out[0].Amount.Equal(in[0].Amount))
	assert.Equal(t, "Servicio", out[0].Description)
}
