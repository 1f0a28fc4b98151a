package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/pkg/retry"
)

var (
	errTransitorio = errors.New("conexión reiniciada")
	errDominio     = errors.New("dato inválido")
)

func fast() retry.Policy {
	return retry.Policy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxElapsedTime: 50 * time.Millisecond}
}

func isTransient(err error) bool { return errors.Is(err, errTransitorio) }

func TestDo_ReintentaHastaExito(t *testing.T) {
	calls := 0
	attempts, err := retry.Do(context.Background(), fast(), isTransient, func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransitorio
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ErrorNoTransitorioNoSeReintenta(t *testing.T) {
	attempts, err := retry.Do(context.Background(), fast(), isTransient, func(context.Context) error {
		return errDominio
	})
	assert.ErrorIs(t, err, errDominio)
	assert.Equal(t, 1, attempts, "un error de dominio se devuelve al primer intento")
}

func TestDo_AgotaTiempo(t *testing.T) {
	attempts, err := retry.Do(context.Background(), fast(), isTransient, func(context.Context) error {
		return errTransitorio
	})
	assert.ErrorIs(t, err, errTransitorio)
	assert.Greater(t, attempts, 1)
}

func TestValue_DevuelveValor(t *testing.T) {
	calls := 0
	v, attempts, err := retry.Value(context.Background(), fast(), isTransient, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errTransitorio
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, attempts)
}
