// Package retry reintenta operaciones con backoff exponencial; sólo los errores
// que el llamador clasifica como transitorios vuelven a intentarse.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy parámetros del backoff exponencial.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// Default política usada por los servicios si no se configura otra.
func Default() Policy {
	return Policy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

// Classifier decide si un error merece un nuevo intento.
type Classifier func(error) bool

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.MaxElapsedTime > 0 {
		b.MaxElapsedTime = p.MaxElapsedTime
	}
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// Do ejecuta op hasta que tenga éxito, devuelva un error no transitorio o se agote el tiempo.
// Devuelve la cantidad de intentos realizados y el último error.
func Do(ctx context.Context, p Policy, transient Classifier, op func(ctx context.Context) error) (int, error) {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if transient == nil || !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.newBackOff(ctx))
	return attempts, err
}

// Value variante de Do para lecturas que devuelven un valor.
func Value[T any](ctx context.Context, p Policy, transient Classifier, op func(ctx context.Context) (T, error)) (T, int, error) {
	var out T
	attempts, err := Do(ctx, p, transient, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, attempts, err
}
