package controllers

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
)

func lockConflictErr() error {
	return &pgconn.PgError{Code: "55P03"}
}

func TestMutateLineRetriesOnceOnLockConflict(t *testing.T) {
	calls := 0
	err := mutateLine(func() error {
		calls++
		if calls == 1 {
			return lockConflictErr()
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestMutateLineSurfacesConflictAfterSecondLoss(t *testing.T) {
	calls := 0
	err := mutateLine(func() error {
		calls++
		return lockConflictErr()
	})

	require.Equal(t, 2, calls)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestMutateLinePassesThroughOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := mutateLine(func() error {
		calls++
		return boom
	})

	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, boom)
}
