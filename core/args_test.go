package core

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestBindArgs(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		q, args, err := bindArgs("SELECT 1", nil, sqlx.DOLLAR)
		require.NoError(t, err)
		require.Equal(t, "SELECT 1", q)
		require.Empty(t, args)
	})

	t.Run("PositionalPassThrough", func(t *testing.T) {
		q, args, err := bindArgs("SELECT * FROM t WHERE a = $1 AND b = $2", Positional{1, "x"}, sqlx.DOLLAR)
		require.NoError(t, err)
		require.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", q)
		require.Equal(t, []any{1, "x"}, args)
	})

	t.Run("NamedDollar", func(t *testing.T) {
		q, args, err := bindArgs("SELECT * FROM t WHERE a = :a AND b = :b OR c = :a", Named{"a": 1, "b": "x"}, sqlx.DOLLAR)
		require.NoError(t, err)
		require.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2 OR c = $3", q)
		require.Equal(t, []any{1, "x", 1}, args)
	})

	t.Run("NamedQuestion", func(t *testing.T) {
		q, args, err := bindArgs("INSERT INTO t (a, b) VALUES (:a, :b)", Named{"a": 1, "b": 2}, sqlx.QUESTION)
		require.NoError(t, err)
		require.Equal(t, "INSERT INTO t (a, b) VALUES (?, ?)", q)
		require.Equal(t, []any{1, 2}, args)
	})

	t.Run("NamedMissing", func(t *testing.T) {
		_, _, err := bindArgs("SELECT :missing", Named{}, sqlx.QUESTION)
		require.ErrorIs(t, err, ErrInvalidSQL)
	})
}
