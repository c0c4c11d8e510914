package gpdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "gpdb.db")

	conn, err := NewConnection("localhost", dsn, &Options{Driver: "sqlite3", Logger: NewSilentLogger(), FailFast: true})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Execute(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)", nil)
	require.NoError(t, err)

	id, err := conn.Insert(ctx, "INSERT INTO notes (body) VALUES (:body)", Named{"body": "hello"})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	row, ok, err := conn.QueryOne(ctx, "SELECT body FROM notes WHERE id = ?", Positional{id})
	require.NoError(t, err)
	require.True(t, ok)

	body, err := row.Field("body")
	require.NoError(t, err)
	require.Equal(t, "hello", body)

	_, err = row.Field("title")
	require.True(t, errors.Is(err, ErrNoSuchAttribute))
}

func TestUnknownDriver(t *testing.T) {
	_, err := NewConnection("localhost", "db", &Options{Driver: "nosuch"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}
