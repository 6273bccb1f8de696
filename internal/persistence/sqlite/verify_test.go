// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_WALMode(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "reg.sqlite"), Config{})
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestVerify_Healthy(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "reg.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)")
	require.NoError(t, err)

	for _, full := range []bool{false, true} {
		issues, err := Verify(context.Background(), db, full)
		require.NoError(t, err)
		assert.Nil(t, issues)
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "reg.sqlite"), DefaultConfig())
	assert.Error(t, err)
}
