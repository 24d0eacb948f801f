package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	versions []int
	stmts    []string
	failOn   string
	inTx     bool
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) error {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return errors.New("syntax error")
	}
	f.stmts = append(f.stmts, sql)
	if strings.HasPrefix(sql, "INSERT INTO _migrations") {
		f.versions = append(f.versions, args[0].(int))
	}
	return nil
}

func (f *fakeExec) QueryInts(context.Context, string, ...any) ([]int, error) {
	return append([]int(nil), f.versions...), nil
}

func (f *fakeExec) Tx(_ context.Context, fn func(SQLExecutor) error) error {
	f.inTx = true
	defer func() { f.inTx = false }()
	return fn(f)
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/0002_profiles.sql": {Data: []byte("CREATE TABLE profiles();")},
		"migrations/0001_init.sql":     {Data: []byte("CREATE TABLE auth_users();")},
		"migrations/README.md":         {Data: []byte("ignored")},
	}
}

func TestMigrator_ParseOrdersAndIgnores(t *testing.T) {
	migs, err := NewMigrator(testFS(), "migrations").ParseMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "init", migs[0].Name)
	assert.Equal(t, 2, migs[1].Version)
}

func TestMigrator_DuplicateVersion(t *testing.T) {
	fsys := testFS()
	fsys["migrations/0001_again.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}
	_, err := NewMigrator(fsys, "migrations").ParseMigrations()
	require.ErrorContains(t, err, "duplicate migration version 1")
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMigrator(testFS(), "migrations")
	exec := &fakeExec{}

	res, err := m.Run(ctx, exec)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Applied)

	res, err = m.Run(ctx, exec)
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Equal(t, []int{1, 2}, res.Skipped)
}

func TestMigrator_RunStopsOnFailure(t *testing.T) {
	exec := &fakeExec{failOn: "profiles"}
	res, err := NewMigrator(testFS(), "migrations").Run(context.Background(), exec)
	require.Error(t, err)
	require.NotNil(t, res.Failed)
	assert.Equal(t, 2, *res.Failed)
	assert.Equal(t, []int{1}, res.Applied)
}
