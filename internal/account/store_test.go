package account

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupOnEmptyStore(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "accounts.txt"))
	s.Load()

	assert.Equal(t, Absent, s.Lookup("anyone", "anything"))
	assert.Equal(t, 0, s.Len())
}

func TestInsertThenLookup(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "accounts.txt"))
	s.Load()

	s.Insert("bob", "pw")

	assert.Equal(t, OK, s.Lookup("bob", "pw"))
	assert.Equal(t, WrongPassword, s.Lookup("bob", "wrong"))
	assert.Equal(t, Absent, s.Lookup("alice", "pw"))
}

func TestFlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.txt")

	s := NewStore(path)
	s.Load()
	s.Insert("alice", "secret")
	s.Insert("bob", "hunter2")
	require.NoError(t, s.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "username=alice;password=secret\nusername=bob;password=hunter2\n", string(data))

	reloaded := NewStore(path)
	reloaded.Load()
	assert.Equal(t, 2, reloaded.Len())
	assert.Equal(t, OK, reloaded.Lookup("alice", "secret"))
	assert.Equal(t, OK, reloaded.Lookup("bob", "hunter2"))
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.txt")
	content := "username=alice;password=secret\n" +
		"garbage line\n" +
		"\n" +
		"password=orphaned\n" +
		"username=bob;password=pw\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := NewStore(path)
	s.Load()

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, OK, s.Lookup("alice", "secret"))
	assert.Equal(t, OK, s.Lookup("bob", "pw"))
}

func TestLookupFirstMatchWinsOnDuplicates(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "accounts.txt"))
	s.Insert("bob", "first")
	s.Insert("bob", "second")

	assert.Equal(t, OK, s.Lookup("bob", "first"))
	assert.Equal(t, WrongPassword, s.Lookup("bob", "second"))
}

func TestFlushFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	// Use the directory itself as the target path so the write fails.
	s := NewStore(dir)
	s.Insert("alice", "secret")

	assert.Error(t, s.Flush())
}
