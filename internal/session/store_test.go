package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trytheo/outreach/internal/outreach"
	"github.com/trytheo/outreach/internal/session"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.NewStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := newStore(t)

	want := session.Data{
		Template: "Write something nice",
		Columns:  []string{"Organization name", "Tuition"},
		Organizations: []outreach.Organization{
			{Name: "Lincoln Academy", Fields: []outreach.Field{{Key: "Tuition", Value: "$12,000"}}},
		},
		Export: []outreach.ExportRow{{RecipientEmail: "a@b.org", ConfidenceScore: 90}},
	}
	require.NoError(t, store.Save("abc-123", want))

	got, err := store.Load("abc-123")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_MissingSessionIsEmpty(t *testing.T) {
	store := newStore(t)

	got, err := store.Load("never-saved")
	require.NoError(t, err)
	assert.Equal(t, session.Data{}, got)
}

func TestStore_OverwriteReplacesData(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Save("s1", session.Data{Template: "first"}))
	require.NoError(t, store.Save("s1", session.Data{Template: "second"}))

	got, err := store.Load("s1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Template)
}

func TestStore_RejectsPathTraversalIDs(t *testing.T) {
	store := newStore(t)

	for _, id := range []string{"", "../evil", "a/b", "a.b"} {
		_, err := store.Load(id)
		assert.Error(t, err, "id %q", id)
		assert.Error(t, store.Save(id, session.Data{}), "id %q", id)
	}
}

func TestStore_NoTempFileLeftBehind(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	store, err := session.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("s1", session.Data{Template: "x"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s1.json", entries[0].Name())
}

func TestNewID_IsStorable(t *testing.T) {
	store := newStore(t)

	id := session.NewID()
	assert.NotEmpty(t, id)
	assert.NotEqual(t, id, session.NewID())
	require.NoError(t, store.Save(id, session.Data{Template: "x"}))
}
