package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/util"
)

const player = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

func TestLoadCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "accounts.yaml")
	s := New(path)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())

	_, err = os.Stat(path)
	assert.NoError(t, err, "empty accounts file should be created")
}

func TestSaveAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.yaml")

	s := New(path)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	doc := domain.NewDocument()
	doc.Set("10.00", player, "dollar-balance")
	doc.Set("Unemployed", player, "job")
	doc.Set("true", player, "jobnotifications")
	require.NoError(t, s.Save(ctx, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `dollar-balance: "10.00"`)
	assert.Contains(t, string(raw), "jobnotifications: true")

	loaded, err := New(path).Load(ctx)
	require.NoError(t, err)
	v, ok := loaded.Get(player, "dollar-balance")
	assert.True(t, ok)
	assert.Equal(t, "10.00", v)
	v, _ = loaded.Get(player, "jobnotifications")
	assert.Equal(t, "true", v)
}

func TestSavePreservesComments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	original := `# Player balances, edit with care.
bank:
  # Server bank balance
  dollar-balance: "500.00" # never below zero
`
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	s := New(path)
	doc, err := s.Load(ctx)
	require.NoError(t, err)

	doc.Set("450.00", "bank", "dollar-balance")
	doc.Set("1.00", "shop", "dollar-balance")
	require.NoError(t, s.Save(ctx, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, "# Player balances, edit with care.")
	assert.Contains(t, out, "# Server bank balance")
	assert.Contains(t, out, "# never below zero")
	assert.Contains(t, out, `"450.00"`)
	assert.Contains(t, out, "shop:")
}

func TestLoadReadsPlainScalars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	content := `
069a79f4-44e9-4726-a5be-fca90e38aaf5:
  dollar-balance: 12.50
  job: Miner
  jobnotifications: "false"
  nothing: ~
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, err := New(path).Load(context.Background())
	require.NoError(t, err)

	v, _ := doc.Get(player, "dollar-balance")
	assert.Equal(t, "12.50", v, "scalar text is kept verbatim, no float conversion")
	v, _ = doc.Get(player, "jobnotifications")
	assert.Equal(t, "false", v)
	assert.False(t, doc.Has(player, "nothing"))
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	doc, err := New(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}

func TestLoadCorruptFileIsLeftAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	corrupt := "bank: [unterminated\n"
	require.NoError(t, os.WriteFile(path, []byte(corrupt), 0o644))

	_, err := New(path).Load(context.Background())
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, string(raw))
}

func TestLoadRejectsNonMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o644))

	_, err := New(path).Load(context.Background())
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)
}

func TestSaveUnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// The parent "directory" is a regular file, so the write must fail.
	s := New(filepath.Join(blocker, "accounts.yaml"))
	err := s.Save(context.Background(), domain.NewDocument())
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)
}
