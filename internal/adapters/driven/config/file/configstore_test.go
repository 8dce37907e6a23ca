package file

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_EmptyDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ConfigFile), store.Path())
	_, ok := store.Get("llm.provider")
	assert.False(t, ok)

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "nothing is written until a setting changes")
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".licita", ConfigFile), store.Path())
}

func TestNewConfigStore_ReadsTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[embedding]
provider = "openai"
model = "text-embedding-3-small"

[knowledge_base]
root = "/srv/referencias"

[audit]
max_attempts = 4
final_summary = false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.Equal(t, "text-embedding-3-small", store.GetString("embedding.model"))
	assert.Equal(t, "/srv/referencias", store.GetString("knowledge_base.root"))
	assert.Equal(t, 4, store.GetInt("audit.max_attempts"))

	v, ok := store.Get("audit.final_summary")
	assert.True(t, ok)
	assert.Equal(t, false, v)
}

func TestNewConfigStore_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("[llm\nprovider ="), 0600))

	_, err := NewConfigStore(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_SetPersistsAsTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "anthropic"))
	require.NoError(t, store.Set("llm.model", "claude-3-5-sonnet"))
	require.NoError(t, store.Set("audit.max_attempts", 6))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[llm]")
	assert.Contains(t, string(data), "[audit]")
	assert.NotContains(t, string(data), "'llm.provider'")

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", reopened.GetString("llm.provider"))
	assert.Equal(t, "claude-3-5-sonnet", reopened.GetString("llm.model"))
	assert.Equal(t, 6, reopened.GetInt("audit.max_attempts"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_UnsetRewritesFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("knowledge_base.root", "/srv/leis"))
	require.NoError(t, store.Set("llm.provider", "ollama"))

	require.NoError(t, store.Unset("knowledge_base.root"))
	require.NoError(t, store.Unset("knowledge_base.root"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := reopened.Get("knowledge_base.root")
	assert.False(t, ok)
	assert.Equal(t, "ollama", reopened.GetString("llm.provider"))
}

func TestConfigStore_ConflictingKeyRollsBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))

	err = store.Set("llm", "openai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts")

	_, ok := store.Get("llm")
	assert.False(t, ok, "failed write must not leave the value behind")
	assert.Equal(t, "gpt-4o-mini", store.GetString("llm.model"))
}

func TestConfigStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	for _, model := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set("embedding.model", model))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ConfigFile, entries[0].Name())
}

func TestNest(t *testing.T) {
	tree, err := nest(map[string]any{
		"audit.max_attempts":  3,
		"audit.final_summary": true,
		"top":                 "x",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"audit": map[string]any{"max_attempts": 3, "final_summary": true},
		"top":   "x",
	}, tree)
}

func TestFlatten(t *testing.T) {
	out := make(map[string]any)
	flatten(map[string]any{
		"llm":   map[string]any{"provider": "openai", "extra": map[string]any{"depth": int64(2)}},
		"plain": true,
	}, "", out)

	assert.Equal(t, map[string]any{
		"llm.provider":    "openai",
		"llm.extra.depth": int64(2),
		"plain":           true,
	}, out)
}
