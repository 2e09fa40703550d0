package universe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divrisk/internal/config"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("KO"))
	assert.NoError(t, Validate("BRK.B"))
	assert.NoError(t, Validate("GOOGL"))

	assert.Error(t, Validate("^GSPC"), "index symbols rejected")
	assert.Error(t, Validate("ko"), "lowercase rejected")
	assert.Error(t, Validate("TOOLONGG"))
	assert.Error(t, Validate("KO=F"))
	assert.Error(t, Validate(""))
}

func TestLoadFromConfig(t *testing.T) {
	tickers, err := Load(config.BatchConfig{Tickers: []string{"ko", " PG ", "KO", "JNJ"}}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"KO", "PG", "JNJ"}, tickers, "uppercased, trimmed, deduplicated in order")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(path, []byte("# dividend payers\nKO\nPG\n\nXOM\n"), 0o644))

	tickers, err := Load(config.BatchConfig{}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"KO", "PG", "XOM"}, tickers)
}

func TestLoadConfigWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(path, []byte("XOM\n"), 0o644))

	tickers, err := Load(config.BatchConfig{Tickers: []string{"KO"}}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"KO"}, tickers)
}

func TestLoadRejectsInvalidSymbol(t *testing.T) {
	_, err := Load(config.BatchConfig{Tickers: []string{"KO", "^GSPC"}}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "^GSPC")
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(config.BatchConfig{}, "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o644))
	_, err = Load(config.BatchConfig{}, path)
	assert.Error(t, err)
}
