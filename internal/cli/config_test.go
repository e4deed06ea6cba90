package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
)

func TestFindConfigFile_ExplicitPath(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("dialect: mysql"), 0o644))

	path, err := findConfigFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, tmpFile, path)
}

func TestFindConfigFile_ExplicitPathNotFound(t *testing.T) {
	_, err := findConfigFile("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestFindConfigFile_AutoDiscovery(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	configPath := filepath.Join(root, "querygen.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("dialect: mysql"), 0o644))

	nested := filepath.Join(root, "deep", "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	path, err := findConfigFile("")
	require.NoError(t, err)

	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedPath, _ := filepath.EvalSymlinks(configPath)
	actualPath, _ := filepath.EvalSymlinks(path)
	assert.Equal(t, expectedPath, actualPath)
}

func TestFindConfigFile_StopsAtGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "querygen.yaml"), []byte("dialect: mysql"), 0o644))

	repo := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
	chdir(t, repo)

	path, err := findConfigFile("")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	chdir(t, root)

	cfg, path, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, dialect.Postgres, cfg.Dialect)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, FormatSQL, cfg.Compile.Format)
	assert.True(t, cfg.Compile.TypeValidation)
	assert.Equal(t, 100*time.Millisecond, cfg.Explain.SlowThreshold)
	assert.Empty(t, cfg.Policy.Policy())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querygen.yaml")
	content := `
dialect: mysql
timezone: Europe/Berlin
concurrency: 2
operator_aliases:
  - {alias: $gt, operator: gt}
  - {alias: $notIn, operator: notIn}
policy:
  read_only: true
  deny_tables: [secrets]
explain:
  slow_threshold: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, dialect.MySQL, cfg.Dialect)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, time.Second, cfg.Explain.SlowThreshold)
	assert.True(t, cfg.Policy.ReadOnly)
	assert.Equal(t, []string{"secrets"}, cfg.Policy.DenyTables)
	assert.Len(t, cfg.Policy.Policy(), 2)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	aliases, err := cfg.Aliases()
	require.NoError(t, err)
	assert.Equal(t, map[string]sql.Op{"$gt": sql.OpGt, "$notIn": sql.OpNotIn}, aliases)
}

func TestLoadConfig_Env(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	chdir(t, root)
	t.Setenv("QUERYGEN_DIALECT", "sqlite")
	t.Setenv("QUERYGEN_LOG_LEVEL", "debug")

	cfg, _, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, cfg.Dialect)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown_dialect", "dialect: oracle", `unknown dialect "oracle"`},
		{"bad_timezone", "timezone: Mars/Olympus", `timezone "Mars/Olympus"`},
		{"negative_concurrency", "concurrency: -1", "concurrency must not be negative"},
		{"duplicate_alias", "operator_aliases: [{alias: $gt, operator: gt}, {alias: $gt, operator: gte}]", `duplicate operator alias "$gt"`},
		{"unnamed_alias", "operator_aliases: [{operator: gt}]", "has no name"},
		{"bad_format", "compile: {format: xml}", `unknown compile format "xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "querygen.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, _, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// chdir changes the working directory for the duration of the test, like
// testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Setenv("PWD", dir)
	t.Cleanup(func() { _ = os.Chdir(old) })
}
