package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSensitiveConfigKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{name: "openai key", key: "api_key", want: true},
		{name: "anthropic key", key: "anthropic_api_key", want: true},
		{name: "openai key uppercase and spaces", key: " API_KEY ", want: true},
		{name: "non-sensitive key", key: "model", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isSensitiveConfigKey(tt.key)
			if got != tt.want {
				t.Fatalf("isSensitiveConfigKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "long key", value: "sk-ant-1234567890", want: "sk-a***7890"},
		{name: "short key", value: "short", want: "***"},
		{name: "empty key", value: "", want: "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskSecret(tt.value)
			if got != tt.want {
				t.Fatalf("maskSecret(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dict := `{"heart": "قلب", "kidney": "كلية"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dictionary.json"), []byte(dict), 0600))
	return filepath.Join(dir, "config.json")
}

func TestFixCmd(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "english typed on arabic layout", text: ";jhf", want: "كتاب"},
		{name: "correct text", text: "heart", want: "No keyboard error detected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCmd(t, "fix", tt.text)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestLookupCmd(t *testing.T) {
	configPath := newConfigDir(t)

	out, err := runCmd(t, "--config", configPath, "lookup", "Heart")
	require.NoError(t, err)
	assert.Contains(t, out, "قلب")

	out, err = runCmd(t, "--config", configPath, "lookup", "xyzq")
	require.NoError(t, err)
	assert.Contains(t, out, "Not found in local dictionary")
}

func TestSearchCmd(t *testing.T) {
	configPath := newConfigDir(t)

	out, err := runCmd(t, "--config", configPath, "search", "kid")
	require.NoError(t, err)
	assert.Contains(t, out, "kidney")
	assert.NotContains(t, out, "heart")
}

func TestTranslateCmd_SavesHistory(t *testing.T) {
	configPath := newConfigDir(t)

	out, err := runCmd(t, "--config", configPath, "translate", "--source", "local", "--save", "heart")
	require.NoError(t, err)
	assert.Contains(t, out, "[Local Dictionary] قلب")

	out, err = runCmd(t, "--config", configPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "heart → قلب (local)")

	out, err = runCmd(t, "--config", configPath, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache: 1/100 entries")
	assert.Contains(t, out, "Dictionary: 2 entries (loaded: true)")

	_, err = runCmd(t, "--config", configPath, "cache", "clear")
	require.NoError(t, err)
	out, err = runCmd(t, "--config", configPath, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache: 0/100 entries")
}

func TestTranslateCmd_AutoSourceUsesCache(t *testing.T) {
	offline := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer offline.Close()

	configPath := newConfigDir(t)
	cfg := `{"libre": {"url": "` + offline.URL + `", "google_fallback": false}}`
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0600))

	out, err := runCmd(t, "--config", configPath, "translate", "--source", "auto", "heart")
	require.NoError(t, err)
	assert.Contains(t, out, "[Local Dictionary] قلب")

	out, err = runCmd(t, "--config", configPath, "translate", "--source", "auto", "heart")
	require.NoError(t, err)
	assert.Contains(t, out, "[Cache] قلب")
}

func TestTranslateCmd_UnknownSource(t *testing.T) {
	_, err := runCmd(t, "--config", newConfigDir(t), "translate", "--source", "babel", "heart")
	assert.Error(t, err)
}

func TestConfigCmds(t *testing.T) {
	configPath := newConfigDir(t)

	out, err := runCmd(t, "--config", configPath, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, configPath)
	assert.FileExists(t, configPath)

	out, err = runCmd(t, "--config", configPath, "config", "set", "openrouter.api_key", "sk-or-abcdefghijklmnop")
	require.NoError(t, err)
	assert.Contains(t, out, "sk-o***mnop")
	assert.NotContains(t, out, "abcdefghijklmnop")

	out, err = runCmd(t, "--config", configPath, "config", "get", "openrouter.api_key")
	require.NoError(t, err)
	assert.Equal(t, "openrouter.api_key = sk-o***mnop\n", out)

	_, err = runCmd(t, "--config", configPath, "config", "set", "translation.active_source", "local")
	require.NoError(t, err)
	out, err = runCmd(t, "--config", configPath, "config", "get", "translation.active_source")
	require.NoError(t, err)
	assert.Equal(t, "translation.active_source = local\n", out)

	_, err = runCmd(t, "--config", configPath, "config", "set", "translation.active_source", "babel")
	assert.Error(t, err)
}
