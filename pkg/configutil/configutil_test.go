package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string  `json:"base_url"`
	Rps      float64 `json:"rps"`
	MaxPages int     `json:"max_pages"`
}

func TestLocalName(t *testing.T) {
	require.Equal(t, filepath.Join("conf", "usatt.local.json5"), LocalName(filepath.Join("conf", "usatt.json5")))
	require.Equal(t, "usatt.local", LocalName("usatt"))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usatt.json5")
	defaults := testConfig{BaseUrl: "https://default", Rps: 2, MaxPages: 100}

	config, err := ReadConfig(path, defaults)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Equal(t, defaults, config)

	require.NoError(t, os.WriteFile(path, []byte(`{
		// comments are allowed
		base_url: "https://usatt.simplycompete.com/userAccount",
		rps: 0.5,
	}`), 0600))
	config, err = ReadConfig(path, defaults)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl:  "https://usatt.simplycompete.com/userAccount",
		Rps:      0.5,
		MaxPages: 100,
	}, config)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "usatt.local.json5"), []byte(`{max_pages: 5}`), 0600))
	config, err = ReadConfig(path, defaults)
	require.NoError(t, err)
	require.Equal(t, 5, config.MaxPages)
	require.Equal(t, 0.5, config.Rps)

	require.NoError(t, os.WriteFile(path, []byte(`{base_url: `), 0600))
	_, err = ReadConfig(path, defaults)
	require.Error(t, err)
}

type optionalConfig struct {
	Slack *int `json:"slack"`
}

func TestReadConfigExplicitZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usatt.json5")
	two := 2
	defaults := optionalConfig{Slack: &two}

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))
	config, err := ReadConfig(path, defaults)
	require.NoError(t, err)
	require.Equal(t, 2, *config.Slack)

	require.NoError(t, os.WriteFile(path, []byte(`{slack: 0}`), 0600))
	config, err = ReadConfig(path, defaults)
	require.NoError(t, err)
	require.Equal(t, 0, *config.Slack)
	require.Equal(t, 2, two)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usatt.json5"), []byte(`{max_pages: 7}`), 0600))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(cwd)

	config, path, err := ReadRecursively("usatt.json5", testConfig{Rps: 2})
	require.NoError(t, err)
	require.Equal(t, 7, config.MaxPages)
	require.Equal(t, 2.0, config.Rps)
	require.Equal(t, "usatt.json5", filepath.Base(path))
}
