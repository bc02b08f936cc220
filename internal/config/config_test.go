package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guseggert/obsws/client/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, contents string) string {
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		exp      Connection
		expErr   bool
	}{
		{
			name: "connection table",
			contents: `
[connection]
host = "obs.local"
port = 4444
password = "mystrongpass"
subs = 5
timeout = 3
`,
			exp: Connection{Host: "obs.local", Port: 4444, Password: "mystrongpass", Subs: 5, Timeout: Duration(3 * time.Second)},
		},
		{
			name: "top level",
			contents: `
host = "localhost"
port = 4455
subs = "low,input_volume_meters"
timeout = "500ms"
secure = true
`,
			exp: Connection{
				Host:    "localhost",
				Port:    4455,
				Subs:    Subs(protocol.SubsLowVolume | protocol.SubsInputVolumeMeters),
				Timeout: Duration(500 * time.Millisecond),
				Secure:  true,
			},
		},
		{
			name:     "fractional timeout",
			contents: "timeout = 1.5",
			exp:      Connection{Timeout: Duration(1500 * time.Millisecond)},
		},
		{
			name:     "unknown subscription",
			contents: `subs = "scenes,nope"`,
			expErr:   true,
		},
		{
			name:     "invalid toml",
			contents: `host = `,
			expErr:   true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), c.contents)
			conn, err := Load(path)
			if c.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.exp, conn)
		})
	}
}

func TestParams(t *testing.T) {
	conn := Connection{Host: "obs.local", Password: "pw", Subs: Subs(protocol.SubsScenes), Timeout: Duration(time.Second)}
	p := conn.Params()
	assert.Equal(t, "obs.local", p.Host)
	assert.Equal(t, 0, p.Port)
	assert.Equal(t, "pw", p.Password)
	assert.Equal(t, protocol.SubsScenes, p.Subs)
	assert.Equal(t, time.Second, p.Timeout)
}

func TestFind(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := filepath.Join(t.TempDir(), "project", "sub")
	require.NoError(t, os.MkdirAll(work, 0o755))

	path, err := Find(work)
	require.NoError(t, err)
	assert.Equal(t, "", path)

	xdg := filepath.Join(home, ".config", "obsws")
	require.NoError(t, os.MkdirAll(xdg, 0o755))
	expected := writeFile(t, xdg, "")
	path, err = Find(work)
	require.NoError(t, err)
	assert.Equal(t, expected, path)

	expected = writeFile(t, home, "")
	path, err = Find(work)
	require.NoError(t, err)
	assert.Equal(t, expected, path)

	expected = writeFile(t, filepath.Dir(work), "")
	path, err = Find(work)
	require.NoError(t, err)
	assert.Equal(t, expected, path)
}

func TestDiscoverExplicitPath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "[connection]\nhost = \"example\"\n")
	conn, loaded, err := Discover(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)
	assert.Equal(t, "example", conn.Host)

	_, _, err = Discover(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
