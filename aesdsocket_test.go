package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/One-com/aesdsocket/aesd"
	"github.com/One-com/aesdsocket/config"
	"github.com/One-com/aesdsocket/metric"
)

func testConfigurator(t *testing.T, yaml string) (*configurator, string) {
	t.Helper()
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "aesd.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(yaml), 0644))

	reg := config.New()
	config.SetDefaults(reg)
	reg.Set("store.path", filepath.Join(dir, "data"))
	require.NoError(t, reg.AddConfigFile("", cfgFile))
	require.NoError(t, reg.Load())
	s, err := reg.Settings()
	require.NoError(t, err)
	return newConfigurator(reg, s, aesd.NewStats(metric.NewClient(nil))), cfgFile
}

func TestConfigure(t *testing.T) {
	c, cfgFile := testConfigurator(t, "listen:\n  address: 127.0.0.1:0\nsession:\n  buffer: 16\n")

	servers, cleanups, err := c.configure()
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Empty(t, cleanups)
	assert.Equal(t, 16, c.server.BufferSize)
	assert.Equal(t, byte('\n'), c.server.Framer.Terminator)
	assert.Equal(t, "127.0.0.1:0", listenerGroup(c.settings)[0].Addr)
	assert.Equal(t, listenerName, listenerGroup(c.settings)[0].ListenerFdName)
	assert.Equal(t, 1, listenerGroup(c.settings)[0].Backlog)

	// reload picks up the changed file
	require.NoError(t, os.WriteFile(cfgFile, []byte("session:\n  buffer: 32\n"), 0644))
	_, _, err = c.configure()
	require.NoError(t, err)
	assert.Equal(t, 32, c.server.BufferSize)
	assert.Equal(t, 2, c.revision)

	// a broken reload keeps the running generation
	for _, broken := range []string{"session:\n  buffer: 0\n", "log:\n  level: chatty\n"} {
		require.NoError(t, os.WriteFile(cfgFile, []byte(broken), 0644))
		_, _, err = c.configure()
		assert.Error(t, err, broken)
		assert.Equal(t, 2, c.revision)
		assert.Equal(t, 32, c.server.BufferSize)
	}
}

func TestRemoveStore(t *testing.T) {
	c, _ := testConfigurator(t, "{}\n")
	_, _, err := c.configure()
	require.NoError(t, err)

	require.NoError(t, c.store.Append([]byte("hello\n")))
	require.NoError(t, c.removeStore())
	_, err = os.Stat(c.store.Path())
	assert.True(t, os.IsNotExist(err))

	// already gone is fine
	assert.NoError(t, c.removeStore())

	c.settings.Store.Keep = true
	require.NoError(t, c.store.Append([]byte("kept\n")))
	require.NoError(t, c.removeStore())
	_, err = os.Stat(c.store.Path())
	assert.NoError(t, err)
}

func TestRemoveStoreBeforeConfigure(t *testing.T) {
	c, _ := testConfigurator(t, "{}\n")
	assert.NoError(t, c.removeStore())
}
