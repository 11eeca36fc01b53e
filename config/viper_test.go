package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
database:
  driver: sqlite
  sqlite:
    path: "file::memory:"
generators:
  orders:
    increment_size: 10
    optimizer: pooled
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tablegen.yaml", baseYAML)
	writeFile(t, dir, "tablegen.prod.yaml", "database:\n  driver: mysql\n")
	writeFile(t, dir, ".env", "TABLEGEN_SERVER_ADDR=:9999\n")

	t.Setenv("TABLEGEN_ENV", "prod")
	t.Setenv("TABLEGEN_GENERATORS_ORDERS_INCREMENT_SIZE", "20")

	loader, err := New(&Config{Name: "tablegen", Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	t.Cleanup(func() { _ = os.Unsetenv("TABLEGEN_SERVER_ADDR") })

	assert.Equal(t, "mysql", loader.Get("database.driver"))
	assert.Equal(t, "file::memory:", loader.Get("database.sqlite.path"))
	assert.Equal(t, "20", loader.Get("generators.orders.increment_size"))
	assert.Equal(t, ":9999", loader.Get("server.addr"))
	assert.Equal(t, filepath.Join(dir, "tablegen.yaml"), loader.ConfigFileUsed())

	var db struct {
		Driver string `mapstructure:"driver"`
	}
	require.NoError(t, loader.UnmarshalKey("database", &db))
	assert.Equal(t, "mysql", db.Driver)
}

func TestLoaderEmptyConfig(t *testing.T) {
	loader, err := New(&Config{Name: "absent", Paths: []string{t.TempDir()}, EnvPrefix: "TABLEGEN_EMPTY_TEST"})
	require.NoError(t, err)

	err = loader.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
	assert.False(t, IsNotFound(err))
}

func TestLoaderWatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)

	loader, err := New(&Config{Paths: []string{dir}, EnvPrefix: "TABLEGEN_WATCH_TEST"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	_, err = loader.Watch(context.Background(), "")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := loader.Watch(ctx, "database.driver")
	require.NoError(t, err)

	writeFile(t, dir, "config.yaml", "database:\n  driver: postgres\n")

	select {
	case event := <-ch:
		assert.Equal(t, "database.driver", event.Key)
		assert.Equal(t, "sqlite", event.OldValue)
		assert.Equal(t, "postgres", event.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("no config change event received")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
