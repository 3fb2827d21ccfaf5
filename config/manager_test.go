package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCfg struct {
	Addr    string `mapstructure:"addr"`
	MaxSize int    `mapstructure:"maxSize"`
}

func (c *testCfg) GetName() string { return "test_section" }

func (c *testCfg) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.MaxSize <= 0 {
		return fmt.Errorf("maxSize must be positive")
	}
	return nil
}

func writeTestConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, dir, "test_section", "addr: 127.0.0.1:9000\nmaxSize: 1024\n")

	cm := NewConfigManager()
	defer cm.Close()
	cm.SetBasePath(dir)

	cfg := &testCfg{}
	require.NoError(t, cm.LoadConfig("test_section", cfg))
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 1024, cfg.MaxSize)

	got, err := cm.GetConfig("test_section")
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cm := NewConfigManager()
	defer cm.Close()
	cm.SetBasePath(t.TempDir())

	err := cm.LoadConfig("nope", &testCfg{})
	assert.Error(t, err)
}

func TestLoadConfigValidationFailure(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, dir, "test_section", "addr: \"\"\nmaxSize: 0\n")

	cm := NewConfigManager()
	defer cm.Close()
	cm.SetBasePath(dir)

	err := cm.LoadConfig("test_section", &testCfg{})
	assert.Error(t, err)
}

func TestGetConfigUnknownSection(t *testing.T) {
	cm := NewConfigManager()
	defer cm.Close()

	_, err := cm.GetConfig("unknown")
	assert.Error(t, err)
}

type testListener struct {
	name    string
	changed chan Config
}

func (l *testListener) OnConfigChanged(configName string, newConfig, oldConfig Config) error {
	l.changed <- newConfig
	return nil
}

func (l *testListener) GetConfigName() string { return l.name }

func TestConfigHotReload(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "test_section", "addr: 127.0.0.1:9000\nmaxSize: 1024\n")

	cm := NewConfigManager()
	defer cm.Close()
	cm.SetBasePath(dir)

	listener := &testListener{name: "test_section", changed: make(chan Config, 1)}
	cm.AddChangeListener(listener)

	cfg := &testCfg{}
	require.NoError(t, cm.LoadConfig("test_section", cfg))

	require.NoError(t, os.WriteFile(path, []byte("addr: 127.0.0.1:9001\nmaxSize: 2048\n"), 0o644))

	select {
	case newCfg := <-listener.changed:
		updated, ok := newCfg.(*testCfg)
		require.True(t, ok)
		assert.Equal(t, "127.0.0.1:9001", updated.Addr)
		assert.Equal(t, 2048, updated.MaxSize)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload notification")
	}
}

func TestGetInstanceSingleton(t *testing.T) {
	a := GetInstance()
	b := GetInstance()
	assert.Same(t, a, b)
}
