package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakusafw/asakusafw-sub019/pkg/config"
)

// fakeSystem redirects the unit file and records system commands
func fakeSystem(t *testing.T, root bool) *[]string {
	t.Helper()
	var calls []string

	oldUnit, oldRun, oldRoot := unitPath, runCommand, requireRoot
	unitPath = filepath.Join(t.TempDir(), serviceName)
	runCommand = func(command string, args ...string) error {
		calls = append(calls, command+" "+strings.Join(args, " "))
		return nil
	}
	requireRoot = func() error {
		if !root {
			return errors.New("this command requires root privileges")
		}
		return nil
	}
	t.Cleanup(func() { unitPath, runCommand, requireRoot = oldUnit, oldRun, oldRoot })
	return &calls
}

func TestSystemdUnit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = "/var/lib/tsvio"

	unit := systemdUnit(cfg, "/etc/tsvio/config.yaml", "tsvio", "/usr/local/bin/tsvio")
	assert.Contains(t, unit, "User=tsvio")
	assert.Contains(t, unit, "Group=tsvio")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/tsvio serve --config /etc/tsvio/config.yaml")
	assert.Contains(t, unit, "ReadWritePaths=/var/lib/tsvio")
	assert.Contains(t, unit, "ReadOnlyPaths=/etc/tsvio")
}

func TestServiceInstall(t *testing.T) {
	calls := fakeSystem(t, true)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tsvio.yaml")
	dataDir := filepath.Join(dir, "data")

	out, err := execute(t, "service", "install", "--config", configPath, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration")
	assert.FileExists(t, configPath)

	unit, err := os.ReadFile(unitPath)
	require.NoError(t, err)
	assert.Contains(t, string(unit), "--config "+configPath)
	assert.Contains(t, string(unit), "ReadWritePaths="+dataDir)

	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable tsvio.service",
		"systemctl start tsvio.service",
	}, *calls)
}

func TestServiceInstallRequiresRoot(t *testing.T) {
	calls := fakeSystem(t, false)
	env := newTestEnv(t)

	_, err := execute(t, "service", "install", "--config", env.configPath)
	assert.Error(t, err)
	assert.Empty(t, *calls)
	assert.NoFileExists(t, unitPath)
}

func TestServiceUninstall(t *testing.T) {
	calls := fakeSystem(t, true)
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(unitPath, []byte("[Unit]\n"), 0600))

	_, err := execute(t, "service", "uninstall", "--config", env.configPath)
	require.NoError(t, err)
	assert.NoFileExists(t, unitPath)
	assert.Equal(t, []string{
		"systemctl stop tsvio.service",
		"systemctl disable tsvio.service",
		"systemctl daemon-reload",
	}, *calls)
}

func TestServiceControlCommands(t *testing.T) {
	calls := fakeSystem(t, true)
	env := newTestEnv(t)

	for _, action := range []string{"start", "stop", "restart", "status"} {
		_, err := execute(t, "service", action, "--config", env.configPath)
		require.NoError(t, err)
	}
	_, err := execute(t, "service", "logs", "-f", "-n", "50", "--config", env.configPath)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"systemctl start tsvio.service",
		"systemctl stop tsvio.service",
		"systemctl restart tsvio.service",
		"systemctl status tsvio.service",
		"journalctl -u tsvio.service -f -n50",
	}, *calls)
}
