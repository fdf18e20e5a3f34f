/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/asakusafw/asakusafw-sub019/pkg/config"
)

const serviceName = "tsvio.service"

var (
	// unitPath is where the systemd unit is written
	unitPath = "/etc/systemd/system/" + serviceName
	// runCommand runs a system command; replaced in tests
	runCommand = func(command string, args ...string) error {
		c := exec.Command(command, args...)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	}
	// requireRoot reports an error unless running as root; replaced in tests
	requireRoot = func() error {
		if os.Geteuid() != 0 {
			return errors.New("this command requires root privileges")
		}
		return nil
	}
)

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the tsvio API server as a systemd service",
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the API server as a systemd service",
	Long: `Install "tsvio serve" as a systemd service. A configuration file is created
first if none exists.

Examples:
  sudo tsvio service install
  sudo tsvio service install --config /etc/tsvio/config.yaml --data-dir /var/lib/tsvio --user tsvio`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		startNow, _ := cmd.Flags().GetBool("start")
		path := configPath(cmd)

		if err := requireRoot(); err != nil {
			return err
		}

		cfg := configFrom(cmd)
		if !config.ConfigExists(path) {
			var err error
			if cfg, err = initializeConfig(path, cfg.DataDir, ""); err != nil {
				return err
			}
			cmd.Printf("Created configuration at %s\n", path)
		}

		binary, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate tsvio binary: %w", err)
		}
		if err := os.WriteFile(unitPath, []byte(systemdUnit(cfg, path, user, binary)), 0600); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}

		steps := [][]string{{"daemon-reload"}, {"enable", serviceName}}
		if startNow {
			steps = append(steps, []string{"start", serviceName})
		}
		for _, step := range steps {
			if err := runCommand("systemctl", step...); err != nil {
				return fmt.Errorf("systemctl %s: %w", step[0], err)
			}
		}

		cmd.Printf("Installed %s (config %s, data %s, port %d)\n", serviceName, path, cfg.DataDir, cfg.Port)
		return nil
	},
}

// uninstallServiceCmd represents the service uninstall command
var uninstallServiceCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the systemd service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRoot(); err != nil {
			return err
		}

		_ = runCommand("systemctl", "stop", serviceName) // Ignore errors if already stopped
		if err := runCommand("systemctl", "disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		if err := runCommand("systemctl", "daemon-reload"); err != nil {
			return fmt.Errorf("systemctl daemon-reload: %w", err)
		}

		cmd.Printf("Uninstalled %s. Configuration and data were not removed.\n", serviceName)
		return nil
	},
}

// systemctlCommand builds a subcommand that forwards to systemctl
func systemctlCommand(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand("systemctl", action, serviceName)
		},
	}
}

// logsServiceCmd represents the service logs command
var logsServiceCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show service logs with journalctl",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")

		journalArgs := []string{"-u", serviceName}
		if follow {
			journalArgs = append(journalArgs, "-f")
		}
		if lines > 0 {
			journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
		}
		return runCommand("journalctl", journalArgs...)
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(
		installServiceCmd,
		uninstallServiceCmd,
		systemctlCommand("start", "Start the service"),
		systemctlCommand("stop", "Stop the service"),
		systemctlCommand("restart", "Restart the service"),
		systemctlCommand("status", "Show service status"),
		logsServiceCmd,
	)

	installServiceCmd.Flags().String("user", "tsvio", "User to run the service as")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsServiceCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsServiceCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// systemdUnit renders the unit file for the API server
func systemdUnit(cfg *config.Config, configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=tsvio API server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadOnlyPaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, cfg.DataDir, filepath.Dir(configPath))
}
