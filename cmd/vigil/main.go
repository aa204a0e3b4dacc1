package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vigil-dev/vigil/pkg/config"
	"github.com/vigil-dev/vigil/pkg/vault"
)

// Set via ldflags at build time
var version = "dev"

var homeDir string

var (
	accentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	categoryTint = map[string]lipgloss.Style{
		"P0": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		"P1": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"P2": lipgloss.NewStyle().Foreground(lipgloss.Color("248")),
	}
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vigil",
		Short:         "Personal activity memory daemon",
		Long:          "Vigil watches what you work on, classifies it, and keeps a structured daily memory in a plain markdown vault.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", config.Home(), "vigil home directory")

	rootCmd.AddCommand(
		initCmd(),
		daemonCmd(),
		stopCmd(),
		noteCmd(),
		taskCmd(),
		logCmd(),
		searchCmd(),
		sweepCmd(),
		statusCmd(),
		tagCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg := config.LoadOrDefault(config.Path(homeDir))
	if cfg.VaultPath == "" {
		cfg.VaultPath = defaultVaultPath()
	}
	return cfg
}

func defaultVaultPath() string {
	return filepath.Join(homeDir, "vault")
}

func openVault(cfg config.Config) (*vault.Vault, error) {
	return vault.Open(cfg.VaultPath)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
