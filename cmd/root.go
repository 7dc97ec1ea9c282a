package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"privacyguard/config"
	"privacyguard/database"
	"privacyguard/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile          string
	dbPath           string // Bound to --dbpath flag
	appLogPathFlag   string
	proxyLogPathFlag string
	logLevelFlag     string
)

// Helper function to expand tilde in this package too
func expandTildeCmd(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

var rootCmd = &cobra.Command{
	Use:   "privacyguard",
	Short: "A tracker-blocking, fingerprint-randomizing privacy proxy",
	Long: `privacyguard sits between a browser and the network as a MITM proxy.
It blocks requests to known tracker domains, enforces a cookie policy
(block all, block third-party, or allow all, with per-origin overrides),
and presents a randomized but self-consistent browser fingerprint for
every session.

Generate and trust the CA certificate first ('privacyguard proxy init-ca'),
then point your browser at the proxy port.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile, appLogPathFlag, proxyLogPathFlag, logLevelFlag); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		finalDBPath := dbPath
		if finalDBPath == "" {
			finalDBPath = config.AppConfig.Database.Path
		}
		expandedPath, err := expandTildeCmd(finalDBPath)
		if err != nil {
			logger.Error("Error expanding tilde in database path '%s': %v. Using original.", finalDBPath, err)
		} else {
			finalDBPath = expandedPath
		}
		if finalDBPath == "" {
			logger.Error("Database path is empty after checking flag and config, falling back to 'privacyguard.db' in CWD.")
			finalDBPath = "privacyguard.db"
		}

		if err := database.InitDB(finalDBPath); err != nil {
			return fmt.Errorf("failed to initialize database at %s: %w", finalDBPath, err)
		}

		isSuppressedCmd := cmd.Name() == "completion" ||
			cmd.Name() == cobra.ShellCompRequestCmd ||
			cmd.Name() == cobra.ShellCompNoDescRequestCmd ||
			cmd.Name() == "start"
		if !isSuppressedCmd {
			logger.Info("Database initialized at: %s", finalDBPath)
		}
		return nil
	},
}

func Execute() {
	defer database.CloseDB()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/privacyguard/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "path to SQLite database file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&appLogPathFlag, "app-log", "", "path for the application log file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&proxyLogPathFlag, "proxy-log", "", "path for the proxy log file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: DEBUG, INFO, ERROR (overrides config/default)")
}
