package cmd

import (
	"fmt"

	"privacyguard/config"
	"privacyguard/core"
	"privacyguard/database"
	"privacyguard/logger"
	"privacyguard/models"

	"github.com/spf13/cobra"
)

var standaloneProxyPort string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Manages the MITM proxy server (can be run standalone or as part of 'start')",
}

var proxyStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the privacy-enforcing MITM proxy",
	Long: `Starts the Man-in-the-Middle proxy that blocks tracker requests,
enforces the cookie policy, and rewrites fingerprint headers.
Configure your browser or system to use this proxy.
The CA certificate must be generated (using 'proxy init-ca') and trusted by your client.`,
	Run: func(cmd *cobra.Command, args []string) {
		portToUse := standaloneProxyPort
		if !cmd.Flags().Changed("port") {
			portToUse = config.AppConfig.Proxy.Port
			logger.Debug("Using proxy port from config: %s", portToUse)
		} else {
			logger.Debug("Using proxy port from flag: %s", portToUse)
		}
		if portToUse == "" {
			portToUse = "8465"
		}

		caCertPath := config.AppConfig.Proxy.CACertPath
		caKeyPath := config.AppConfig.Proxy.CAKeyPath
		if caCertPath == "" || caKeyPath == "" {
			logger.Error("Proxy CA certificate or key path not configured. Check config or run 'proxy init-ca' first.")
			return
		}
		logger.ProxyInfo("Proxy using CA Cert: %s, CA Key: %s", caCertPath, caKeyPath)

		session, err := buildSession()
		if err != nil {
			logger.Error("Could not build browsing session: %v", err)
			return
		}
		defer session.Close()

		logger.ProxyInfo("Attempting to start MITM proxy on port %s (session %s)...", portToUse, session.ID)
		if err := core.StartMitmProxy(portToUse, session, caCertPath, caKeyPath); err != nil {
			logger.ProxyError("Error starting proxy: %v", err)
		}
	},
}

var proxyInitCACmd = &cobra.Command{
	Use:   "init-ca",
	Short: "Initializes (generates) the root CA certificate and key for the MITM proxy",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Initializing Proxy CA...")
		certPath := config.AppConfig.Proxy.CACertPath
		keyPath := config.AppConfig.Proxy.CAKeyPath

		if certPath == "" || keyPath == "" {
			logger.Error("CA certificate or key path is not defined in configuration.")
			logger.Error("Please check your config setup (e.g., ensure $HOME/.config/privacyguard can be created or provide paths via flags/config file).")
			return
		}

		if err := core.GenerateAndSaveCA(certPath, keyPath); err != nil {
			fmt.Printf("Error generating CA. Check logs for details: %v\n", err)
			return
		}
		fmt.Println("Please import the CA certificate (privacyguard-ca.crt) into your browser/system's trust store.")
	},
}

// buildSession loads everything a browsing session depends on (blocklist,
// fingerprint pools, cookie policy, persisted overrides) and creates the
// session. Any ConfigError here aborts startup rather than running with
// degraded protection.
func buildSession() (*core.SessionContext, error) {
	matcher, err := core.LoadBlocklist(config.AppConfig.Blocklist.Sources, config.AppConfig.Blocklist.JSONEntriesPath)
	if err != nil {
		return nil, err
	}
	core.SetActiveBlocklist(matcher)

	pools := core.DefaultPools()
	if config.AppConfig.Fingerprint.PoolsPath != "" {
		pools, err = core.LoadPools(config.AppConfig.Fingerprint.PoolsPath)
		if err != nil {
			return nil, err
		}
	}

	fallback, perr := models.ParseCookiePolicy(config.AppConfig.Cookies.Policy)
	if perr != nil {
		return nil, perr
	}
	policy, err := database.GetCookiePolicySetting(fallback)
	if err != nil {
		return nil, err
	}

	overrides, err := database.GetAllOverrides()
	if err != nil {
		return nil, err
	}

	seed, err := database.GetFingerprintSeedSetting(config.AppConfig.Fingerprint.Seed)
	if err != nil {
		return nil, err
	}

	return core.NewSessionContext(core.SessionConfig{
		Matcher:   matcher,
		Pools:     pools,
		Policy:    policy,
		Overrides: overrides,
		Store:     database.OverrideStore{},
		Seed:      seed,
	})
}

func init() {
	proxyStartCmd.Flags().StringVarP(&standaloneProxyPort, "port", "p", "8465", "Port for the proxy server to listen on (overrides config)")

	proxyCmd.AddCommand(proxyStartCmd)
	proxyCmd.AddCommand(proxyInitCACmd)
	rootCmd.AddCommand(proxyCmd)
}
