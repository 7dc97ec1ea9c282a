package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"privacyguard/api"
	"privacyguard/config"
	"privacyguard/core"
	"privacyguard/logger"

	"github.com/spf13/cobra"
)

var (
	startServerPort string
	startProxyPort  string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts both the management API server and the MITM proxy",
	Long: `Starts the management API server and the privacy-enforcing MITM proxy
concurrently. This is the normal way to run privacyguard.`,
	Run: func(cmd *cobra.Command, args []string) {
		actualServerPort := startServerPort
		if !cmd.Flags().Changed("server-port") && config.AppConfig.Server.Port != "" {
			actualServerPort = config.AppConfig.Server.Port
		}
		actualProxyPort := startProxyPort
		if !cmd.Flags().Changed("proxy-port") && config.AppConfig.Proxy.Port != "" {
			actualProxyPort = config.AppConfig.Proxy.Port
		}
		logger.Info("Start Command: Final ports determined - Server: %s, Proxy: %s", actualServerPort, actualProxyPort)

		caCertPath := config.AppConfig.Proxy.CACertPath
		caKeyPath := config.AppConfig.Proxy.CAKeyPath
		if caCertPath == "" || caKeyPath == "" {
			logger.Error("Start Command: CA certificate or key path not configured. Check config or run 'proxy init-ca' first.")
			return
		}

		// Session setup happens before any goroutine starts so a bad
		// blocklist or policy aborts startup outright.
		session, err := buildSession()
		if err != nil {
			logger.Error("Start Command: Could not build browsing session: %v", err)
			return
		}
		defer session.Close()

		var wg sync.WaitGroup

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// --- Start API Server Goroutine ---
		wg.Add(1)
		go func(parentCtx context.Context) {
			defer wg.Done()

			mainMux := http.NewServeMux()
			mainMux.Handle("/api/", http.StripPrefix("/api", api.NewRouter()))

			server := &http.Server{
				Addr:    ":" + actualServerPort,
				Handler: mainMux,
			}

			go func() {
				<-parentCtx.Done()
				logger.Info("Start Command Goroutine(API): Shutdown signal received...")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("Start Command Goroutine(API): Graceful shutdown failed: %v", err)
				} else {
					logger.Info("Start Command Goroutine(API): Gracefully stopped.")
				}
			}()

			logger.Info("Start Command Goroutine(API): Listening on :%s", actualServerPort)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Start Command Goroutine(API): ListenAndServe error: %v", err)
				cancel()
			}
			logger.Info("Start Command Goroutine(API): Finished.")
		}(ctx)

		// --- Start MITM Proxy Goroutine ---
		wg.Add(1)
		go func(parentCtx context.Context) {
			defer wg.Done()
			logger.ProxyInfo("Start Command Goroutine(Proxy): Starting MITM proxy on port %s (session %s)...", actualProxyPort, session.ID)

			proxyErrChan := make(chan error, 1)
			go func() {
				proxyErrChan <- core.StartMitmProxy(actualProxyPort, session, caCertPath, caKeyPath)
			}()

			select {
			case err := <-proxyErrChan:
				if err != nil {
					logger.Error("Start Command Goroutine(Proxy): core.StartMitmProxy returned error: %v", err)
					cancel()
				}
			case <-parentCtx.Done():
				logger.ProxyInfo("Start Command Goroutine(Proxy): Shutdown signal received...")
			}
			logger.ProxyInfo("Start Command Goroutine(Proxy): Finished.")
		}(ctx)

		// --- Wait for termination signal ---
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

		logger.Info("Start Command: All service goroutines launched. Press Ctrl+C to exit.")

		select {
		case sig := <-sigs:
			logger.Info("Start Command: Received signal: %s. Initiating shutdown...", sig)
		case <-ctx.Done():
			logger.Info("Start Command: Context cancelled (likely due to a service error). Initiating shutdown...")
		}

		cancel()

		shutdownComplete := make(chan struct{})
		go func() {
			wg.Wait()
			close(shutdownComplete)
		}()

		select {
		case <-shutdownComplete:
			logger.Info("Start Command: All services shut down.")
		case <-time.After(10 * time.Second):
			logger.Error("Start Command: Shutdown timed out. Forcing exit.")
		}

		logger.Info("Start Command: Exited.")
	},
}

func init() {
	startCmd.Flags().StringVar(&startServerPort, "server-port", "8466", "Port for the API server (overrides config)")
	startCmd.Flags().StringVar(&startProxyPort, "proxy-port", "8465", "Port for the MITM proxy server (overrides config)")
	rootCmd.AddCommand(startCmd)
}
