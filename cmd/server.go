package cmd

import (
	"net/http"

	"privacyguard/api"
	"privacyguard/logger"

	"github.com/spf13/cobra"
)

var standaloneServerPort string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the management API server (can be run standalone or as part of 'start')",
	Run: func(cmd *cobra.Command, args []string) {
		portToUse := standaloneServerPort
		if portToUse == "" {
			portToUse = "8466"
		}

		apiRouter := api.NewRouter()
		if apiRouter == nil {
			logger.Fatal("Server Command: api.NewRouter() returned nil!")
			return
		}

		mainMux := http.NewServeMux()
		mainMux.Handle("/api/", http.StripPrefix("/api", apiRouter))

		logger.Info("Management API listening on :%s under /api/ prefix...", portToUse)
		if err := http.ListenAndServe(":"+portToUse, mainMux); err != nil {
			logger.Fatal("Could not start server: %v", err)
		}
	},
}

func init() {
	serverCmd.Flags().StringVarP(&standaloneServerPort, "port", "p", "8466", "Port for the API server to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
