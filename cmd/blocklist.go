package cmd

import (
	"fmt"

	"privacyguard/config"
	"privacyguard/core"
	"privacyguard/database"
	"privacyguard/logger"

	"github.com/spf13/cobra"
)

var blocklistCmd = &cobra.Command{
	Use:   "blocklist",
	Short: "Inspect the configured tracker blocklist",
}

var blocklistCheckCmd = &cobra.Command{
	Use:   "check <host>",
	Short: "Checks whether a host would be blocked by the configured blocklist",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		matcher, err := core.LoadBlocklist(config.AppConfig.Blocklist.Sources, config.AppConfig.Blocklist.JSONEntriesPath)
		if err != nil {
			logger.Error("Failed to load blocklist: %v", err)
			fmt.Printf("Error loading blocklist: %v\n", err)
			return
		}
		host := core.NormalizeHost(args[0])
		blocked, entry := matcher.Match(host)
		if blocked {
			fmt.Printf("%s: BLOCKED (matched entry %q)\n", host, entry)
		} else {
			fmt.Printf("%s: allowed\n", host)
		}
	},
}

var blocklistStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows blocklist size and recorded decision counts",
	Run: func(cmd *cobra.Command, args []string) {
		matcher, err := core.LoadBlocklist(config.AppConfig.Blocklist.Sources, config.AppConfig.Blocklist.JSONEntriesPath)
		if err != nil {
			logger.Error("Failed to load blocklist: %v", err)
			fmt.Printf("Error loading blocklist: %v\n", err)
			return
		}
		fmt.Printf("Blocklist entries: %d\n", matcher.Len())

		counts, err := database.CountDecisionsByAction()
		if err != nil {
			logger.Error("Failed to count recorded decisions: %v", err)
			return
		}
		for action, count := range counts {
			fmt.Printf("Decisions recorded (%s): %d\n", action, count)
		}
	},
}

func init() {
	blocklistCmd.AddCommand(blocklistCheckCmd)
	blocklistCmd.AddCommand(blocklistStatsCmd)
	rootCmd.AddCommand(blocklistCmd)
}
