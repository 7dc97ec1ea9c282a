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

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manages the cookie policy and per-origin overrides",
}

var policyGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Prints the current global cookie policy",
	Run: func(cmd *cobra.Command, args []string) {
		fallback, err := models.ParseCookiePolicy(config.AppConfig.Cookies.Policy)
		if err != nil {
			logger.Error("Configured fallback cookie policy is invalid: %v", err)
			return
		}
		policy, err := database.GetCookiePolicySetting(fallback)
		if err != nil {
			logger.Error("Failed to read cookie policy: %v", err)
			return
		}
		fmt.Println(policy)
	},
}

var policySetCmd = &cobra.Command{
	Use:   "set <block_all|block_third_party|allow_all>",
	Short: "Sets the global cookie policy",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		policy, err := models.ParseCookiePolicy(args[0])
		if err != nil {
			fmt.Printf("Invalid policy: %v\n", err)
			return
		}
		if err := database.SetCookiePolicySetting(policy); err != nil {
			logger.Error("Failed to persist cookie policy: %v", err)
			return
		}
		fmt.Printf("Cookie policy set to %s\n", policy)
	},
}

var policyOverrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manages per-origin cookie policy overrides",
}

var policyOverrideListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists all per-origin overrides",
	Run: func(cmd *cobra.Command, args []string) {
		overrides, err := database.ListOverrides()
		if err != nil {
			logger.Error("Failed to list overrides: %v", err)
			return
		}
		if len(overrides) == 0 {
			fmt.Println("No overrides configured.")
			return
		}
		for _, o := range overrides {
			fmt.Printf("%s\t%s\n", o.Origin, o.Policy)
		}
	},
}

var policyOverrideAddCmd = &cobra.Command{
	Use:   "add <origin> <policy>",
	Short: "Adds or replaces a per-origin cookie policy override",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		origin := core.NormalizeOrigin(args[0])
		if origin == "" {
			fmt.Printf("Invalid origin %q: expected scheme://host[:port] with an http or https scheme\n", args[0])
			return
		}
		policy, err := models.ParseCookiePolicy(args[1])
		if err != nil {
			fmt.Printf("Invalid policy: %v\n", err)
			return
		}
		if err := database.SaveOverride(origin, policy); err != nil {
			logger.Error("Failed to save override: %v", err)
			return
		}
		fmt.Printf("Override saved: %s -> %s\n", origin, policy)
	},
}

var policyOverrideRemoveCmd = &cobra.Command{
	Use:   "remove <origin>",
	Short: "Removes a per-origin cookie policy override",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		origin := core.NormalizeOrigin(args[0])
		if origin == "" {
			fmt.Printf("Invalid origin %q\n", args[0])
			return
		}
		if err := database.DeleteOverride(origin); err != nil {
			logger.Error("Failed to remove override: %v", err)
			return
		}
		fmt.Printf("Override removed: %s\n", origin)
	},
}

func init() {
	policyOverrideCmd.AddCommand(policyOverrideListCmd)
	policyOverrideCmd.AddCommand(policyOverrideAddCmd)
	policyOverrideCmd.AddCommand(policyOverrideRemoveCmd)

	policyCmd.AddCommand(policyGetCmd)
	policyCmd.AddCommand(policySetCmd)
	policyCmd.AddCommand(policyOverrideCmd)
	rootCmd.AddCommand(policyCmd)
}
