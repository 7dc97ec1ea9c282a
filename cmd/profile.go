package cmd

import (
	"encoding/json"
	"fmt"

	"privacyguard/config"
	"privacyguard/core"
	"privacyguard/logger"

	"github.com/spf13/cobra"
)

var profileSeedFlag int64

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Works with fingerprint profiles",
}

var profileGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generates a fingerprint profile and prints it as JSON",
	Long: `Generates a fingerprint profile from the configured pools and prints it.
With --seed the draw is reproducible; without it a random profile is produced
each run, the same way a new browsing session would get one.`,
	Run: func(cmd *cobra.Command, args []string) {
		pools := core.DefaultPools()
		if config.AppConfig.Fingerprint.PoolsPath != "" {
			loaded, err := core.LoadPools(config.AppConfig.Fingerprint.PoolsPath)
			if err != nil {
				logger.Error("Failed to load fingerprint pools: %v", err)
				fmt.Printf("Error loading pools: %v\n", err)
				return
			}
			pools = loaded
		}

		seed := int64(0)
		if cmd.Flags().Changed("seed") {
			seed = profileSeedFlag
		}
		profile, err := core.GenerateProfile(pools, core.ProfileRand(seed))
		if err != nil {
			fmt.Printf("Error generating profile: %v\n", err)
			return
		}

		out, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			logger.Error("Failed to marshal profile: %v", err)
			return
		}
		fmt.Println(string(out))
	},
}

func init() {
	profileGenerateCmd.Flags().Int64Var(&profileSeedFlag, "seed", 0, "seed for a reproducible profile (omit for a random one)")
	profileCmd.AddCommand(profileGenerateCmd)
	rootCmd.AddCommand(profileCmd)
}
