package cmd

import (
	"fmt"

	"github.com/galamiram/deskknob/internal/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the current version of DeskKnob.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("DeskKnob version: %s\n", version.Version)
		fmt.Printf("Desk controller for KEF speakers, Spotify and smart lights\n")
		fmt.Printf("https://github.com/galamiram/deskknob\n")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
