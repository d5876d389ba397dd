package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show full speaker status",
	Long: `Query the speaker and print power state, input source, volume,
mute state and the currently playing track.

Examples:
  deskknob status`,
	Run: func(cmd *cobra.Command, args []string) {
		speaker, err := connectToSpeaker()
		if err != nil {
			log.WithError(err).Fatal("could not connect to speaker")
		}

		on, err := speaker.GetSpeakerStatus()
		if err != nil {
			log.WithError(err).Fatal("failed to get power state")
		}
		if !on {
			fmt.Println("Power:  standby")
			return
		}
		fmt.Println("Power:  on")

		if source, err := speaker.GetSource(); err == nil {
			fmt.Printf("Source: %s\n", source)
		} else {
			log.WithError(err).Debug("Failed to get source")
		}

		if volume, err := speaker.GetVolume(); err == nil {
			fmt.Printf("Volume: %d\n", volume)
		} else {
			log.WithError(err).Debug("Failed to get volume")
		}

		if muted, err := speaker.GetMute(); err == nil && muted {
			fmt.Println("Muted:  yes")
		}

		pd, err := speaker.GetPlayerData()
		if err != nil {
			log.WithError(err).Debug("Failed to get player data")
			return
		}
		if pd.Standby {
			fmt.Println("Player: idle")
			return
		}
		playState := "paused"
		if pd.Playing {
			playState = "playing"
		}
		fmt.Printf("Player: %s\n", playState)
		fmt.Printf("Track:  %s - %s\n", pd.Artist, pd.Title)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
