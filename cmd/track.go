package cmd

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/galamiram/deskknob/internal/kefapi"
)

// trackCmd represents the track command
var trackCmd = &cobra.Command{
	Use:   "track [pause|next|previous]",
	Short: "Control track playback",
	Long: `Send a playback command to the speaker.

The pause command toggles between playing and paused.

Examples:
  deskknob track pause       # Toggle play/pause
  deskknob track next        # Skip to next track
  deskknob track previous    # Skip to previous track`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		control := strings.ToLower(args[0])
		if control == "prev" {
			control = "previous"
		}
		if !kefapi.IsValidTrackControl(control) {
			fmt.Printf("Error: '%s' is not a valid track command. Use pause, next or previous.\n", args[0])
			return
		}

		speaker, err := connectToSpeaker()
		if err != nil {
			log.WithError(err).Fatal("could not connect to speaker")
		}

		if err := speaker.SendTrackControl(control); err != nil {
			log.WithError(err).Fatal("failed to send track command")
		}
		fmt.Printf("Sent track command: %s\n", control)
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
