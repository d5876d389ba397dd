package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/galamiram/deskknob/internal/spotify"
)

// spotifyCmd represents the spotify command
var spotifyCmd = &cobra.Command{
	Use:   "spotify",
	Short: "Control Spotify playback",
	Long: `Control Spotify playback through the Web API.

Requires spotify.client_id, spotify.client_secret and spotify.refresh_token
in the config file. The refresh token is obtained once through the standard
authorization code flow; from then on access tokens are refreshed
automatically and cached on disk.`,
}

var spotifyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current Spotify playback status",
	Long:  `Display the currently playing track, artist and progress.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireSpotifyClient()

		np, nothing, err := client.GetNowPlaying()
		if err != nil {
			logrus.WithError(err).Fatal("Failed to get playback state")
		}
		if nothing {
			logrus.Info("Nothing is playing")
			return
		}

		logrus.WithFields(logrus.Fields{
			"track":    np.Title,
			"artist":   np.Artist,
			"playing":  np.Playing,
			"progress": formatMillis(np.ProgressMS),
			"duration": formatMillis(np.DurationMS),
		}).Info("Current Spotify Status")
	},
}

var spotifyPlayCmd = &cobra.Command{
	Use:   "play",
	Short: "Start or resume playback",
	Run: func(cmd *cobra.Command, args []string) {
		client := requireSpotifyClient()
		if err := client.Play(); err != nil {
			logrus.WithError(err).Fatal("Failed to start playback")
		}
		logrus.Info("Playback started")
	},
}

var spotifyPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Run: func(cmd *cobra.Command, args []string) {
		client := requireSpotifyClient()
		if err := client.Pause(); err != nil {
			logrus.WithError(err).Fatal("Failed to pause playback")
		}
		logrus.Info("Playback paused")
	},
}

var spotifyNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next track",
	Run: func(cmd *cobra.Command, args []string) {
		client := requireSpotifyClient()
		if err := client.Next(); err != nil {
			logrus.WithError(err).Fatal("Failed to skip track")
		}
		logrus.Info("Skipped to next track")
	},
}

var spotifyPrevCmd = &cobra.Command{
	Use:     "previous",
	Aliases: []string{"prev"},
	Short:   "Skip to the previous track",
	Run: func(cmd *cobra.Command, args []string) {
		client := requireSpotifyClient()
		if err := client.Previous(); err != nil {
			logrus.WithError(err).Fatal("Failed to skip track")
		}
		logrus.Info("Skipped to previous track")
	},
}

func requireSpotifyClient() *spotify.Client {
	client := newSpotifyClient()
	if !client.Enabled() {
		logrus.Fatal("Spotify is not configured. Set spotify.client_id, spotify.client_secret and spotify.refresh_token in the config file.")
	}
	return client
}

func formatMillis(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func init() {
	rootCmd.AddCommand(spotifyCmd)
	spotifyCmd.AddCommand(spotifyStatusCmd)
	spotifyCmd.AddCommand(spotifyPlayCmd)
	spotifyCmd.AddCommand(spotifyPauseCmd)
	spotifyCmd.AddCommand(spotifyNextCmd)
	spotifyCmd.AddCommand(spotifyPrevCmd)
}
