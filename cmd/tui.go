/*
Copyright © 2020 Gal Amiram <galamiram1@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/galamiram/deskknob/internal/poller"
	"github.com/galamiram/deskknob/internal/state"
	"github.com/galamiram/deskknob/tui"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive desk controller",
	Long: `Launch the interactive terminal interface.

The interface shows the speaker, the currently playing track and the desk
light, and stays responsive even when a device is slow: key presses are
handed to a background polling loop that talks to the devices on its own
schedule.

Keyboard shortcuts:
  q/Ctrl+C  - Quit
  +/-       - Volume up/down
  m         - Toggle mute
  space     - Play/pause
  n/b       - Next/previous track
  p         - Toggle speaker power
  w/u       - WiFi/USB source
  l         - Toggle light
  ↑/↓       - Light brightness

Examples:
  deskknob tui`,
	Run: func(cmd *cobra.Command, args []string) {
		speaker, err := connectToSpeaker()
		if err != nil {
			log.WithError(err).Fatal("could not connect to speaker")
		}

		cells := state.New()
		light := newLightController(cells.Light)
		light.Connect()
		defer light.Disconnect()

		// No connectivity check is wired: the host OS owns the network, so
		// an unreachable speaker just means failed polls, each bounded by
		// the client timeout and paced by the slow-poll interval.
		loop := poller.New(speaker, cells)
		if music := newSpotifyClient(); music.Enabled() {
			loop.SetMusicSource(music)
		}

		app := tui.NewApp(cells, light)

		// Logs go to the in-app panel (and to file when enabled); console
		// output would corrupt the alternate screen.
		tui.SetupTUILogging(app)
		if logToFile {
			if err := setupFileLoggingOnlyToFile(); err != nil {
				log.WithError(err).Warn("Failed to set up file logging")
			}
		}
		if debug {
			log.SetLevel(log.DebugLevel)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := loop.Run(ctx); err != nil && err != context.Canceled {
				log.WithError(err).Error("Polling loop stopped")
			}
		}()

		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			log.WithError(err).Error("Failed to run TUI")
			fmt.Printf("Error running TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
