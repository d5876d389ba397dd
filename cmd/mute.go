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
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// muteCmd represents the mute command
var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Toggle mute on and off",
	Long: `Toggle the mute state of the speaker.

This command reads the current mute state and switches it to the
opposite state (muted->unmuted or unmuted->muted).

Examples:
  deskknob mute             # Toggle mute state`,
	Run: func(cmd *cobra.Command, args []string) {
		speaker, err := connectToSpeaker()
		if err != nil {
			log.WithError(err).Fatal("could not connect to speaker")
		}

		current, err := speaker.GetMute()
		if err != nil {
			log.WithError(err).Fatal("failed to get current mute state")
		}

		if err := speaker.SetMute(!current); err != nil {
			log.WithError(err).Fatal("failed to toggle mute")
		}

		if current {
			fmt.Println("Mute toggled: On -> Off")
		} else {
			fmt.Println("Mute toggled: Off -> On")
		}
	},
}

func init() {
	rootCmd.AddCommand(muteCmd)
}
