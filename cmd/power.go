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
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// powerCmd represents the power command
var powerCmd = &cobra.Command{
	Use:   "power [on|off|toggle]",
	Short: "Control speaker power",
	Long: `Turn the speaker on, put it into standby, or toggle between the two.

Without an argument the current power state is shown.

Examples:
  deskknob power             # Show current power state
  deskknob power on          # Wake the speaker
  deskknob power off         # Put the speaker into standby
  deskknob power toggle      # Flip the current state`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		speaker, err := connectToSpeaker()
		if err != nil {
			log.WithError(err).Fatal("could not connect to speaker")
		}

		on, err := speaker.GetSpeakerStatus()
		if err != nil {
			log.WithError(err).Fatal("failed to get power state")
		}

		if len(args) == 0 {
			if on {
				fmt.Println("Power state: on")
			} else {
				fmt.Println("Power state: standby")
			}
			return
		}

		var target bool
		switch strings.ToLower(args[0]) {
		case "on":
			target = true
		case "off":
			target = false
		case "toggle":
			target = !on
		default:
			fmt.Printf("Error: '%s' is not a valid power command. Use on, off or toggle.\n", args[0])
			return
		}

		if target == on {
			fmt.Println("Speaker is already in the requested state")
			return
		}

		if err := speaker.SetPower(target); err != nil {
			log.WithError(err).Fatal("failed to change power state")
		}

		if target {
			fmt.Println("Speaker powered on")
		} else {
			fmt.Println("Speaker entering standby")
		}
	},
}

func init() {
	rootCmd.AddCommand(powerCmd)
}
