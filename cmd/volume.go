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
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const volumeNudge = 2

// volumeCmd represents the volume command
var volumeCmd = &cobra.Command{
	Use:   "volume [LEVEL|up|down]",
	Short: "Set or get volume level",
	Long: `Set the volume to a specific level or adjust it relatively.

Volume levels are in the range 0 to 100.

Examples:
  deskknob volume            # Show current volume
  deskknob volume 40         # Set volume to 40
  deskknob volume up         # Increase volume
  deskknob volume down       # Decrease volume`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		speaker, err := connectToSpeaker()
		if err != nil {
			log.WithError(err).Fatal("could not connect to speaker")
		}

		// No arguments - show current volume
		if len(args) == 0 {
			current, err := speaker.GetVolume()
			if err != nil {
				log.WithError(err).Fatal("failed to get current volume")
			}
			fmt.Printf("Current volume: %d\n", current)
			return
		}

		arg := strings.ToLower(args[0])
		switch arg {
		case "up", "down":
			current, err := speaker.GetVolume()
			if err != nil {
				log.WithError(err).Fatal("failed to get current volume")
			}
			next := current + volumeNudge
			if arg == "down" {
				next = current - volumeNudge
			}
			if err := speaker.SetVolume(next); err != nil {
				log.WithError(err).Fatal("failed to adjust volume")
			}
			fmt.Printf("Volume: %d -> %d\n", current, next)

		default:
			volume, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Printf("Error: '%s' is not a valid volume level.\n\n", args[0])
				fmt.Println("Usage:")
				fmt.Println("  deskknob volume            # Show current volume")
				fmt.Println("  deskknob volume 40         # Set volume to 40")
				fmt.Println("  deskknob volume up         # Increase volume")
				fmt.Println("  deskknob volume down       # Decrease volume")
				fmt.Println("\nVolume range is 0 to 100")
				return
			}

			// Warn about potentially dangerous volume levels
			if volume > 85 {
				fmt.Printf("Warning: Volume level %d is quite high. Continue? (y/N): ", volume)
				var response string
				fmt.Scanln(&response)
				if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
					fmt.Println("Volume change cancelled")
					return
				}
			}

			if err := speaker.SetVolume(volume); err != nil {
				log.WithError(err).Fatal("failed to set volume")
			}
			fmt.Printf("Volume set to: %d\n", volume)
		}
	},
}

func init() {
	rootCmd.AddCommand(volumeCmd)
}
