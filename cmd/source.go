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

	"github.com/galamiram/deskknob/internal/kefapi"
)

// sourceCmd represents the source command
var sourceCmd = &cobra.Command{
	Use:   "source [SOURCE_NAME|list]",
	Short: "Set or get input source",
	Long: `Set the input source or show the current one.

Available sources: wifi, bluetooth, tv, optic, coaxial, analog, usb

Switching the source also wakes the speaker from standby.

Examples:
  deskknob source            # Show current source
  deskknob source wifi       # Set source to wifi
  deskknob source USB        # Set source to usb (case-insensitive)
  deskknob source list       # List all available sources`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		speaker, err := connectToSpeaker()
		if err != nil {
			log.WithError(err).Fatal("could not connect to speaker")
		}

		// No arguments - show current source
		if len(args) == 0 {
			current, err := speaker.GetSource()
			if err != nil {
				log.WithError(err).Fatal("failed to get current source")
			}
			fmt.Printf("Current source: %s\n", current)
			return
		}

		arg := strings.ToLower(args[0])
		if arg == "list" {
			fmt.Println("Available sources:")
			for i, source := range kefapi.GetAvailableSources() {
				fmt.Printf("  %d. %s\n", i+1, source)
			}
			return
		}

		if !kefapi.IsValidSource(arg) {
			fmt.Printf("Error: '%s' is not a valid source name.\n\n", arg)
			fmt.Println("Available sources:")
			for i, source := range kefapi.GetAvailableSources() {
				fmt.Printf("  %d. %s\n", i+1, source)
			}
			return
		}

		if err := speaker.SetSource(arg); err != nil {
			log.WithError(err).Fatal("failed to set source")
		}
		fmt.Printf("Source changed to: %s\n", arg)
	},
}

func init() {
	rootCmd.AddCommand(sourceCmd)
}
