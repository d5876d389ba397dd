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
	"os"
	"os/signal"
	"syscall"

	"github.com/galamiram/deskknob/simulator"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var simPort string

// simulatorCmd represents the simulator command
var simulatorCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Start a speaker simulator for testing",
	Long: `Start a simulated speaker that answers the same HTTP API as a real device.

This is useful for testing the TUI and CLI commands without real hardware.
The simulator listens on port 80 by default and maintains state for:
- Power (on/standby)
- Volume (0-100)
- Source (wifi, usb, bluetooth, optical, aux)
- Mute (on/off)
- Player state and track metadata

Examples:
  deskknob simulator                # Start simulator on port 80
  deskknob simulator --port 18080   # Start on custom port

Then in another terminal:
  DESKKNOB_IP=127.0.0.1 DESKKNOB_PORT=18080 deskknob tui
  DESKKNOB_IP=127.0.0.1 DESKKNOB_PORT=18080 deskknob volume up`,
	Run: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetLevel(log.DebugLevel)
		}

		sim := simulator.NewKEFSimulator()
		if err := sim.Start(simPort); err != nil {
			log.WithError(err).Fatal("Failed to start simulator")
		}

		fmt.Println()
		fmt.Println("Speaker simulator is running.")
		fmt.Println()
		fmt.Println("To connect the TUI:")
		fmt.Printf("   DESKKNOB_IP=127.0.0.1 DESKKNOB_PORT=%s %s tui\n", simPort, os.Args[0])
		fmt.Println()
		fmt.Println("To test CLI commands:")
		fmt.Printf("   DESKKNOB_IP=127.0.0.1 DESKKNOB_PORT=%s %s power on\n", simPort, os.Args[0])
		fmt.Printf("   DESKKNOB_IP=127.0.0.1 DESKKNOB_PORT=%s %s volume up\n", simPort, os.Args[0])
		fmt.Println()
		fmt.Println("Press Ctrl+C to stop the simulator")
		fmt.Println()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		<-sigChan

		log.Info("Shutting down simulator...")
		if err := sim.Stop(); err != nil {
			log.WithError(err).Error("Error stopping simulator")
		}
	},
}

func init() {
	rootCmd.AddCommand(simulatorCmd)
	simulatorCmd.Flags().StringVar(&simPort, "port", "80", "Port to listen on")
}
