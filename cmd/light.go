package cmd

import (
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/galamiram/deskknob/internal/lightbus"
	"github.com/galamiram/deskknob/internal/state"
)

const lightConnectTimeout = 10 * time.Second

// lightCmd represents the light command
var lightCmd = &cobra.Command{
	Use:   "light",
	Short: "Control the desk light",
	Long: `Control a zigbee2mqtt desk light over MQTT.

Requires light.broker in the config file. The topic defaults to
zigbee2mqtt/desk_light and can be changed with light.topic.

Examples:
  deskknob light on
  deskknob light off
  deskknob light brightness 200
  deskknob light temp 370
  deskknob light color 120 80`,
}

var lightOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn the light on",
	Run: func(cmd *cobra.Command, args []string) {
		withLight(func(l *lightbus.Controller) bool { return l.SetPower(true) })
		fmt.Println("Light turned on")
	},
}

var lightOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn the light off",
	Run: func(cmd *cobra.Command, args []string) {
		withLight(func(l *lightbus.Controller) bool { return l.SetPower(false) })
		fmt.Println("Light turned off")
	},
}

var lightBrightnessCmd = &cobra.Command{
	Use:   "brightness LEVEL",
	Short: "Set light brightness (0-254)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Error: '%s' is not a valid brightness level.\n", args[0])
			return
		}
		withLight(func(l *lightbus.Controller) bool { return l.SetBrightness(level) })
		fmt.Printf("Brightness set to %d\n", level)
	},
}

var lightTempCmd = &cobra.Command{
	Use:   "temp MIRED",
	Short: "Set light color temperature in mired",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mired, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Error: '%s' is not a valid color temperature.\n", args[0])
			return
		}
		withLight(func(l *lightbus.Controller) bool { return l.SetColorTemp(mired) })
		fmt.Printf("Color temperature set to %d mired\n", mired)
	},
}

var lightColorCmd = &cobra.Command{
	Use:   "color HUE SATURATION",
	Short: "Set light color (hue 0-360, saturation 0-100)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		hue, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Error: '%s' is not a valid hue.\n", args[0])
			return
		}
		sat, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Printf("Error: '%s' is not a valid saturation.\n", args[1])
			return
		}
		withLight(func(l *lightbus.Controller) bool { return l.SetColor(hue, sat) })
		fmt.Printf("Color set to hue %d, saturation %d\n", hue, sat)
	},
}

// withLight connects, runs a single command and disconnects.
func withLight(send func(*lightbus.Controller) bool) {
	light := newLightController(state.NewLightCell())
	if err := light.ConnectSync(lightConnectTimeout); err != nil {
		log.WithError(err).Fatal("could not connect to light broker")
	}
	defer light.Disconnect()

	if !send(light) {
		log.Fatal("failed to publish light command")
	}
}

func init() {
	rootCmd.AddCommand(lightCmd)
	lightCmd.AddCommand(lightOnCmd)
	lightCmd.AddCommand(lightOffCmd)
	lightCmd.AddCommand(lightBrightnessCmd)
	lightCmd.AddCommand(lightTempCmd)
	lightCmd.AddCommand(lightColorCmd)
}
