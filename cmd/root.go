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
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/galamiram/deskknob/internal/kefapi"
	"github.com/galamiram/deskknob/internal/lightbus"
	"github.com/galamiram/deskknob/internal/spotify"
	"github.com/galamiram/deskknob/internal/state"
)

var cfgFile string
var debug bool
var logToFile bool

const speakerTimeout = 5 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deskknob",
	Short: "Desk controller for KEF speakers, Spotify and smart lights",
	Run: func(cmd *cobra.Command, args []string) {
		if logToFile {
			if err := setupFileLogging(); err != nil {
				log.WithError(err).Warn("Failed to set up file logging, continuing with console only")
			}
		}
		if debug {
			log.SetLevel(log.DebugLevel)
		}

		speaker, err := connectToSpeaker()
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to speaker")
		}

		on, err := speaker.GetSpeakerStatus()
		if err != nil {
			log.WithError(err).Fatal("Speaker is not responding")
		}
		powerState := "standby"
		if on {
			powerState = "powered on"
		}
		log.WithFields(log.Fields{
			"ip":    viper.GetString("ip"),
			"state": powerState,
		}).Info("Successfully connected to speaker")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.deskknob.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-to-file", false, "enable logging to file")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		log.WithField("configFile", cfgFile).Debug("Using config file from flag")
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			log.WithError(err).Debug("Failed to get home directory")
			fmt.Println(err)
			os.Exit(1)
		}

		viper.SetConfigType("yaml")
		viper.AddConfigPath(home)
		viper.SetConfigName(".deskknob")
	}

	// Bind environment variables
	viper.SetEnvPrefix("DESKKNOB")
	viper.AutomaticEnv()

	viper.SetDefault("port", "80")
	viper.SetDefault("light.port", 1883)
	viper.SetDefault("light.topic", "zigbee2mqtt/desk_light")

	// Read config file (ignore if it doesn't exist)
	if err := viper.ReadInConfig(); err == nil {
		log.WithField("configFile", viper.ConfigFileUsed()).Debug("Successfully loaded config file")
	} else {
		log.WithError(err).Debug("No config file found or failed to read (using defaults)")
	}
}

// connectToSpeaker builds a speaker client from the configured address.
func connectToSpeaker() (*kefapi.Speaker, error) {
	ip := viper.GetString("ip")
	if ip == "" {
		return nil, fmt.Errorf("no speaker IP configured: set 'ip' in the config file or DESKKNOB_IP")
	}
	port := viper.GetString("port")

	log.WithFields(log.Fields{
		"ip":   ip,
		"port": port,
	}).Debug("Connecting to speaker")

	return kefapi.New(ip, port, speakerTimeout)
}

// newLightController builds the MQTT light controller. Returns a disabled
// controller when no broker is configured.
func newLightController(light *state.LightCell) *lightbus.Controller {
	return lightbus.New(
		viper.GetString("light.broker"),
		viper.GetInt("light.port"),
		viper.GetString("light.topic"),
		light,
	)
}

// newSpotifyClient builds the music service client from configured
// credentials. The client reports itself disabled when they are missing.
func newSpotifyClient() *spotify.Client {
	return spotify.NewClient(
		viper.GetString("spotify.client_id"),
		viper.GetString("spotify.client_secret"),
		viper.GetString("spotify.refresh_token"),
		speakerTimeout,
	)
}

// setupFileLogging configures file logging in addition to console logging
func setupFileLogging() error {
	return setupFileLoggingWithConsole(true)
}

// setupFileLoggingOnlyToFile configures file logging without console output
func setupFileLoggingOnlyToFile() error {
	return setupFileLoggingWithConsole(false)
}

// setupFileLoggingWithConsole configures file logging with optional console output
func setupFileLoggingWithConsole(includeConsole bool) error {
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %v", err)
	}

	logDir := filepath.Join(home, ".deskknob_logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}

	logFile := filepath.Join(logDir, "deskknob.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	if includeConsole {
		log.SetOutput(io.MultiWriter(os.Stderr, file))
	} else {
		log.SetOutput(file)
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		ForceColors:     false,
	})

	// Capture everything when logging to file
	log.SetLevel(log.DebugLevel)

	log.WithField("logFile", logFile).Info("File logging enabled")
	return nil
}
