package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/galamiram/deskknob/internal/kefapi"
	"github.com/galamiram/deskknob/internal/lightbus"
	"github.com/galamiram/deskknob/internal/spotify"
	"github.com/galamiram/deskknob/internal/state"
	"github.com/galamiram/deskknob/internal/version"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for desk control",
	Long: `Start a Model Context Protocol (MCP) server that allows LLMs to control
the speaker, Spotify playback and the desk light.

The MCP server provides tools for:
- Speaker power, volume, mute and input source
- Track playback control and now-playing status
- Spotify playback control
- Desk light power, brightness and color

Example usage with Cursor or other MCP-compatible AI tools:
  deskknob mcp

Environment variables:
  DESKKNOB_IP: IP address of the speaker`,
	Run: func(cmd *cobra.Command, args []string) {
		runMCPServer()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServer() {
	s := server.NewMCPServer(
		"DeskKnob",
		version.Version,
		server.WithToolCapabilities(true),
	)

	registerSpeakerTools(s)
	registerSpotifyTools(s)
	registerLightTools(s)

	// Start the server using stdio
	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("MCP Server error: %v\n", err)
		os.Exit(1)
	}
}

func getSpeaker() (*kefapi.Speaker, error) {
	return connectToSpeaker()
}

func getLight() (*lightbus.Controller, error) {
	light := newLightController(state.NewLightCell())
	if err := light.ConnectSync(lightConnectTimeout); err != nil {
		return nil, err
	}
	return light, nil
}

func getMusicClient() (*spotify.Client, error) {
	client := newSpotifyClient()
	if !client.Enabled() {
		return nil, fmt.Errorf("spotify is not configured")
	}
	return client, nil
}

func registerSpeakerTools(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("speaker_power_on", mcp.WithDescription("Wake the speaker from standby")),
		handleSpeakerPowerOn,
	)

	s.AddTool(
		mcp.NewTool("speaker_power_off", mcp.WithDescription("Put the speaker into standby")),
		handleSpeakerPowerOff,
	)

	s.AddTool(
		mcp.NewTool("speaker_power_status", mcp.WithDescription("Get the current power state of the speaker")),
		handleSpeakerPowerStatus,
	)

	s.AddTool(
		mcp.NewTool("speaker_volume_set",
			mcp.WithDescription("Set speaker volume to a specific level"),
			mcp.WithNumber("volume",
				mcp.Required(),
				mcp.Description("Volume level (0-100)"),
			),
		),
		handleSpeakerVolumeSet,
	)

	s.AddTool(
		mcp.NewTool("speaker_volume_status", mcp.WithDescription("Get the current speaker volume level")),
		handleSpeakerVolumeStatus,
	)

	s.AddTool(
		mcp.NewTool("speaker_mute_toggle", mcp.WithDescription("Toggle speaker mute state")),
		handleSpeakerMuteToggle,
	)

	s.AddTool(
		mcp.NewTool("speaker_source_set",
			mcp.WithDescription("Set the speaker input source"),
			mcp.WithString("source",
				mcp.Required(),
				mcp.Description("Source name: wifi, bluetooth, tv, optic, coaxial, analog, usb"),
			),
		),
		handleSpeakerSourceSet,
	)

	s.AddTool(
		mcp.NewTool("speaker_source_status", mcp.WithDescription("Get the current input source")),
		handleSpeakerSourceStatus,
	)

	s.AddTool(
		mcp.NewTool("speaker_track",
			mcp.WithDescription("Send a track playback command to the speaker"),
			mcp.WithString("command",
				mcp.Required(),
				mcp.Description("One of: pause, next, previous (pause toggles play/pause)"),
			),
		),
		handleSpeakerTrack,
	)

	s.AddTool(
		mcp.NewTool("speaker_now_playing", mcp.WithDescription("Get the currently playing track on the speaker")),
		handleSpeakerNowPlaying,
	)
}

func registerSpotifyTools(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("spotify_play", mcp.WithDescription("Start or resume Spotify playback")),
		handleSpotifyPlay,
	)

	s.AddTool(
		mcp.NewTool("spotify_pause", mcp.WithDescription("Pause Spotify playback")),
		handleSpotifyPause,
	)

	s.AddTool(
		mcp.NewTool("spotify_next", mcp.WithDescription("Skip to next track in Spotify")),
		handleSpotifyNext,
	)

	s.AddTool(
		mcp.NewTool("spotify_previous", mcp.WithDescription("Skip to previous track in Spotify")),
		handleSpotifyPrevious,
	)

	s.AddTool(
		mcp.NewTool("spotify_status", mcp.WithDescription("Get current Spotify playback status")),
		handleSpotifyStatus,
	)
}

func registerLightTools(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("light_on", mcp.WithDescription("Turn the desk light on")),
		handleLightOn,
	)

	s.AddTool(
		mcp.NewTool("light_off", mcp.WithDescription("Turn the desk light off")),
		handleLightOff,
	)

	s.AddTool(
		mcp.NewTool("light_brightness",
			mcp.WithDescription("Set desk light brightness"),
			mcp.WithNumber("brightness",
				mcp.Required(),
				mcp.Description("Brightness level (0-254)"),
			),
		),
		handleLightBrightness,
	)

	s.AddTool(
		mcp.NewTool("light_color_temp",
			mcp.WithDescription("Set desk light color temperature"),
			mcp.WithNumber("mired",
				mcp.Required(),
				mcp.Description("Color temperature in mired (warmer is higher)"),
			),
		),
		handleLightColorTemp,
	)

	s.AddTool(
		mcp.NewTool("light_color",
			mcp.WithDescription("Set desk light color"),
			mcp.WithNumber("hue",
				mcp.Required(),
				mcp.Description("Hue (0-360)"),
			),
			mcp.WithNumber("saturation",
				mcp.Required(),
				mcp.Description("Saturation (0-100)"),
			),
		),
		handleLightColor,
	)
}

// Speaker handlers

func handleSpeakerPowerOn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	if err := speaker.SetPower(true); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to power on: %v", err)), nil
	}

	return mcp.NewToolResultText("Speaker powered on"), nil
}

func handleSpeakerPowerOff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	if err := speaker.SetPower(false); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to power off: %v", err)), nil
	}

	return mcp.NewToolResultText("Speaker entering standby"), nil
}

func handleSpeakerPowerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	on, err := speaker.GetSpeakerStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get power state: %v", err)), nil
	}

	if on {
		return mcp.NewToolResultText("Power state: on"), nil
	}
	return mcp.NewToolResultText("Power state: standby"), nil
}

func handleSpeakerVolumeSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	volume, err := request.RequireFloat("volume")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid volume parameter: %v", err)), nil
	}

	if err := speaker.SetVolume(int(volume)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to set volume: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Volume set to %d", int(volume))), nil
}

func handleSpeakerVolumeStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	volume, err := speaker.GetVolume()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get volume: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Current volume: %d", volume)), nil
}

func handleSpeakerMuteToggle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	muted, err := speaker.GetMute()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get mute state: %v", err)), nil
	}

	if err := speaker.SetMute(!muted); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to toggle mute: %v", err)), nil
	}

	if muted {
		return mcp.NewToolResultText("Mute toggled: now unmuted"), nil
	}
	return mcp.NewToolResultText("Mute toggled: now muted"), nil
}

func handleSpeakerSourceSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid source parameter: %v", err)), nil
	}

	source = strings.ToLower(source)
	if !kefapi.IsValidSource(source) {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid source '%s'. Available: %s",
			source, strings.Join(kefapi.GetAvailableSources(), ", "))), nil
	}

	if err := speaker.SetSource(source); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to set source: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Source changed to %s", source)), nil
}

func handleSpeakerSourceStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	source, err := speaker.GetSource()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get source: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Current source: %s", source)), nil
}

func handleSpeakerTrack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	command, err := request.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid command parameter: %v", err)), nil
	}

	command = strings.ToLower(command)
	if !kefapi.IsValidTrackControl(command) {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid track command '%s'. Use pause, next or previous.", command)), nil
	}

	if err := speaker.SendTrackControl(command); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send track command: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Sent track command: %s", command)), nil
}

func handleSpeakerNowPlaying(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speaker, err := getSpeaker()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to speaker: %v", err)), nil
	}

	pd, err := speaker.GetPlayerData()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get player data: %v", err)), nil
	}

	if pd.Standby {
		return mcp.NewToolResultText("The player is idle"), nil
	}

	playState := "paused"
	if pd.Playing {
		playState = "playing"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s - %s", playState, pd.Artist, pd.Title)), nil
}

// Spotify handlers

func handleSpotifyPlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := getMusicClient()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := client.Play(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start playback: %v", err)), nil
	}

	return mcp.NewToolResultText("Playback started"), nil
}

func handleSpotifyPause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := getMusicClient()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := client.Pause(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to pause playback: %v", err)), nil
	}

	return mcp.NewToolResultText("Playback paused"), nil
}

func handleSpotifyNext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := getMusicClient()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := client.Next(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to skip track: %v", err)), nil
	}

	return mcp.NewToolResultText("Skipped to next track"), nil
}

func handleSpotifyPrevious(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := getMusicClient()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := client.Previous(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to skip track: %v", err)), nil
	}

	return mcp.NewToolResultText("Skipped to previous track"), nil
}

func handleSpotifyStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := getMusicClient()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	np, nothing, err := client.GetNowPlaying()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get playback state: %v", err)), nil
	}

	if nothing {
		return mcp.NewToolResultText("Nothing is playing"), nil
	}

	playState := "paused"
	if np.Playing {
		playState = "playing"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s - %s (%s / %s)",
		playState, np.Artist, np.Title, formatMillis(np.ProgressMS), formatMillis(np.DurationMS))), nil
}

// Light handlers

func handleLightOn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	light, err := getLight()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to light broker: %v", err)), nil
	}
	defer light.Disconnect()

	if !light.SetPower(true) {
		return mcp.NewToolResultError("Failed to publish light command"), nil
	}

	return mcp.NewToolResultText("Light turned on"), nil
}

func handleLightOff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	light, err := getLight()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to light broker: %v", err)), nil
	}
	defer light.Disconnect()

	if !light.SetPower(false) {
		return mcp.NewToolResultError("Failed to publish light command"), nil
	}

	return mcp.NewToolResultText("Light turned off"), nil
}

func handleLightBrightness(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	brightness, err := request.RequireFloat("brightness")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid brightness parameter: %v", err)), nil
	}

	light, err := getLight()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to light broker: %v", err)), nil
	}
	defer light.Disconnect()

	if !light.SetBrightness(int(brightness)) {
		return mcp.NewToolResultError("Failed to publish light command"), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Brightness set to %d", int(brightness))), nil
}

func handleLightColorTemp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mired, err := request.RequireFloat("mired")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid mired parameter: %v", err)), nil
	}

	light, err := getLight()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to light broker: %v", err)), nil
	}
	defer light.Disconnect()

	if !light.SetColorTemp(int(mired)) {
		return mcp.NewToolResultError("Failed to publish light command"), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Color temperature set to %d mired", int(mired))), nil
}

func handleLightColor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hue, err := request.RequireFloat("hue")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid hue parameter: %v", err)), nil
	}
	saturation, err := request.RequireFloat("saturation")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid saturation parameter: %v", err)), nil
	}

	light, err := getLight()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to light broker: %v", err)), nil
	}
	defer light.Disconnect()

	if !light.SetColor(int(hue), int(saturation)) {
		return mcp.NewToolResultError("Failed to publish light command"), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Color set to hue %d, saturation %d", int(hue), int(saturation))), nil
}
