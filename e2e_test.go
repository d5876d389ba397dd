package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/galamiram/deskknob/simulator"
)

const simulatorPort = "18098"

// TestE2EWithSimulator runs end-to-end tests using the built-in simulator
func TestE2EWithSimulator(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	sim := simulator.NewKEFSimulator()
	if err := sim.Start(simulatorPort); err != nil {
		t.Fatalf("Failed to start simulator: %v", err)
	}
	defer func() {
		if err := sim.Stop(); err != nil {
			t.Logf("Warning: Failed to stop simulator: %v", err)
		}
	}()

	// Wait for the listener to come up
	time.Sleep(200 * time.Millisecond)

	t.Run("PowerControl", func(t *testing.T) {
		testPowerControl(t, sim)
	})

	t.Run("VolumeControl", func(t *testing.T) {
		testVolumeControl(t, sim)
	})

	t.Run("SourceControl", func(t *testing.T) {
		testSourceControl(t, sim)
	})

	t.Run("MuteControl", func(t *testing.T) {
		testMuteControl(t, sim)
	})

	t.Run("TrackControl", func(t *testing.T) {
		testTrackControl(t, sim)
	})
}

func testPowerControl(t *testing.T, sim *simulator.KEFSimulator) {
	output, err := runDeskknobCommand("power", "on")
	if err != nil {
		t.Fatalf("Power on failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "powered on") {
		t.Errorf("Expected power on output, got: %s", output)
	}
	if !sim.GetState().Power {
		t.Error("Simulator still in standby after power on")
	}

	output, err = runDeskknobCommand("power", "off")
	if err != nil {
		t.Fatalf("Power off failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "standby") {
		t.Errorf("Expected standby output, got: %s", output)
	}
	if sim.GetState().Power {
		t.Error("Simulator still powered after standby command")
	}
}

func testVolumeControl(t *testing.T, sim *simulator.KEFSimulator) {
	output, err := runDeskknobCommand("volume", "40")
	if err != nil {
		t.Fatalf("Volume set failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "Volume set to: 40") {
		t.Errorf("Expected volume set output, got: %s", output)
	}
	if got := sim.GetState().Volume; got != 40 {
		t.Errorf("Simulator volume = %d, want 40", got)
	}

	output, err = runDeskknobCommand("volume", "up")
	if err != nil {
		t.Fatalf("Volume up failed: %v, output: %s", err, output)
	}
	if got := sim.GetState().Volume; got != 42 {
		t.Errorf("Simulator volume after up = %d, want 42", got)
	}

	output, err = runDeskknobCommand("volume")
	if err != nil {
		t.Fatalf("Volume query failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "Current volume: 42") {
		t.Errorf("Expected current volume output, got: %s", output)
	}
}

func testSourceControl(t *testing.T, sim *simulator.KEFSimulator) {
	output, err := runDeskknobCommand("source", "usb")
	if err != nil {
		t.Fatalf("Source set failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "Source changed to: usb") {
		t.Errorf("Expected source change output, got: %s", output)
	}

	state := sim.GetState()
	if state.Source != "usb" {
		t.Errorf("Simulator source = %s, want usb", state.Source)
	}
	// Switching source wakes the speaker
	if !state.Power {
		t.Error("Simulator should be powered after a source switch")
	}

	output, err = runDeskknobCommand("source")
	if err != nil {
		t.Fatalf("Source query failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "Current source: usb") {
		t.Errorf("Expected current source output, got: %s", output)
	}
}

func testMuteControl(t *testing.T, sim *simulator.KEFSimulator) {
	output, err := runDeskknobCommand("mute")
	if err != nil {
		t.Fatalf("Mute failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "Mute toggled: Off -> On") {
		t.Errorf("Expected mute toggle output, got: %s", output)
	}
	if !sim.GetState().Mute {
		t.Error("Simulator not muted after mute command")
	}

	output, err = runDeskknobCommand("mute")
	if err != nil {
		t.Fatalf("Second mute failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "Mute toggled: On -> Off") {
		t.Errorf("Expected unmute toggle output, got: %s", output)
	}
	if sim.GetState().Mute {
		t.Error("Simulator still muted after unmute command")
	}
}

func testTrackControl(t *testing.T, sim *simulator.KEFSimulator) {
	state := sim.GetState()
	state.PlayState = "playing"
	sim.SetState(state)

	output, err := runDeskknobCommand("track", "pause")
	if err != nil {
		t.Fatalf("Track pause failed: %v, output: %s", err, output)
	}
	if !strings.Contains(output, "Sent track command: pause") {
		t.Errorf("Expected track command output, got: %s", output)
	}
	if got := sim.GetState().PlayState; got != "pause" {
		t.Errorf("Simulator play state = %s, want pause", got)
	}

	// The control endpoint rejects commands while stopped.
	state = sim.GetState()
	state.PlayState = "stopped"
	sim.SetState(state)

	if _, err := runDeskknobCommand("track", "next"); err == nil {
		t.Error("Expected track command to fail while player is stopped")
	}
}

// runDeskknobCommand executes a deskknob command against the simulator
func runDeskknobCommand(args ...string) (string, error) {
	binaryPath := "./deskknob"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		if buildErr := buildCmd.Run(); buildErr != nil {
			return "", fmt.Errorf("failed to build deskknob binary: %v", buildErr)
		}
	}

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"DESKKNOB_IP=127.0.0.1",
		fmt.Sprintf("DESKKNOB_PORT=%s", simulatorPort),
	)

	output, err := cmd.CombinedOutput()
	return string(output), err
}
