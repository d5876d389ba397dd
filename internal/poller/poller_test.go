package poller

import (
	"errors"
	"testing"
	"time"

	"github.com/galamiram/deskknob/internal/kefapi"
	"github.com/galamiram/deskknob/internal/spotify"
	"github.com/galamiram/deskknob/internal/state"
)

type fakeSpeaker struct {
	volume         int
	getVolumeCalls int
	getVolumeErr   error
	setVolumeCalls []int
	setVolumeErr   error

	playerData kefapi.PlayerData
	playerErr  error

	status    bool
	statusErr error

	source      string
	sourceCalls []string

	powerCalls []bool
	trackCmds  []string
	muteCalls  []bool

	art      []byte
	artErr   error
	artCalls int
}

func (f *fakeSpeaker) GetVolume() (int, error) {
	f.getVolumeCalls++
	return f.volume, f.getVolumeErr
}

func (f *fakeSpeaker) SetVolume(v int) error {
	f.setVolumeCalls = append(f.setVolumeCalls, v)
	if f.setVolumeErr != nil {
		return f.setVolumeErr
	}
	f.volume = v
	return nil
}

func (f *fakeSpeaker) GetPlayerData() (kefapi.PlayerData, error) {
	return f.playerData, f.playerErr
}

func (f *fakeSpeaker) GetSpeakerStatus() (bool, error) {
	return f.status, f.statusErr
}

func (f *fakeSpeaker) GetSource() (string, error) {
	return f.source, nil
}

func (f *fakeSpeaker) SetSource(src string) error {
	f.sourceCalls = append(f.sourceCalls, src)
	f.source = src
	return nil
}

func (f *fakeSpeaker) SetPower(on bool) error {
	f.powerCalls = append(f.powerCalls, on)
	f.status = on
	return nil
}

func (f *fakeSpeaker) SendTrackControl(cmd string) error {
	f.trackCmds = append(f.trackCmds, cmd)
	return nil
}

func (f *fakeSpeaker) SetMute(m bool) error {
	f.muteCalls = append(f.muteCalls, m)
	return nil
}

func (f *fakeSpeaker) FetchArt(string) ([]byte, error) {
	f.artCalls++
	return f.art, f.artErr
}

func newTestLoop() (*Loop, *fakeSpeaker, *state.Cells) {
	spk := &fakeSpeaker{status: true, source: "wifi"}
	cells := state.New()
	return New(spk, cells), spk, cells
}

func TestFirstPollPopulatesCells(t *testing.T) {
	l, spk, cells := newTestLoop()
	spk.volume = 42
	spk.playerData = kefapi.PlayerData{Title: "Song", Artist: "Band", Playing: true}

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.step(t0)

	if got := cells.Volume.Confirmed(); got != 42 {
		t.Errorf("Confirmed() = %d, want 42", got)
	}
	snap, dirty := cells.Playback.TakeIfDirty()
	if !dirty {
		t.Fatal("expected a dirty snapshot after the first poll")
	}
	if snap.Title != "Song" || snap.Artist != "Band" || !snap.Playing {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if !cells.PowerOn.Load() {
		t.Error("PowerOn should reflect speaker status")
	}
}

func TestVolumeTargetOverwriteSendsOnce(t *testing.T) {
	l, spk, cells := newTestLoop()

	// Two intents before the loop gets a chance to run: the second wins,
	// the first is never sent.
	cells.Volume.SetTarget(70)
	cells.Volume.SetTarget(75)

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.step(t0)

	if len(spk.setVolumeCalls) != 1 || spk.setVolumeCalls[0] != 75 {
		t.Fatalf("setVolumeCalls = %v, want [75]", spk.setVolumeCalls)
	}
	if got := cells.Volume.Confirmed(); got != 75 {
		t.Errorf("Confirmed() = %d, want 75", got)
	}
	if _, pending := cells.Volume.Target(); pending {
		t.Error("target should be cleared after the send")
	}
}

func TestVolumeDebounceSpacing(t *testing.T) {
	l, spk, cells := newTestLoop()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cells.Volume.SetTarget(60)
	l.step(t0)
	if len(spk.setVolumeCalls) != 1 {
		t.Fatalf("setVolumeCalls = %v, want one send", spk.setVolumeCalls)
	}

	// A new target inside the debounce window waits.
	cells.Volume.SetTarget(65)
	l.step(t0.Add(100 * time.Millisecond))
	if len(spk.setVolumeCalls) != 1 {
		t.Fatalf("send within debounce window: %v", spk.setVolumeCalls)
	}

	l.step(t0.Add(250 * time.Millisecond))
	if len(spk.setVolumeCalls) != 2 || spk.setVolumeCalls[1] != 65 {
		t.Fatalf("setVolumeCalls = %v, want [60 65]", spk.setVolumeCalls)
	}
}

func TestVolumeSendFailureRevertsToConfirmed(t *testing.T) {
	l, spk, cells := newTestLoop()
	// The speaker still reports 30: a failed send leaves no settling window,
	// so the same tick's forced poll reads the volume back.
	spk.volume = 30
	cells.Volume.Confirm(30)
	spk.setVolumeErr = errors.New("boom")

	cells.Volume.SetTarget(90)
	l.step(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	if _, pending := cells.Volume.Target(); pending {
		t.Error("failed send must still clear the target")
	}
	if got := cells.Volume.Effective(); got != 30 {
		t.Errorf("Effective() = %d, want fallback to confirmed 30", got)
	}
}

func TestVolumeReadbackSuppressedWhileSettling(t *testing.T) {
	l, spk, cells := newTestLoop()
	spk.volume = 10
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cells.Volume.SetTarget(80)
	l.step(t0) // send + forced poll in the same tick
	if spk.getVolumeCalls != 0 {
		t.Fatalf("GetVolume called %d times during settling window", spk.getVolumeCalls)
	}

	l.step(t0.Add(1 * time.Second))
	l.step(t0.Add(2 * time.Second))
	if spk.getVolumeCalls != 0 {
		t.Fatalf("GetVolume called %d times within 3s of a send", spk.getVolumeCalls)
	}
	if got := cells.Volume.Confirmed(); got != 80 {
		t.Errorf("Confirmed() = %d, want the sent value to stick", got)
	}

	l.step(t0.Add(3 * time.Second))
	if spk.getVolumeCalls != 1 {
		t.Fatalf("GetVolume calls after settling = %d, want 1", spk.getVolumeCalls)
	}
}

func TestArtFetchFailureLeavesSlotEmptyAndRetries(t *testing.T) {
	l, spk, cells := newTestLoop()
	spk.playerData = kefapi.PlayerData{Title: "Song", CoverURL: "http://spk/art.jpg"}
	spk.artErr = errors.New("size mismatch")
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l.step(t0)
	if !cells.Art.Empty() {
		t.Fatal("failed fetch must leave the art slot empty")
	}
	if spk.artCalls != 1 {
		t.Fatalf("artCalls = %d, want 1", spk.artCalls)
	}

	// Next slow poll retries the same URL and succeeds.
	spk.artErr = nil
	spk.art = []byte{0xff, 0xd8, 0x00}
	l.step(t0.Add(pollInterval))
	data, ok := cells.Art.Take()
	if !ok || len(data) != 3 {
		t.Fatalf("Take() = (%v, %v), want the fetched buffer", data, ok)
	}

	// Once handed off, an unchanged URL is not fetched again.
	l.step(t0.Add(2 * pollInterval))
	if spk.artCalls != 2 {
		t.Errorf("artCalls = %d, want 2", spk.artCalls)
	}
}

func TestCoverURLClearedBlanksArt(t *testing.T) {
	l, spk, cells := newTestLoop()
	spk.playerData = kefapi.PlayerData{CoverURL: "http://spk/art.jpg"}
	spk.art = []byte{1}
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l.step(t0)
	cells.Art.Take()

	spk.playerData.CoverURL = ""
	l.step(t0.Add(pollInterval))
	data, ok := cells.Art.Take()
	if !ok || data != nil {
		t.Fatalf("Take() = (%v, %v), want a nil clear marker", data, ok)
	}
}

func TestPowerToggleForcesImmediatePoll(t *testing.T) {
	l, spk, cells := newTestLoop()
	spk.status = false
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l.step(t0)
	if cells.PowerOn.Load() {
		t.Fatal("standby status should clear PowerOn")
	}

	// Toggle from the UI: well inside the poll interval, yet the status
	// refresh must not wait for it.
	cells.ControlCmd.Put(state.CmdPower)
	l.step(t0.Add(100 * time.Millisecond))
	if len(spk.powerCalls) != 1 || !spk.powerCalls[0] {
		t.Fatalf("powerCalls = %v, want [true]", spk.powerCalls)
	}
	if !cells.PowerOn.Load() {
		t.Error("PowerOn should be set right after a successful toggle")
	}
}

func TestSourceCommands(t *testing.T) {
	tests := []struct {
		cmd     string
		wantSrc string
		wantUSB bool
	}{
		{state.CmdSrcUSB, "usb", true},
		{state.CmdSrcWifi, "wifi", false},
		{state.CmdWakeUSB, "usb", true},
		{state.CmdWakeWifi, "wifi", false},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			l, spk, cells := newTestLoop()
			cells.ControlCmd.Put(tt.cmd)
			l.step(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
			if len(spk.sourceCalls) != 1 || spk.sourceCalls[0] != tt.wantSrc {
				t.Fatalf("sourceCalls = %v, want [%s]", spk.sourceCalls, tt.wantSrc)
			}
			if got := cells.SourceUSB.Load(); got != tt.wantUSB {
				t.Errorf("SourceUSB = %v, want %v", got, tt.wantUSB)
			}
			if !cells.PowerOn.Load() {
				t.Error("source switch should mark the speaker powered")
			}
		})
	}
}

func TestTrackAndMuteCommands(t *testing.T) {
	l, spk, cells := newTestLoop()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cells.TrackCmd.Put(state.CmdNext)
	l.step(t0)
	if len(spk.trackCmds) != 1 || spk.trackCmds[0] != "next" {
		t.Fatalf("trackCmds = %v, want [next]", spk.trackCmds)
	}

	cells.TrackCmd.Put(state.CmdMute)
	l.step(t0.Add(tickInterval))
	if len(spk.muteCalls) != 1 || !spk.muteCalls[0] {
		t.Fatalf("muteCalls = %v, want [true]", spk.muteCalls)
	}
	if !cells.Muted.Load() {
		t.Error("Muted flag should follow a successful mute")
	}

	cells.TrackCmd.Put(state.CmdUnmute)
	l.step(t0.Add(2 * tickInterval))
	if cells.Muted.Load() {
		t.Error("Muted flag should clear after unmute")
	}
}

type fakeMusic struct {
	np      spotify.NowPlaying
	nothing bool
	err     error
	calls   int
}

func (f *fakeMusic) Enabled() bool { return true }

func (f *fakeMusic) GetNowPlaying() (spotify.NowPlaying, bool, error) {
	f.calls++
	return f.np, f.nothing, f.err
}

func TestMusicProgressEnrichesSnapshot(t *testing.T) {
	l, spk, cells := newTestLoop()
	spk.playerData = kefapi.PlayerData{Title: "Song", Artist: "Band", Playing: true}
	music := &fakeMusic{np: spotify.NowPlaying{ProgressMS: 61000, DurationMS: 183000}}
	l.SetMusicSource(music)

	l.step(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	snap, dirty := cells.Playback.TakeIfDirty()
	if !dirty {
		t.Fatal("expected a dirty snapshot after the poll")
	}
	if snap.ProgressMS != 61000 || snap.DurationMS != 183000 {
		t.Errorf("progress/duration = %d/%d, want 61000/183000 while music is playing",
			snap.ProgressMS, snap.DurationMS)
	}
	if music.calls != 1 {
		t.Errorf("GetNowPlaying calls = %d, want 1", music.calls)
	}
}

func TestMusicNothingPlayingLeavesProgressZero(t *testing.T) {
	l, spk, cells := newTestLoop()
	spk.playerData = kefapi.PlayerData{Title: "Song", Playing: true}
	music := &fakeMusic{nothing: true, np: spotify.NowPlaying{ProgressMS: 61000, DurationMS: 183000}}
	l.SetMusicSource(music)

	l.step(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	snap, _ := cells.Playback.TakeIfDirty()
	if snap.ProgressMS != 0 || snap.DurationMS != 0 {
		t.Errorf("progress/duration = %d/%d, want 0/0 when nothing is playing",
			snap.ProgressMS, snap.DurationMS)
	}
}

func TestMusicNotConsultedWhilePaused(t *testing.T) {
	l, spk, _ := newTestLoop()
	spk.playerData = kefapi.PlayerData{Title: "Song", Playing: false}
	music := &fakeMusic{}
	l.SetMusicSource(music)

	l.step(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	if music.calls != 0 {
		t.Errorf("GetNowPlaying calls = %d, want 0 while the speaker is not playing", music.calls)
	}
}

func TestOfflineBackoff(t *testing.T) {
	l, spk, _ := newTestLoop()
	online := false
	l.SetConnectivityCheck(func() bool { return online })
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l.step(t0)
	if spk.getVolumeCalls != 0 || len(spk.setVolumeCalls) != 0 {
		t.Fatal("offline tick must not touch the speaker")
	}

	// Connectivity returns, but the backoff window still holds.
	online = true
	l.step(t0.Add(4 * time.Second))
	if spk.getVolumeCalls != 0 {
		t.Fatal("poll ran before the backoff window expired")
	}

	l.step(t0.Add(5 * time.Second))
	if spk.getVolumeCalls != 1 {
		t.Fatalf("getVolumeCalls = %d, want 1 after backoff", spk.getVolumeCalls)
	}
}

func TestPollFailuresRetainPriorState(t *testing.T) {
	l, spk, cells := newTestLoop()
	spk.volume = 55
	spk.playerData = kefapi.PlayerData{Title: "Keep Me"}
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.step(t0)

	spk.getVolumeErr = errors.New("timeout")
	spk.playerErr = errors.New("timeout")
	spk.statusErr = errors.New("timeout")
	l.step(t0.Add(pollInterval))

	if got := cells.Volume.Confirmed(); got != 55 {
		t.Errorf("Confirmed() = %d, want prior 55", got)
	}
	if snap := cells.Playback.Load(); snap.Title != "Keep Me" {
		t.Errorf("snapshot title = %q, want prior value", snap.Title)
	}
	if !cells.PowerOn.Load() {
		t.Error("failed status poll must not flip PowerOn")
	}
}
