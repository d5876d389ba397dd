// Package poller runs the device-facing reconciliation loop. It is the only
// writer to the speaker: the presentation side records intent in the shared
// cells and the loop turns intent into HTTP calls, then refreshes the cells
// from what the speaker actually reports.
package poller

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/galamiram/deskknob/internal/kefapi"
	"github.com/galamiram/deskknob/internal/spotify"
	"github.com/galamiram/deskknob/internal/state"
)

const (
	// tickInterval paces the loop. Command drains happen every tick so user
	// input stays responsive; status polling runs on its own slower cadence.
	tickInterval = 50 * time.Millisecond

	// volumeDebounce is the minimum spacing between volume sends. Measured
	// from the last send, not the last target change, so a continuously
	// turning knob still produces a send every 250ms instead of starving.
	volumeDebounce = 250 * time.Millisecond

	// settleWindow suppresses volume read-back after a send. The speaker
	// reports stale values briefly after accepting a change; reading during
	// that window would snap the UI backwards.
	settleWindow = 3 * time.Second

	// pollInterval is the slow status poll cadence.
	pollInterval = time.Second

	// offlineDelay is how long to back off after a connectivity failure.
	offlineDelay = 5 * time.Second
)

// SpeakerClient is the slice of the speaker API the loop drives.
type SpeakerClient interface {
	GetVolume() (int, error)
	SetVolume(volume int) error
	GetPlayerData() (kefapi.PlayerData, error)
	GetSpeakerStatus() (bool, error)
	GetSource() (string, error)
	SetSource(source string) error
	SetPower(on bool) error
	SendTrackControl(cmd string) error
	SetMute(muted bool) error
	FetchArt(artURL string) ([]byte, error)
}

// MusicSource supplies playback progress the speaker itself does not expose.
type MusicSource interface {
	Enabled() bool
	GetNowPlaying() (spotify.NowPlaying, bool, error)
}

// Loop owns the polling schedule. Not safe for concurrent use; exactly one
// goroutine runs it.
type Loop struct {
	speaker SpeakerClient
	cells   *state.Cells
	music   MusicSource
	online  func() bool
	now     func() time.Time

	lastVolumeSend time.Time
	lastPoll       time.Time
	lastCoverURL   string
	forcePoll      bool
	offlineUntil   time.Time
}

// New creates a loop that assumes the network is always reachable. Wire a
// real connectivity check with SetConnectivityCheck.
func New(speaker SpeakerClient, cells *state.Cells) *Loop {
	return &Loop{
		speaker:   speaker,
		cells:     cells,
		online:    func() bool { return true },
		now:       time.Now,
		forcePoll: true, // populate the cells on the first tick
	}
}

// SetMusicSource attaches an optional progress provider, consulted while the
// speaker plays from the network source.
func (l *Loop) SetMusicSource(m MusicSource) { l.music = m }

// SetConnectivityCheck replaces the reachability probe.
func (l *Loop) SetConnectivityCheck(f func() bool) { l.online = f }

// Run ticks the loop until the context is cancelled. Cancellation is only
// observed between iterations; an in-flight HTTP call finishes first.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.step(l.now())
		}
	}
}

func (l *Loop) step(now time.Time) {
	if now.Before(l.offlineUntil) {
		return
	}
	if !l.online() {
		log.Debug("Network unreachable, backing off")
		l.offlineUntil = now.Add(offlineDelay)
		return
	}

	l.drainVolume(now)
	l.drainTrackCmd()
	l.drainControlCmd()

	if l.forcePoll || now.Sub(l.lastPoll) >= pollInterval {
		l.forcePoll = false
		l.lastPoll = now
		l.poll(now)
	}
}

// drainVolume sends at most one volume write per debounce window. The target
// is cleared whether or not the send succeeds: on failure the UI falls back
// to the last confirmed value instead of replaying a stale target forever.
func (l *Loop) drainVolume(now time.Time) {
	target, ok := l.cells.Volume.Target()
	if !ok {
		return
	}
	if now.Sub(l.lastVolumeSend) < volumeDebounce {
		return
	}
	err := l.speaker.SetVolume(target)
	l.cells.Volume.ClearTarget()
	if err != nil {
		log.WithError(err).WithField("volume", target).Warn("Volume send failed")
		l.cells.Playback.MarkDirty()
		return
	}
	l.cells.Volume.Confirm(target)
	l.lastVolumeSend = now
	log.WithField("volume", target).Debug("Volume sent")
}

func (l *Loop) drainTrackCmd() {
	cmd, ok := l.cells.TrackCmd.Take()
	if !ok {
		return
	}
	switch cmd {
	case state.CmdMute, state.CmdUnmute:
		muted := cmd == state.CmdMute
		if err := l.speaker.SetMute(muted); err != nil {
			log.WithError(err).WithField("cmd", cmd).Warn("Mute command failed")
			return
		}
		l.cells.Muted.Store(muted)
		l.cells.Playback.MarkDirty()
	default:
		if err := l.speaker.SendTrackControl(cmd); err != nil {
			log.WithError(err).WithField("cmd", cmd).Warn("Track command failed")
		}
	}
}

// drainControlCmd handles power and source switching. Any successful command
// forces an immediate status poll so the display catches up within one tick
// instead of waiting out the poll interval.
func (l *Loop) drainControlCmd() {
	cmd, ok := l.cells.ControlCmd.Take()
	if !ok {
		return
	}
	switch cmd {
	case state.CmdPower:
		next := !l.cells.PowerOn.Load()
		if err := l.speaker.SetPower(next); err != nil {
			log.WithError(err).Warn("Power toggle failed")
			return
		}
		l.cells.PowerOn.Store(next)
	case state.CmdSrcWifi, state.CmdWakeWifi:
		if err := l.speaker.SetSource("wifi"); err != nil {
			log.WithError(err).Warn("Source switch failed")
			return
		}
		l.cells.SourceUSB.Store(false)
		l.cells.PowerOn.Store(true)
	case state.CmdSrcUSB, state.CmdWakeUSB:
		if err := l.speaker.SetSource("usb"); err != nil {
			log.WithError(err).Warn("Source switch failed")
			return
		}
		l.cells.SourceUSB.Store(true)
		l.cells.PowerOn.Store(true)
	default:
		log.WithField("cmd", cmd).Warn("Unknown control command dropped")
		return
	}
	l.forcePoll = true
	l.cells.Playback.MarkDirty()
}

// poll refreshes every cell from the speaker. Each probe fails independently;
// a failed probe leaves the previous value in place.
func (l *Loop) poll(now time.Time) {
	if on, err := l.speaker.GetSpeakerStatus(); err != nil {
		log.WithError(err).Debug("Speaker status poll failed")
	} else {
		l.cells.PowerOn.Store(on)
	}

	if src, err := l.speaker.GetSource(); err != nil {
		log.WithError(err).Debug("Source poll failed")
	} else {
		l.cells.SourceUSB.Store(src == "usb")
	}

	if pd, err := l.speaker.GetPlayerData(); err != nil {
		log.WithError(err).Debug("Player data poll failed")
	} else {
		snap := state.PlaybackSnapshot{
			Title:    pd.Title,
			Artist:   pd.Artist,
			Playing:  pd.Playing,
			Standby:  pd.Standby,
			CoverURL: pd.CoverURL,
		}
		if l.music != nil && l.music.Enabled() && pd.Playing && !l.cells.SourceUSB.Load() {
			if np, nothing, err := l.music.GetNowPlaying(); err != nil {
				log.WithError(err).Debug("Now playing poll failed")
			} else if !nothing {
				snap.ProgressMS = np.ProgressMS
				snap.DurationMS = np.DurationMS
			}
		}
		l.cells.Playback.Publish(snap)
		l.updateArt(pd.CoverURL)
	}

	// Read-back is skipped while a target is pending or the speaker is
	// still settling after our own send; it would report the old value.
	if _, pending := l.cells.Volume.Target(); !pending &&
		(l.lastVolumeSend.IsZero() || now.Sub(l.lastVolumeSend) >= settleWindow) {
		if v, err := l.speaker.GetVolume(); err != nil {
			log.WithError(err).Debug("Volume poll failed")
		} else {
			l.cells.Volume.Confirm(v)
		}
	}

	l.cells.Playback.MarkDirty()
}

// updateArt fetches cover art only when the URL changed and the hand-off
// slot is free. lastCoverURL advances only on a successful hand-off, so a
// failed fetch retries on the next poll.
func (l *Loop) updateArt(coverURL string) {
	if coverURL == l.lastCoverURL {
		return
	}
	if coverURL == "" {
		if l.cells.Art.Clear() {
			l.lastCoverURL = ""
		}
		return
	}
	if !l.cells.Art.Empty() {
		return
	}
	data, err := l.speaker.FetchArt(coverURL)
	if err != nil {
		log.WithError(err).WithField("url", coverURL).Debug("Art fetch failed")
		return
	}
	if l.cells.Art.TryPut(data) {
		l.lastCoverURL = coverURL
	}
}
