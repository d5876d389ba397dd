package state

import (
	"sync"
	"sync/atomic"
)

// Command tokens passed through the mailboxes. The poll loop dispatches on
// these; the presentation side never calls a backend directly.
const (
	CmdPause    = "pause"
	CmdNext     = "next"
	CmdPrevious = "previous"
	CmdMute     = "mute"
	CmdUnmute   = "unmute"
	CmdPower    = "power"
	CmdSrcWifi  = "src_wifi"
	CmdSrcUSB   = "src_usb"
	CmdWakeWifi = "pwr_wifi"
	CmdWakeUSB  = "pwr_usb"
)

// PlaybackSnapshot is the display state produced by one successful poll.
// It is published wholesale and never partially mutated, so a reader can
// never observe a torn title/artist pair.
type PlaybackSnapshot struct {
	Title      string
	Artist     string
	Playing    bool
	Standby    bool
	CoverURL   string
	ProgressMS int
	DurationMS int
}

// SnapshotCell holds the latest PlaybackSnapshot behind a short-lived mutex.
// Single writer (the poll loop); the presentation side reads and copies.
type SnapshotCell struct {
	mu    sync.Mutex
	snap  PlaybackSnapshot
	dirty bool
}

// Publish replaces the snapshot and marks the cell dirty.
func (c *SnapshotCell) Publish(s PlaybackSnapshot) {
	c.mu.Lock()
	c.snap = s
	c.dirty = true
	c.mu.Unlock()
}

// MarkDirty flags the aggregate display state without changing the snapshot.
// The poll loop uses it after updating plain flags so the next render picks
// them up.
func (c *SnapshotCell) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// TakeIfDirty returns a copy of the snapshot and clears the dirty flag.
// The second return is false when nothing changed since the last take.
func (c *SnapshotCell) TakeIfDirty() (PlaybackSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return PlaybackSnapshot{}, false
	}
	c.dirty = false
	return c.snap, true
}

// Load returns a copy of the snapshot without touching the dirty flag.
func (c *SnapshotCell) Load() PlaybackSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

const noTarget = -1

// VolumeCell carries the two volume representations: the confirmed value
// written by the poll loop, and an unconfirmed user target written by the
// presentation side. At most one target is outstanding; a new target
// overwrites the old one (last write wins, no queue).
type VolumeCell struct {
	confirmed atomic.Int32
	target    atomic.Int32
}

// NewVolumeCell returns a cell with no outstanding target.
func NewVolumeCell(initial int) *VolumeCell {
	c := &VolumeCell{}
	c.confirmed.Store(int32(clampVolume(initial)))
	c.target.Store(noTarget)
	return c
}

// SetTarget records user intent. Clamped to [0,100].
func (c *VolumeCell) SetTarget(v int) {
	c.target.Store(int32(clampVolume(v)))
}

// Target returns the pending target, if any.
func (c *VolumeCell) Target() (int, bool) {
	t := c.target.Load()
	if t == noTarget {
		return 0, false
	}
	return int(t), true
}

// ClearTarget drops the pending target. Consumer side only.
func (c *VolumeCell) ClearTarget() {
	c.target.Store(noTarget)
}

// Confirm records a value the speaker acknowledged or reported.
func (c *VolumeCell) Confirm(v int) {
	c.confirmed.Store(int32(clampVolume(v)))
}

// Confirmed returns the last server-acknowledged volume.
func (c *VolumeCell) Confirmed() int {
	return int(c.confirmed.Load())
}

// Effective is what the UI should draw: the optimistic target while one is
// outstanding, the confirmed value otherwise.
func (c *VolumeCell) Effective() int {
	if t, ok := c.Target(); ok {
		return t
	}
	return c.Confirmed()
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Mailbox is a single-slot command cell: the presentation side puts, the
// poll loop takes. An unconsumed command is replaced by a newer one rather
// than queued; each displacement bumps a counter so the producer can log it.
type Mailbox struct {
	mu      sync.Mutex
	cmd     string
	dropped atomic.Uint64
}

// Put stores cmd, displacing any unconsumed command. Returns true when a
// pending command was dropped to make room.
func (m *Mailbox) Put(cmd string) bool {
	m.mu.Lock()
	displaced := m.cmd != "" && m.cmd != cmd
	m.cmd = cmd
	m.mu.Unlock()
	if displaced {
		m.dropped.Add(1)
	}
	return displaced
}

// Take removes and returns the pending command.
func (m *Mailbox) Take() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == "" {
		return "", false
	}
	cmd := m.cmd
	m.cmd = ""
	return cmd, true
}

// Dropped reports how many commands were displaced before consumption.
func (m *Mailbox) Dropped() uint64 {
	return m.dropped.Load()
}

// ArtSlot hands encoded cover art from the poll loop to the presentation
// side. The producer may only write while the slot is empty; the consumer
// empties the slot the moment it takes ownership, so the producer can start
// preparing the next image while this one decodes. A taken nil buffer means
// "clear the displayed art".
type ArtSlot struct {
	mu    sync.Mutex
	data  []byte
	dirty bool
}

// Empty reports whether the producer may write.
func (s *ArtSlot) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data == nil && !s.dirty
}

// TryPut hands a buffer to the consumer. Fails when the previous buffer has
// not been taken yet.
func (s *ArtSlot) TryPut(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil || s.dirty {
		return false
	}
	s.data = data
	s.dirty = true
	return true
}

// Clear signals the consumer to blank the art. Like TryPut it refuses while
// a buffer is still owned by the consumer.
func (s *ArtSlot) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		return false
	}
	s.dirty = true
	return true
}

// Take transfers ownership of the pending buffer (nil = clear art) to the
// caller and empties the slot.
func (s *ArtSlot) Take() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil, false
	}
	data := s.data
	s.data = nil
	s.dirty = false
	return data, true
}

// LightState mirrors the zigbee2mqtt light: fields update independently.
type LightState struct {
	On         bool
	Brightness int // 0-254
	ColorTemp  int // mired
	Hue        float64
	Saturation float64
}

// LightCell holds the light state pushed by the broker. Updates are partial:
// an inbound message touches only the fields it carries.
type LightCell struct {
	mu    sync.Mutex
	st    LightState
	dirty bool
}

// NewLightCell seeds neutral defaults matching a warm-white bulb at half
// brightness, shown until the first state push arrives.
func NewLightCell() *LightCell {
	return &LightCell{st: LightState{Brightness: 127, ColorTemp: 370}}
}

// Apply runs fn against the current state under the lock and marks the cell
// dirty. fn mutates only the fields present in the inbound message.
func (c *LightCell) Apply(fn func(*LightState)) {
	c.mu.Lock()
	fn(&c.st)
	c.dirty = true
	c.mu.Unlock()
}

// TakeIfDirty returns a copy of the state and clears the dirty flag.
func (c *LightCell) TakeIfDirty() (LightState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return LightState{}, false
	}
	c.dirty = false
	return c.st, true
}

// Load returns a copy without clearing the dirty flag.
func (c *LightCell) Load() LightState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Cells bundles every cross-context cell. One instance lives for the whole
// process; the poll loop and the presentation loop share it.
type Cells struct {
	Playback   SnapshotCell
	Volume     *VolumeCell
	TrackCmd   Mailbox
	ControlCmd Mailbox
	Art        ArtSlot
	Light      *LightCell

	// Single-writer flags: the poll loop writes, everyone else reads.
	PowerOn   atomic.Bool
	SourceUSB atomic.Bool
	Muted     atomic.Bool
}

// New creates the process-wide cell set.
func New() *Cells {
	c := &Cells{
		Volume: NewVolumeCell(50),
		Light:  NewLightCell(),
	}
	c.PowerOn.Store(true)
	return c
}
