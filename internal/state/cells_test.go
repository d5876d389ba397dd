package state

import "testing"

func TestSnapshotCellPublishAndTake(t *testing.T) {
	var c SnapshotCell

	if _, ok := c.TakeIfDirty(); ok {
		t.Error("Fresh cell should not be dirty")
	}

	c.Publish(PlaybackSnapshot{Title: "Song", Artist: "Band", Playing: true})

	snap, ok := c.TakeIfDirty()
	if !ok {
		t.Fatal("Expected dirty cell after publish")
	}
	if snap.Title != "Song" || snap.Artist != "Band" || !snap.Playing {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}

	if _, ok := c.TakeIfDirty(); ok {
		t.Error("Take should clear the dirty flag")
	}

	// Load keeps the content available without consuming it.
	if got := c.Load().Title; got != "Song" {
		t.Errorf("Load returned title %q, want %q", got, "Song")
	}
}

func TestSnapshotCellMarkDirtyKeepsContent(t *testing.T) {
	var c SnapshotCell
	c.Publish(PlaybackSnapshot{Title: "Song"})
	c.TakeIfDirty()

	c.MarkDirty()
	snap, ok := c.TakeIfDirty()
	if !ok {
		t.Fatal("MarkDirty should make the next take fire")
	}
	if snap.Title != "Song" {
		t.Errorf("MarkDirty changed the snapshot: %+v", snap)
	}
}

func TestVolumeCellTargetLifecycle(t *testing.T) {
	c := NewVolumeCell(30)

	if _, ok := c.Target(); ok {
		t.Error("New cell should have no target")
	}
	if got := c.Effective(); got != 30 {
		t.Errorf("Effective = %d, want confirmed 30", got)
	}

	c.SetTarget(60)
	c.SetTarget(65) // last write wins
	if tgt, ok := c.Target(); !ok || tgt != 65 {
		t.Errorf("Target = %d,%v, want 65,true", tgt, ok)
	}
	if got := c.Effective(); got != 65 {
		t.Errorf("Effective = %d, want optimistic 65", got)
	}

	c.ClearTarget()
	c.Confirm(65)
	if _, ok := c.Target(); ok {
		t.Error("ClearTarget should drop the pending target")
	}
	if got := c.Effective(); got != 65 {
		t.Errorf("Effective = %d, want confirmed 65", got)
	}
}

func TestVolumeCellClamps(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below range", -5, 0},
		{"above range", 130, 100},
		{"in range", 42, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewVolumeCell(50)
			c.SetTarget(tt.in)
			if got, _ := c.Target(); got != tt.want {
				t.Errorf("SetTarget(%d): target = %d, want %d", tt.in, got, tt.want)
			}
			c.Confirm(tt.in)
			if got := c.Confirmed(); got != tt.want {
				t.Errorf("Confirm(%d): confirmed = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMailboxReplaceSemantics(t *testing.T) {
	var m Mailbox

	if _, ok := m.Take(); ok {
		t.Error("Empty mailbox should have nothing to take")
	}

	if displaced := m.Put(CmdNext); displaced {
		t.Error("Put into empty mailbox should not displace")
	}
	if displaced := m.Put(CmdPrevious); !displaced {
		t.Error("Put over unconsumed command should report displacement")
	}
	if got := m.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}

	cmd, ok := m.Take()
	if !ok || cmd != CmdPrevious {
		t.Errorf("Take = %q,%v, want %q,true", cmd, ok, CmdPrevious)
	}
	if _, ok := m.Take(); ok {
		t.Error("Second take should find the mailbox empty")
	}
}

func TestMailboxSameCommandNotCountedAsDrop(t *testing.T) {
	var m Mailbox
	m.Put(CmdPause)
	if displaced := m.Put(CmdPause); displaced {
		t.Error("Re-putting the identical command should not count as a drop")
	}
	if got := m.Dropped(); got != 0 {
		t.Errorf("Dropped = %d, want 0", got)
	}
}

func TestArtSlotHandoff(t *testing.T) {
	var s ArtSlot

	if !s.Empty() {
		t.Error("Fresh slot should be empty")
	}
	if s.TryPut(nil) {
		t.Error("TryPut of an empty buffer should fail")
	}

	if !s.TryPut([]byte{1, 2, 3}) {
		t.Fatal("TryPut into empty slot should succeed")
	}
	if s.Empty() {
		t.Error("Slot should report occupied after put")
	}
	if s.TryPut([]byte{4}) {
		t.Error("TryPut while occupied should fail")
	}
	if s.Clear() {
		t.Error("Clear while a buffer is pending should fail")
	}

	data, ok := s.Take()
	if !ok || len(data) != 3 {
		t.Fatalf("Take = %v,%v, want 3-byte buffer", data, ok)
	}
	if !s.Empty() {
		t.Error("Take should empty the slot")
	}
}

func TestArtSlotClearMarker(t *testing.T) {
	var s ArtSlot

	if !s.Clear() {
		t.Fatal("Clear on empty slot should succeed")
	}
	if s.TryPut([]byte{1}) {
		t.Error("TryPut should fail while a clear marker is pending")
	}

	data, ok := s.Take()
	if !ok {
		t.Fatal("Take should return the clear marker")
	}
	if data != nil {
		t.Errorf("Clear marker should be a nil buffer, got %v", data)
	}
}

func TestLightCellPartialUpdates(t *testing.T) {
	c := NewLightCell()

	st := c.Load()
	if st.Brightness != 127 || st.ColorTemp != 370 {
		t.Errorf("Unexpected defaults: %+v", st)
	}
	if _, ok := c.TakeIfDirty(); ok {
		t.Error("Fresh cell should not be dirty")
	}

	c.Apply(func(s *LightState) { s.On = true })
	c.Apply(func(s *LightState) { s.Brightness = 200 })

	st, ok := c.TakeIfDirty()
	if !ok {
		t.Fatal("Expected dirty cell after apply")
	}
	if !st.On || st.Brightness != 200 || st.ColorTemp != 370 {
		t.Errorf("Partial updates did not accumulate: %+v", st)
	}
}

func TestNewCellsDefaults(t *testing.T) {
	c := New()

	if !c.PowerOn.Load() {
		t.Error("Cells should assume the speaker is on until the first poll")
	}
	if got := c.Volume.Confirmed(); got != 50 {
		t.Errorf("Initial volume = %d, want 50", got)
	}
	if c.Light == nil {
		t.Fatal("Light cell should be initialized")
	}
}
