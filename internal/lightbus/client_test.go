package lightbus

import (
	"errors"
	"testing"
	"time"

	"github.com/galamiram/deskknob/internal/state"
)

func newTestController() (*Controller, *state.LightCell) {
	light := state.NewLightCell()
	c := New("", 0, "zigbee2mqtt/desk_light", light)
	return c, light
}

func TestApplyStateFullMessage(t *testing.T) {
	c, light := newTestController()
	payload := `{"state":"ON","brightness":200,"color_temp":300,"color":{"hue":120.5,"saturation":80}}`
	if err := c.applyState([]byte(payload)); err != nil {
		t.Fatalf("applyState() error = %v", err)
	}
	st, dirty := light.TakeIfDirty()
	if !dirty {
		t.Fatal("expected dirty flag after state update")
	}
	if !st.On || st.Brightness != 200 || st.ColorTemp != 300 {
		t.Errorf("unexpected state %+v", st)
	}
	if st.Hue != 120.5 || st.Saturation != 80 {
		t.Errorf("unexpected color %+v", st)
	}
}

func TestApplyStatePartialMessage(t *testing.T) {
	c, light := newTestController()
	if err := c.applyState([]byte(`{"state":"ON","brightness":180}`)); err != nil {
		t.Fatalf("applyState() error = %v", err)
	}
	light.TakeIfDirty()

	// Only brightness changes; everything else must survive.
	if err := c.applyState([]byte(`{"brightness":40}`)); err != nil {
		t.Fatalf("applyState() error = %v", err)
	}
	st, dirty := light.TakeIfDirty()
	if !dirty {
		t.Fatal("expected dirty flag after partial update")
	}
	if !st.On {
		t.Error("partial update clobbered power state")
	}
	if st.Brightness != 40 {
		t.Errorf("Brightness = %d, want 40", st.Brightness)
	}
}

func TestApplyStateOffToken(t *testing.T) {
	c, light := newTestController()
	c.applyState([]byte(`{"state":"ON"}`))
	c.applyState([]byte(`{"state":"OFF"}`))
	st := light.Load()
	if st.On {
		t.Error("state OFF should clear the power flag")
	}
}

func TestApplyStateMalformed(t *testing.T) {
	c, light := newTestController()
	if err := c.applyState([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if _, dirty := light.TakeIfDirty(); dirty {
		t.Error("malformed payload must not mark the cell dirty")
	}
}

func TestApplyStateEmptyObject(t *testing.T) {
	c, light := newTestController()
	if err := c.applyState([]byte(`{}`)); err != nil {
		t.Fatalf("applyState() error = %v", err)
	}
	if _, dirty := light.TakeIfDirty(); dirty {
		t.Error("message with no known fields must not mark the cell dirty")
	}
}

func TestPublishWhileDisabled(t *testing.T) {
	c, _ := newTestController()
	if c.Publish(`{"state":"ON"}`) {
		t.Error("Publish should fail when no broker is configured")
	}
	if c.Connected() {
		t.Error("Connected() should be false when disabled")
	}
	// Connect must be a harmless no-op.
	c.Connect()
	if c.SetPower(true) {
		t.Error("SetPower should fail when disabled")
	}
	if err := c.ConnectSync(time.Second); !errors.Is(err, ErrDisabled) {
		t.Errorf("ConnectSync() error = %v, want ErrDisabled", err)
	}
}

func TestCommandPayloads(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Controller) bool
	}{
		{"power", func(c *Controller) bool { return c.SetPower(true) }},
		{"brightness", func(c *Controller) bool { return c.SetBrightness(999) }},
		{"color_temp", func(c *Controller) bool { return c.SetColorTemp(370) }},
		{"color", func(c *Controller) bool { return c.SetColor(10, 20) }},
	}
	c, _ := newTestController()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Disabled controller: builders must still be safe to call.
			if tt.call(c) {
				t.Error("command succeeded with no broker")
			}
		})
	}
}
