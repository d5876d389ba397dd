package lightbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/galamiram/deskknob/internal/state"
)

const (
	defaultPort = 1883
	clientID    = "deskknob-light"

	// Fixed retry cadence while the broker is unreachable. No backoff: the
	// broker is on the same LAN and 5s avoids hot-looping a dead link.
	reconnectInterval = 5 * time.Second
)

// Controller bridges the smart light's message bus. Unlike the speaker the
// light is push-model: the broker delivers a state message whenever the
// light changes, and commands are published to a parallel set topic.
type Controller struct {
	enabled  bool
	broker   string
	topic    string
	setTopic string
	light    *state.LightCell
	client   mqtt.Client
}

// New creates a light controller. An empty broker address disables the
// feature: Connect becomes a no-op and Publish always returns false.
func New(brokerAddr string, port int, topic string, light *state.LightCell) *Controller {
	c := &Controller{
		topic:    topic,
		setTopic: topic + "/set",
		light:    light,
	}
	if brokerAddr == "" {
		log.Debug("Light control disabled (no broker configured)")
		return c
	}
	if port <= 0 {
		port = defaultPort
	}
	c.broker = fmt.Sprintf("tcp://%s:%d", brokerAddr, port)
	c.enabled = true
	return c
}

// ErrDisabled is returned by ConnectSync when no broker is configured.
var ErrDisabled = errors.New("light control not configured")

// Connect starts the broker session. Connection and reconnection are
// asynchronous; while disconnected all inbound processing is skipped and
// publishes fail fast.
func (c *Controller) Connect() {
	if !c.enabled {
		return
	}
	c.setup()
	c.client.Connect()
	log.WithField("broker", c.broker).Debug("Light broker session starting")
}

// ConnectSync connects and waits for the session to come up. Used by one-shot
// commands that publish and exit.
func (c *Controller) ConnectSync(timeout time.Duration) error {
	if !c.enabled {
		return ErrDisabled
	}
	c.setup()
	tok := c.client.Connect()
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("connect to %s: timeout", c.broker)
	}
	return tok.Error()
}

func (c *Controller) setup() {
	if c.client != nil {
		return
	}

	opts := mqtt.NewClientOptions().
		AddBroker(c.broker).
		SetClientID(clientID).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectInterval).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(reconnectInterval).
		SetOnConnectHandler(func(cl mqtt.Client) {
			// Subscribe on every (re)connect so a broker restart
			// re-establishes the state feed.
			cl.Subscribe(c.topic, 0, c.handleMessage)
			log.WithField("topic", c.topic).Info("Connected to light broker")
		}).
		SetConnectionLostHandler(func(cl mqtt.Client, err error) {
			log.WithError(err).Warn("Light broker connection lost")
		})

	c.client = mqtt.NewClient(opts)
}

// Connected reports whether the broker session is up.
func (c *Controller) Connected() bool {
	return c.enabled && c.client != nil && c.client.IsConnected()
}

// Disconnect tears down the broker session.
func (c *Controller) Disconnect() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}

func (c *Controller) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := c.applyState(msg.Payload()); err != nil {
		log.WithError(err).Debug("Ignoring malformed light state message")
	}
}

// applyState parses a state message and applies the fields it carries.
// Every field is optional and updates independently; absent fields leave
// the corresponding cell value unchanged.
func (c *Controller) applyState(payload []byte) error {
	var raw struct {
		State      *string `json:"state"`
		Brightness *int    `json:"brightness"`
		ColorTemp  *int    `json:"color_temp"`
		Color      *struct {
			Hue        *float64 `json:"hue"`
			Saturation *float64 `json:"saturation"`
		} `json:"color"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return err
	}
	if raw.State == nil && raw.Brightness == nil && raw.ColorTemp == nil && raw.Color == nil {
		return nil
	}

	c.light.Apply(func(st *state.LightState) {
		if raw.State != nil {
			st.On = *raw.State == "ON"
		}
		if raw.Brightness != nil {
			st.Brightness = *raw.Brightness
		}
		if raw.ColorTemp != nil {
			st.ColorTemp = *raw.ColorTemp
		}
		if raw.Color != nil {
			if raw.Color.Hue != nil {
				st.Hue = *raw.Color.Hue
			}
			if raw.Color.Saturation != nil {
				st.Saturation = *raw.Color.Saturation
			}
		}
	})
	return nil
}

// Publish sends a raw command payload to the set topic. Returns false when
// the feature is disabled or the broker is unreachable.
func (c *Controller) Publish(payload string) bool {
	if !c.Connected() {
		return false
	}
	tok := c.client.Publish(c.setTopic, 0, false, payload)
	tok.Wait()
	if tok.Error() != nil {
		log.WithError(tok.Error()).Debug("Light publish failed")
		return false
	}
	log.WithField("payload", payload).Debug("Light command published")
	return true
}

// SetPower publishes an on/off command.
func (c *Controller) SetPower(on bool) bool {
	if on {
		return c.Publish(`{"state":"ON"}`)
	}
	return c.Publish(`{"state":"OFF"}`)
}

// SetBrightness publishes a brightness command (0-254).
func (c *Controller) SetBrightness(b int) bool {
	if b < 0 {
		b = 0
	}
	if b > 254 {
		b = 254
	}
	return c.Publish(fmt.Sprintf(`{"brightness":%d}`, b))
}

// SetColorTemp publishes a color temperature command in mired.
func (c *Controller) SetColorTemp(mired int) bool {
	return c.Publish(fmt.Sprintf(`{"color_temp":%d}`, mired))
}

// SetColor publishes a hue/saturation command.
func (c *Controller) SetColor(hue, saturation int) bool {
	return c.Publish(fmt.Sprintf(`{"color":{"hue":%d,"saturation":%d}}`, hue, saturation))
}
