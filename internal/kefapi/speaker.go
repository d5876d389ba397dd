package kefapi

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultPort    = "80"
	defaultTimeout = 5 * time.Second

	// MaxArtBytes caps a cover art download. Anything larger than this is
	// rejected before allocation.
	MaxArtBytes = 256 * 1024

	pathVolume         = "player:volume"
	pathPlayerData     = "player:player/data"
	pathPlayerControl  = "player:player/control"
	pathPhysicalSource = "settings:/kef/play/physicalSource"
	pathMute           = "settings:/mediaPlayer/mute"
	pathSpeakerStatus  = "settings:/kef/host/speakerStatus"

	// Power on/off ride the physicalSource endpoint as pseudo-sources.
	sourcePowerOn = "powerOn"
	sourceStandby = "standby"
)

var sources = []string{"wifi", "bluetooth", "tv", "optic", "coaxial", "analog", "usb"}

var trackControls = []string{"pause", "next", "previous"}

// Speaker is a client for the speaker's key-value REST API. Every method is
// one blocking round trip sharing a single timeout; call them from the I/O
// goroutine only.
type Speaker struct {
	baseURL string
	http    *http.Client
	art     *http.Client
}

// PlayerData is the composite player state from one poll.
type PlayerData struct {
	Title    string
	Artist   string
	Playing  bool
	Standby  bool
	CoverURL string
}

// New creates a speaker client for the given address.
func New(addr, port string, timeout time.Duration) (*Speaker, error) {
	if addr == "" {
		return nil, errors.New("speaker address not configured")
	}
	if port == "" {
		port = defaultPort
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Speaker{
		baseURL: fmt.Sprintf("http://%s:%s/api", addr, port),
		http:    &http.Client{Timeout: timeout},
		// Cover art lives on the music service's CDN behind HTTPS. The
		// firmware this device talks to ships no CA bundle, so art fetches
		// skip certificate verification; the size checks in FetchArt are
		// the guard instead.
		art: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}, nil
}

// GetAvailableSources returns the physical input names the speaker accepts.
func GetAvailableSources() []string {
	return sources
}

// IsValidSource checks a source name case-insensitively.
func IsValidSource(source string) bool {
	for _, s := range sources {
		if strings.EqualFold(s, source) {
			return true
		}
	}
	return false
}

// IsValidTrackControl checks a track control token.
func IsValidTrackControl(cmd string) bool {
	for _, c := range trackControls {
		if c == cmd {
			return true
		}
	}
	return false
}

// GetVolume retrieves the current volume (0-100).
func (s *Speaker) GetVolume() (int, error) {
	var v struct {
		I32 *int `json:"i32_"`
	}
	if err := s.getValue(pathVolume, &v); err != nil {
		return 0, fmt.Errorf("get volume: %v", err)
	}
	if v.I32 == nil {
		return 0, errors.New("get volume: value missing in response")
	}
	return *v.I32, nil
}

// SetVolume sets the volume, clamped to [0,100].
func (s *Speaker) SetVolume(volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return s.setData(pathVolume, "value", typedInt{Type: "i32_", Value: volume})
}

// GetPlayerData retrieves title, artist, playback state and cover URL.
//
// The player "state" string cannot distinguish powered-off from
// powered-on-but-idle: both report "stopped". Standby here therefore only
// means "not playing and not paused"; GetSpeakerStatus is the authority for
// the power state shown to the user.
func (s *Speaker) GetPlayerData() (PlayerData, error) {
	var raw struct {
		State      string `json:"state"`
		TrackRoles struct {
			Title     string `json:"title"`
			Icon      string `json:"icon"`
			MediaData struct {
				MetaData struct {
					Artist string `json:"artist"`
				} `json:"metaData"`
			} `json:"mediaData"`
		} `json:"trackRoles"`
	}
	if err := s.getValue(pathPlayerData, &raw); err != nil {
		return PlayerData{}, fmt.Errorf("get player data: %v", err)
	}

	d := PlayerData{
		Title:    raw.TrackRoles.Title,
		Artist:   raw.TrackRoles.MediaData.MetaData.Artist,
		Playing:  raw.State == "playing",
		Standby:  raw.State != "playing" && raw.State != "pause",
		CoverURL: raw.TrackRoles.Icon,
	}
	if d.Title == "" {
		d.Title = "--"
	}
	if d.Artist == "" {
		d.Artist = "--"
	}
	return d, nil
}

// GetSpeakerStatus reports whether the speaker is physically powered on.
//
// This is a deliberately separate endpoint from GetPlayerData: speakerStatus
// answers "powerOn" whenever the unit is awake, regardless of playback, and
// is the only reliable standby detector this API offers.
func (s *Speaker) GetSpeakerStatus() (bool, error) {
	var v struct {
		Status string `json:"kefSpeakerStatus"`
	}
	if err := s.getValue(pathSpeakerStatus, &v); err != nil {
		return false, fmt.Errorf("get speaker status: %v", err)
	}
	return v.Status == "powerOn", nil
}

// GetSource retrieves the active physical source token.
func (s *Speaker) GetSource() (string, error) {
	var v struct {
		Source string `json:"kefPhysicalSource"`
	}
	if err := s.getValue(pathPhysicalSource, &v); err != nil {
		return "", fmt.Errorf("get source: %v", err)
	}
	return v.Source, nil
}

// SetSource switches the physical input. Power on and standby are routed
// through this same endpoint with pseudo-source tokens; the separate
// activation endpoint returns HTTP 500 while the speaker is stopped, so it
// must never be used for waking.
func (s *Speaker) SetSource(source string) error {
	if source != sourcePowerOn && source != sourceStandby {
		if !IsValidSource(source) {
			return fmt.Errorf("invalid source '%s'. Available sources: %v", source, sources)
		}
		source = strings.ToLower(source)
	}
	err := s.setData(pathPhysicalSource, "value",
		typedSource{Type: "kefPhysicalSource", Source: source})
	if err != nil {
		return fmt.Errorf("set source: %v", err)
	}
	log.WithField("source", source).Debug("Speaker source set")
	return nil
}

// SetPower wakes the speaker or puts it in standby.
func (s *Speaker) SetPower(on bool) error {
	if on {
		return s.SetSource(sourcePowerOn)
	}
	return s.SetSource(sourceStandby)
}

// SendTrackControl issues a fire-and-forget playback command: one of
// "pause", "next", "previous".
func (s *Speaker) SendTrackControl(cmd string) error {
	if !IsValidTrackControl(cmd) {
		return fmt.Errorf("invalid track control '%s'", cmd)
	}
	if err := s.setData(pathPlayerControl, "activate", controlValue{Control: cmd}); err != nil {
		return fmt.Errorf("track control %s: %v", cmd, err)
	}
	return nil
}

// SetMute mutes or unmutes playback.
func (s *Speaker) SetMute(muted bool) error {
	if err := s.setData(pathMute, "value", typedBool{Type: "bool_", Value: muted}); err != nil {
		return fmt.Errorf("set mute: %v", err)
	}
	return nil
}

// GetMute reports whether playback is muted.
func (s *Speaker) GetMute() (bool, error) {
	var v typedBool
	if err := s.getValue(pathMute, &v); err != nil {
		return false, fmt.Errorf("get mute: %v", err)
	}
	return v.Value, nil
}

// FetchArt downloads encoded cover art. The response must declare its size,
// the size must not exceed MaxArtBytes, and the body must match the declared
// length exactly; anything else fails without a partial buffer escaping.
func (s *Speaker) FetchArt(artURL string) ([]byte, error) {
	resp, err := s.art.Get(artURL)
	if err != nil {
		return nil, fmt.Errorf("fetch art: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch art: HTTP %d", resp.StatusCode)
	}
	declared := resp.ContentLength
	if declared <= 0 || declared > MaxArtBytes {
		return nil, fmt.Errorf("fetch art: bad size %d (max %d)", declared, MaxArtBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxArtBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch art: %v", err)
	}
	if int64(len(data)) != declared {
		return nil, fmt.Errorf("fetch art: short read, got %d of %d bytes", len(data), declared)
	}
	return data, nil
}

// Typed JSON envelopes the speaker expects as the value query parameter.
type typedInt struct {
	Type  string `json:"type"`
	Value int    `json:"i32_"`
}

type typedBool struct {
	Type  string `json:"type"`
	Value bool   `json:"bool_"`
}

type typedSource struct {
	Type   string `json:"type"`
	Source string `json:"kefPhysicalSource"`
}

type controlValue struct {
	Control string `json:"control"`
}

// getValue GETs a path with roles=value and unmarshals the first element of
// the single-element array response into out.
func (s *Speaker) getValue(path string, out interface{}) error {
	q := url.Values{}
	q.Set("path", path)
	q.Set("roles", "value")

	body, err := s.get(s.baseURL + "/getData?" + q.Encode())
	if err != nil {
		return err
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err != nil {
		return fmt.Errorf("malformed response: %v", err)
	}
	if len(arr) == 0 {
		return errors.New("empty response array")
	}
	if err := json.Unmarshal(arr[0], out); err != nil {
		return fmt.Errorf("malformed value object: %v", err)
	}
	return nil
}

// setData GETs the setData endpoint with a JSON envelope in the value
// parameter. All parameters are percent-encoded by url.Values.
func (s *Speaker) setData(path, roles string, value interface{}) error {
	enc, err := json.Marshal(value)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("path", path)
	q.Set("roles", roles)
	q.Set("value", string(enc))

	_, err = s.get(s.baseURL + "/setData?" + q.Encode())
	return err
}

func (s *Speaker) get(u string) ([]byte, error) {
	resp, err := s.http.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
