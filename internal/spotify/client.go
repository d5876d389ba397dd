package spotify

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultAPIURL   = "https://api.spotify.com"

	// Refresh this long before the token actually expires so a poll never
	// races the expiry.
	expiryMargin = 5 * time.Minute
)

// ErrDisabled is returned when the music service credentials are not
// configured; callers short-circuit without network I/O.
var ErrDisabled = errors.New("spotify credentials not configured")

// Client maintains a bearer token against the music service and exposes
// now-playing and playback control calls. All methods block for up to one
// HTTP timeout; call them from the I/O goroutine only.
type Client struct {
	clientID     string
	clientSecret string
	refreshToken string

	tokenURL string
	apiURL   string
	http     *http.Client
	now      func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

// NowPlaying is the minimal now-playing view: only the fields the display
// needs are parsed out of a response that ordinarily carries far more.
type NowPlaying struct {
	Title      string
	Artist     string
	CoverURL   string
	Playing    bool
	ProgressMS int
	DurationMS int
}

// NewClient creates a client for the given refresh-token credentials. Empty
// credentials disable the feature. A previously cached access token is
// reused when still valid.
func NewClient(clientID, clientSecret, refreshToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		tokenURL:     defaultTokenURL,
		apiURL:       defaultAPIURL,
		http:         &http.Client{Timeout: timeout},
		now:          time.Now,
	}

	if !c.Enabled() {
		return c
	}

	cache, err := LoadToken()
	if err != nil {
		log.WithError(err).Debug("Failed to load cached token")
		return c
	}
	if cache == nil || cache.ClientID != clientID || !c.now().Before(cache.Expiry) {
		return c
	}
	c.token = &oauth2.Token{
		AccessToken: cache.AccessToken,
		TokenType:   cache.TokenType,
		Expiry:      cache.Expiry,
	}
	log.Debug("Reusing cached access token")
	return c
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.clientID != "" && c.clientSecret != "" && c.refreshToken != ""
}

// ensureToken refreshes the access token when there is none or its computed
// expiry has passed. Exactly one refresh happens per expired call; a valid
// token is never refreshed.
func (c *Client) ensureToken() error {
	if !c.Enabled() {
		return ErrDisabled
	}
	c.mu.Lock()
	valid := c.token != nil && c.now().Before(c.token.Expiry)
	c.mu.Unlock()
	if valid {
		return nil
	}
	return c.refreshAccessToken()
}

// refreshAccessToken exchanges the long-lived refresh token for an access
// token. On failure any previous token is left untouched.
func (c *Client) refreshAccessToken() error {
	creds := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.refreshToken)

	req, err := http.NewRequest(http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("token refresh: %v", err)
	}
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh failed with status: %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("token refresh: failed to parse response: %v", err)
	}
	if tokenResp.AccessToken == "" {
		return errors.New("token refresh: access_token missing in response")
	}

	expiry := c.now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - expiryMargin)
	token := &oauth2.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		Expiry:      expiry,
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if err := SaveToken(&TokenCache{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
		ClientID:    c.clientID,
	}); err != nil {
		log.WithError(err).Debug("Failed to save token cache")
	}

	log.WithField("expiry", expiry).Debug("Access token refreshed")
	return nil
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return c.token.AccessToken
}

// clearToken drops the stored token so the next call refreshes. The disk
// cache goes too, so a restart cannot resurrect a rejected token.
func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
	if err := ClearToken(); err != nil {
		log.WithError(err).Debug("Failed to clear token cache")
	}
}

// GetNowPlaying fetches the current track. The second return is true when
// the service reports no active playback (HTTP 204) — the caller should
// clear the display rather than treat it as an error. On 401 the stored
// token is cleared and refreshed immediately so the next poll succeeds;
// the call still reports failure so the caller keeps its previous state.
func (c *Client) GetNowPlaying() (NowPlaying, bool, error) {
	if err := c.ensureToken(); err != nil {
		return NowPlaying{}, false, err
	}

	req, err := http.NewRequest(http.MethodGet, c.apiURL+"/v1/me/player/currently-playing", nil)
	if err != nil {
		return NowPlaying{}, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken())

	resp, err := c.http.Do(req)
	if err != nil {
		return NowPlaying{}, false, fmt.Errorf("now playing: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		log.Debug("Nothing playing")
		return NowPlaying{}, true, nil
	case http.StatusUnauthorized:
		log.Debug("Token rejected, forcing refresh")
		c.clearToken()
		if err := c.refreshAccessToken(); err != nil {
			log.WithError(err).Debug("Forced token refresh failed")
		}
		return NowPlaying{}, false, errors.New("now playing: token rejected")
	case http.StatusOK:
	default:
		return NowPlaying{}, false, fmt.Errorf("now playing: HTTP %d", resp.StatusCode)
	}

	var raw struct {
		IsPlaying  bool `json:"is_playing"`
		ProgressMS int  `json:"progress_ms"`
		Item       struct {
			Name       string `json:"name"`
			DurationMS int    `json:"duration_ms"`
			Artists    []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
		} `json:"item"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return NowPlaying{}, false, fmt.Errorf("now playing: malformed response: %v", err)
	}

	np := NowPlaying{
		Title:      raw.Item.Name,
		Playing:    raw.IsPlaying,
		ProgressMS: raw.ProgressMS,
		DurationMS: raw.Item.DurationMS,
	}
	if len(raw.Item.Artists) > 0 {
		np.Artist = raw.Item.Artists[0].Name
	}
	// First image is the largest
	if len(raw.Item.Album.Images) > 0 {
		np.CoverURL = raw.Item.Album.Images[0].URL
	}
	if np.Title == "" {
		np.Title = "--"
	}
	if np.Artist == "" {
		np.Artist = "--"
	}
	return np, false, nil
}

// Play starts or resumes playback.
func (c *Client) Play() error { return c.playbackCmd(http.MethodPut, "/v1/me/player/play") }

// Pause pauses playback.
func (c *Client) Pause() error { return c.playbackCmd(http.MethodPut, "/v1/me/player/pause") }

// Next skips to the next track.
func (c *Client) Next() error { return c.playbackCmd(http.MethodPost, "/v1/me/player/next") }

// Previous skips to the previous track.
func (c *Client) Previous() error { return c.playbackCmd(http.MethodPost, "/v1/me/player/previous") }

func (c *Client) playbackCmd(method, path string) error {
	if err := c.ensureToken(); err != nil {
		return err
	}

	req, err := http.NewRequest(method, c.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken())
	req.Header.Set("Content-Length", "0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	return nil
}
