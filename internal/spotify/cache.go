package spotify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
)

// TokenCache is the on-disk form of a refreshed access token. Persisting it
// lets a restart reuse a still-valid token instead of burning a refresh.
type TokenCache struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
	ClientID    string    `json:"client_id"`
}

// getCacheFilePathFunc is a variable that can be overridden for testing
var getCacheFilePathFunc = defaultGetCacheFilePath

func defaultGetCacheFilePath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %v", err)
	}
	return filepath.Join(home, ".deskknob_token.json"), nil
}

// SetCacheFilePathFunc sets the cache file path function (for testing)
func SetCacheFilePathFunc(fn func() (string, error)) {
	getCacheFilePathFunc = fn
}

// LoadToken loads a cached token, returning nil without error when no cache
// exists.
func LoadToken() (*TokenCache, error) {
	cachePath, err := getCacheFilePathFunc()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cachePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %v", err)
	}

	var cache TokenCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %v", err)
	}
	return &cache, nil
}

// SaveToken writes the token cache to disk.
func SaveToken(cache *TokenCache) error {
	cachePath, err := getCacheFilePathFunc()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %v", err)
	}
	return nil
}

// ClearToken removes the cached token.
func ClearToken() error {
	cachePath, err := getCacheFilePathFunc()
	if err != nil {
		return err
	}
	if err := os.Remove(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear token cache: %v", err)
	}
	return nil
}
