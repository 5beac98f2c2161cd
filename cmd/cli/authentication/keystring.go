package authentication

// Token storage for the CLI, kept in the OS keyring.
import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "mangawatch-cli"
	tokenKey    = "auth_tokens"
)

// ErrNotLoggedIn means no credentials are stored.
var ErrNotLoggedIn = errors.New("not logged in: run `mangawatch auth login`")

type StoredCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
	Role         string `json:"role,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

// NewCredentials stamps the access token expiry relative to now.
func NewCredentials(access, refresh, username, role string, expiresIn int64, now time.Time) *StoredCredentials {
	return &StoredCredentials{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     username,
		Role:         role,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second).Unix(),
	}
}

// Expired reports whether the access token is gone or about to expire.
func (c *StoredCredentials) Expired(now time.Time) bool {
	return now.Add(30 * time.Second).Unix() >= c.ExpiresAt
}

func StoreTokens(creds *StoredCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := keyring.Set(serviceName, tokenKey, string(data)); err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}
	return nil
}

func GetTokens() (*StoredCredentials, error) {
	value, err := keyring.Get(serviceName, tokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}

	var creds StoredCredentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	return &creds, nil
}

// DeleteTokens removes stored credentials. Missing credentials are not an error.
func DeleteTokens() error {
	err := keyring.Delete(serviceName, tokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}
