package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	"mercator-hq/mailguard/pkg/config"
)

var (
	// ErrMissingKey is returned when no configured source carries a key.
	ErrMissingKey = errors.New("missing API key")

	// ErrInvalidKey is returned for unknown keys.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrDisabledKey is returned for keys marked disabled.
	ErrDisabledKey = errors.New("API key disabled")
)

// APIKeyInfo describes an accepted key. The key itself is not retained.
type APIKeyInfo struct {
	// Prefix is the first characters of the key, for logs.
	Prefix  string
	UserID  string
	Enabled bool
}

// APIKeyValidator validates API keys. It is safe for concurrent use.
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyInfo
}

// NewAPIKeyValidator builds a validator from configured keys. Key values
// have ${ENV} references expanded. Empty keys, keys without a user and
// duplicate keys are rejected.
func NewAPIKeyValidator(keys []config.APIKeyConfig) (*APIKeyValidator, error) {
	v := &APIKeyValidator{keys: make(map[string]*APIKeyInfo, len(keys))}
	for i, k := range keys {
		key := os.ExpandEnv(k.Key)
		if key == "" {
			return nil, fmt.Errorf("key %d: empty API key", i)
		}
		if k.UserID == "" {
			return nil, fmt.Errorf("key %d: user_id is required", i)
		}
		digest := digestKey(key)
		if _, dup := v.keys[digest]; dup {
			return nil, fmt.Errorf("key %d: duplicate API key", i)
		}
		v.keys[digest] = &APIKeyInfo{
			Prefix:  keyPrefix(key),
			UserID:  k.UserID,
			Enabled: !k.Disabled,
		}
	}
	return v, nil
}

// Validate returns the info of key.
func (v *APIKeyValidator) Validate(key string) (*APIKeyInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[digestKey(key)]
	if !ok {
		return nil, ErrInvalidKey
	}
	if !info.Enabled {
		return nil, ErrDisabledKey
	}
	return info, nil
}

// Len returns the number of configured keys.
func (v *APIKeyValidator) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.keys)
}

// Disable rejects key from now on. It reports whether key was known.
func (v *APIKeyValidator) Disable(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	info, ok := v.keys[digestKey(key)]
	if ok {
		info.Enabled = false
	}
	return ok
}

func digestKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func keyPrefix(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return key[:6] + "***"
}
