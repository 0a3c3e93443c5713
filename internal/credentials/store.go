package credentials

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/bytedance/sonic"
)

// Well-known keys of the persisted state
const (
	KeyToken   = "auth.token"
	KeyProfile = "auth.profile"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("credential store is closed")

// Store holds the bearer token and the last-known user profile.
type Store interface {
	Put(token string) error
	Get() (string, bool, error)
	PutProfile(profile *types.UserProfile) error
	Profile() (*types.UserProfile, bool, error)
	// Clear removes the token and the profile together.
	Clear() error
	Close() error
}

// kv is the slot interface both backends implement
type kv interface {
	set(key, value string) error
	get(key string) (string, bool, error)
	del(keys ...string) error
}

func putProfile(s kv, profile *types.UserProfile) error {
	if profile == nil {
		return s.del(KeyProfile)
	}
	data, err := sonic.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return s.set(KeyProfile, string(data))
}

func getProfile(s kv) (*types.UserProfile, bool, error) {
	raw, ok, err := s.get(KeyProfile)
	if err != nil || !ok {
		return nil, false, err
	}
	var profile types.UserProfile
	if err := sonic.UnmarshalString(raw, &profile); err != nil {
		return nil, false, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, true, nil
}
