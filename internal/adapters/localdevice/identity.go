// Package localdevice resolves the stable identity of this physical
// device/installation from local persistent storage. It is the sole source of
// "which session row is mine" and is read synchronously at startup, before
// any network round trip; the backing store's is_current flag is advisory
// only.
package localdevice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/target/session-authority/internal/ports"
)

const identityFileMode = 0o600

// Identity is the locally persisted device fingerprint. The id is established
// once at first launch and survives sign-in/sign-out cycles.
type Identity struct {
	id string
}

// Load reads the device id from path, creating and persisting a fresh one on
// first launch. The returned Identity never performs I/O again.
func Load(path string) (*Identity, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("device identity path is required")
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return &Identity{id: id}, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read device identity: %w", err)
	}

	id := uuid.NewString()
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o700); mkErr != nil {
		return nil, fmt.Errorf("create device identity dir: %w", mkErr)
	}
	if writeErr := os.WriteFile(path, []byte(id+"\n"), identityFileMode); writeErr != nil {
		return nil, fmt.Errorf("persist device identity: %w", writeErr)
	}
	return &Identity{id: id}, nil
}

// Static wraps a fixed device id (useful for tests and for callers that carry
// the fingerprint in from elsewhere).
func Static(id string) *Identity {
	return &Identity{id: id}
}

// DeviceStableID returns the locally persisted device fingerprint.
func (i *Identity) DeviceStableID() string {
	return i.id
}

var _ ports.DeviceIdentity = (*Identity)(nil)
