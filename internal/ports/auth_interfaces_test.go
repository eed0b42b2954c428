package ports_test

import (
	"testing"

	mocksauth "github.com/target/session-authority/internal/mocks/auth"
	"github.com/target/session-authority/internal/ports"
)

// This test only verifies that our test doubles conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.SessionTokenStore = (*mocksauth.MemoryTokenStore)(nil)
	var _ ports.RoleSource = (*mocksauth.StubRoleSource)(nil)
	var _ ports.ProfileSource = (*mocksauth.StubProfileSource)(nil)
}
