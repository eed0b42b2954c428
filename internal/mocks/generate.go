// Package mocks provides mock implementations for testing session authority ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the repository interfaces. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockSessionRepository(ctrl)
//	mockRepo.EXPECT().ListByUser(gomock.Any(), "u1").Return(rows, nil)
package mocks

// Generate mock for SessionRepository interface from internal/ports.
// This creates MockSessionRepository with methods for all SessionRepository
// interface methods: ListByUser, GetByDevice, SetTrusted, DeleteByDevice,
// RecordSignal, StreamChanges
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_repository_mock.go github.com/target/session-authority/internal/ports SessionRepository

// Generate mock for SignalBus interface from internal/ports.
// This creates MockSignalBus with methods: Publish, Subscribe
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=signal_bus_mock.go github.com/target/session-authority/internal/ports SignalBus
