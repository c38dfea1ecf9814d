package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/spoolsmith/spoolsmith/internal/platform/driverops"
)

// MockBackend is a mock implementation of the driverops.Backend interface.
// It can be used across all tests that need to mock platform driver operations.
type MockBackend struct {
	mock.Mock
}

// Name returns the mock backend name.
func (m *MockBackend) Name() string {
	args := m.Called()
	return args.String(0)
}

// Probe checks mock device reachability.
func (m *MockBackend) Probe(ctx context.Context, dev driverops.Device) error {
	args := m.Called(ctx, dev)
	return args.Error(0)
}

// StageDriver stages a mock driver definition.
func (m *MockBackend) StageDriver(ctx context.Context, defPath string) (driverops.StagedDriver, error) {
	args := m.Called(ctx, defPath)
	staged, _ := args.Get(0).(driverops.StagedDriver)
	return staged, args.Error(1)
}

// RegisterDriver registers a mock staged driver.
func (m *MockBackend) RegisterDriver(ctx context.Context, driverName string, staged driverops.StagedDriver) error {
	args := m.Called(ctx, driverName, staged)
	return args.Error(0)
}

// EnsurePort ensures a mock port exists.
func (m *MockBackend) EnsurePort(ctx context.Context, portName string, dev driverops.Device) (string, error) {
	args := m.Called(ctx, portName, dev)
	return args.String(0), args.Error(1)
}

// EnsureQueue ensures a mock queue exists.
func (m *MockBackend) EnsureQueue(ctx context.Context, queueName, portID, driverName string) error {
	args := m.Called(ctx, queueName, portID, driverName)
	return args.Error(0)
}

// VerifyQueue verifies a mock queue binding.
func (m *MockBackend) VerifyQueue(ctx context.Context, queueName, driverName string) error {
	args := m.Called(ctx, queueName, driverName)
	return args.Error(0)
}

// NewMockBackend creates a new MockBackend that reports a generic name.
func NewMockBackend() *MockBackend {
	m := &MockBackend{}
	m.On("Name").Return("mock")
	return m
}

// WithStagedDriver configures the mock to return a specific staged driver.
func (m *MockBackend) WithStagedDriver(publishedID string) *MockBackend {
	m.On("StageDriver", mock.Anything, mock.Anything).
		Return(driverops.StagedDriver{PublishedID: publishedID}, nil)
	return m
}

// WithPort configures the mock to return a specific port identity.
func (m *MockBackend) WithPort(portID string) *MockBackend {
	m.On("EnsurePort", mock.Anything, mock.Anything, mock.Anything).Return(portID, nil)
	return m
}
