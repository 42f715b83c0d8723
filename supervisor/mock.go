package supervisor

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSupervisor implements interfaces.ProcessSupervisor for testing.
type MockSupervisor struct {
	mock.Mock
}

// Start mocks the Start method.
func (m *MockSupervisor) Start(ctx context.Context, name string, argv []string, env map[string]string) error {
	args := m.Called(ctx, name, argv, env)
	return args.Error(0)
}

// Delete mocks the Delete method.
func (m *MockSupervisor) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
