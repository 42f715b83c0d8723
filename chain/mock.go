package chain

import (
	"context"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/mock"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

// MockClient implements interfaces.ChainClient for testing.
type MockClient struct {
	mock.Mock
}

// CreateKey mocks the CreateKey method.
func (m *MockClient) CreateKey(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// ModuleInfo mocks the ModuleInfo method.
func (m *MockClient) ModuleInfo(ctx context.Context, identity interfaces.ModuleIdentity, netuid int) (interfaces.ModuleInfo, error) {
	args := m.Called(ctx, identity, netuid)
	return args.Get(0).(interfaces.ModuleInfo), args.Error(1)
}

// Register mocks the Register method.
func (m *MockClient) Register(ctx context.Context, identity interfaces.ModuleIdentity, key string, netuid int, ip string, port int) error {
	args := m.Called(ctx, identity, key, netuid, ip, port)
	return args.Error(0)
}

// UpdateModule mocks the UpdateModule method.
func (m *MockClient) UpdateModule(ctx context.Context, identity interfaces.ModuleIdentity, key string, update interfaces.ModuleUpdate) error {
	args := m.Called(ctx, identity, key, update)
	return args.Error(0)
}

// Transfer mocks the Transfer method.
func (m *MockClient) Transfer(ctx context.Context, key string, amount *apd.Decimal, dest string) error {
	args := m.Called(ctx, key, amount, dest)
	return args.Error(0)
}

// Stake mocks the Stake method.
func (m *MockClient) Stake(ctx context.Context, key string, amount *apd.Decimal, dest string) error {
	args := m.Called(ctx, key, amount, dest)
	return args.Error(0)
}

// Unstake mocks the Unstake method.
func (m *MockClient) Unstake(ctx context.Context, key string, amount *apd.Decimal, dest string) error {
	args := m.Called(ctx, key, amount, dest)
	return args.Error(0)
}

// FreeBalance mocks the FreeBalance method.
func (m *MockClient) FreeBalance(ctx context.Context, key string) (*apd.Decimal, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apd.Decimal), args.Error(1)
}
