package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCloner is a mock implementation of Cloner for testing.
type MockCloner struct {
	mock.Mock
}

// Clone mocks the Clone method.
func (m *MockCloner) Clone(ctx context.Context, url, dir string) error {
	args := m.Called(ctx, url, dir)
	return args.Error(0)
}
