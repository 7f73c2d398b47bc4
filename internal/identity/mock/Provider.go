// Package mock provides a mock implementation of the identity.Provider
// interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"geotrack.dev/geotrack/internal/identity"
)

// MockProvider is a configurable in-memory Provider. By default it
// registers users with sequential identifiers and accepts any previously
// registered credentials.
type MockProvider struct {
	mu sync.Mutex

	// RegisterFunc is called when Register is invoked. If nil, a
	// sequential identifier is issued and the credentials remembered.
	RegisterFunc func(ctx context.Context, email, password, displayName string) (string, error)
	// RegisterError is returned by the default Register behavior when set.
	RegisterError error

	// LoginFunc is called when Login is invoked. If nil, the remembered
	// credentials are checked.
	LoginFunc func(ctx context.Context, email, password string) (string, error)
	// LoginError is returned by the default Login behavior when set.
	LoginError error

	// LogoutError is returned by Logout.
	LogoutError error
	// ResetError is returned by ResetPassword.
	ResetError error

	// ResetCalls tracks the emails passed to ResetPassword.
	ResetCalls []string
	// LogoutCalls tracks the number of Logout invocations.
	LogoutCalls int

	users map[string]mockUser
	next  int
}

type mockUser struct {
	uid      string
	password string
}

// NewMockProvider creates a MockProvider with default behavior.
func NewMockProvider() *MockProvider {
	return &MockProvider{users: make(map[string]mockUser)}
}

// Register implements identity.Provider.
func (m *MockProvider) Register(ctx context.Context, email, password, displayName string) (string, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, displayName)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RegisterError != nil {
		return "", m.RegisterError
	}
	if _, exists := m.users[email]; exists {
		return "", fmt.Errorf("EMAIL_EXISTS")
	}

	m.next++
	uid := fmt.Sprintf("uid-%03d", m.next)
	m.users[email] = mockUser{uid: uid, password: password}
	return uid, nil
}

// Login implements identity.Provider.
func (m *MockProvider) Login(ctx context.Context, email, password string) (string, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoginError != nil {
		return "", m.LoginError
	}
	u, exists := m.users[email]
	if !exists || u.password != password {
		return "", fmt.Errorf("INVALID_LOGIN_CREDENTIALS")
	}
	return u.uid, nil
}

// Logout implements identity.Provider.
func (m *MockProvider) Logout(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LogoutCalls++
	return m.LogoutError
}

// ResetPassword implements identity.Provider.
func (m *MockProvider) ResetPassword(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ResetCalls = append(m.ResetCalls, email)
	return m.ResetError
}

// Ensure MockProvider implements identity.Provider.
var _ identity.Provider = (*MockProvider)(nil)
