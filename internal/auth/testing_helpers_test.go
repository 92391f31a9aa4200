package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) ValidateToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockBackend) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockBackend) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return m.Called(ctx, resetToken, newPassword).Error(0)
}

func (m *mockBackend) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return m.Called(ctx, currentPassword, newPassword).Error(0)
}

// mintToken signs claims with a throwaway key; the console never verifies it.
func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return token
}

func ownerToken(t *testing.T, exp time.Time) string {
	return mintToken(t, jwt.MapClaims{
		"userId":   "42",
		"username": "ana",
		"roleId":   2,
		"roleName": "Propietario",
		"exp":      exp.Unix(),
	})
}

type memoryStore struct {
	token string
	patch IdentityPatch
}

func (m *memoryStore) Token(context.Context) string { return m.token }

func (m *memoryStore) SetToken(_ context.Context, token string) error {
	m.token = token
	m.patch = IdentityPatch{}
	return nil
}

func (m *memoryStore) ClearToken(context.Context) error {
	m.token = ""
	m.patch = IdentityPatch{}
	return nil
}

func (m *memoryStore) IdentityPatch(context.Context) IdentityPatch { return m.patch }

func (m *memoryStore) SetIdentityPatch(_ context.Context, patch IdentityPatch) error {
	m.patch = patch
	return nil
}
