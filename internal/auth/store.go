package auth

import (
	"context"
	"encoding/json"

	"github.com/valhalla/console/internal/shared"
)

const (
	// TokenSessionKey is where the backend token lives in the server session.
	TokenSessionKey = "auth_token"
	// IdentityPatchSessionKey holds local identity edits layered over the
	// token claims.
	IdentityPatchSessionKey = "auth_identity_patch"
)

// TokenStore persists the backend token, and identity edits made while it is
// live, between requests. Setting or clearing the token drops the edits.
type TokenStore interface {
	Token(ctx context.Context) string
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	IdentityPatch(ctx context.Context) IdentityPatch
	SetIdentityPatch(ctx context.Context, patch IdentityPatch) error
}

// SessionTokenStore keeps the token in the Redis-backed session record.
type SessionTokenStore struct {
	sess *shared.Session
}

// NewSessionTokenStore binds a store to one session.
func NewSessionTokenStore(sess *shared.Session) *SessionTokenStore {
	return &SessionTokenStore{sess: sess}
}

// Token returns the stored token or "".
func (s *SessionTokenStore) Token(context.Context) string {
	return s.sess.Get(TokenSessionKey)
}

// SetToken stores token and rotates the session ID.
func (s *SessionTokenStore) SetToken(_ context.Context, token string) error {
	if s.sess == nil {
		return shared.ErrSessionMissing
	}
	s.sess.Renew()
	s.sess.Set(TokenSessionKey, token)
	s.sess.Delete(IdentityPatchSessionKey)
	return nil
}

// ClearToken drops the token and the bound user.
func (s *SessionTokenStore) ClearToken(context.Context) error {
	if s.sess == nil {
		return nil
	}
	s.sess.Delete(TokenSessionKey)
	s.sess.Delete(IdentityPatchSessionKey)
	s.sess.SetUser("")
	return nil
}

// IdentityPatch returns the stored edits. An unreadable record counts as none.
func (s *SessionTokenStore) IdentityPatch(context.Context) IdentityPatch {
	var patch IdentityPatch
	raw := s.sess.Get(IdentityPatchSessionKey)
	if raw == "" {
		return patch
	}
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return IdentityPatch{}
	}
	return patch
}

// SetIdentityPatch replaces the stored edits.
func (s *SessionTokenStore) SetIdentityPatch(_ context.Context, patch IdentityPatch) error {
	if s.sess == nil {
		return shared.ErrSessionMissing
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	s.sess.Set(IdentityPatchSessionKey, string(data))
	return nil
}
