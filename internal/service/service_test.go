package service

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/daybookapp/daybook-server/internal/auth"
	"github.com/daybookapp/daybook-server/internal/media/images"
	"github.com/daybookapp/daybook-server/internal/store"
	"github.com/daybookapp/daybook-server/internal/store/sqlite"
	"github.com/daybookapp/daybook-server/internal/validation"
	"github.com/stretchr/testify/require"
)

// testEnv bundles the services under test with their backing stores.
type testEnv struct {
	store   store.Store
	uploads *images.Storage
	auth    *AuthService
	session *SessionService
	diary   *DiaryService
}

// newTestEnv wires services against a temp-dir sqlite database and uploads
// directory. Everything is cleaned up with the test.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()

	s, err := sqlite.Open(tmpDir+"/test.db", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	uploads, err := images.NewStorage(tmpDir + "/uploads")
	require.NoError(t, err)

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(
		hex.EncodeToString(authKey),
		15*time.Minute,
		30*24*time.Hour,
	)
	require.NoError(t, err)

	validator := validation.New()
	sessionService := NewSessionService(s, tokenService, nil)
	authService := NewAuthService(s, tokenService, sessionService, uploads, validator, nil)
	diaryService := NewDiaryService(s, uploads, validator, nil)

	return &testEnv{
		store:   s,
		uploads: uploads,
		auth:    authService,
		session: sessionService,
		diary:   diaryService,
	}
}
