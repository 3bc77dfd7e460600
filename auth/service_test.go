package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/auth-service/auth"
	"github.com/inkwell-cms/auth-service/history"
	historyfakes "github.com/inkwell-cms/auth-service/history/repofakes"
	"github.com/inkwell-cms/auth-service/internal/autherrors"
	sessionfakes "github.com/inkwell-cms/auth-service/sessions/repofakes"
	"github.com/inkwell-cms/auth-service/token"
	"github.com/inkwell-cms/auth-service/users"
	userfakes "github.com/inkwell-cms/auth-service/users/repofake"
)

const (
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
	testFingerprint  = "fp-device-1"
	testIPAddress    = "203.0.113.7"
	testUserAgent    = "Mozilla/5.0 (test)"

	sessionLifetime  = 7 * 24 * time.Hour
	sessionExtension = 14 * 24 * time.Hour
)

// testFixture holds all test dependencies
type testFixture struct {
	userRepo    *userfakes.FakeUserRepo
	sessionRepo *sessionfakes.FakeSessionRepo
	historyRepo *historyfakes.FakeHistoryRepo
	recorder    *history.Recorder
	tokens      *token.Service
	service     *auth.Service
	now         time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		userRepo:    userfakes.NewFakeUserRepo(),
		sessionRepo: sessionfakes.NewFakeSessionRepo(),
		historyRepo: historyfakes.NewFakeHistoryRepo(),
		now:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.sessionRepo.SetNowFunc(f.nowFunc)

	// Refresh-envelope expiry kept beyond the session lifetime so the
	// session store, not the token envelope, decides hard expiry.
	tokens, err := token.NewService("signing-secret", "refresh-secret", "kdf-salt",
		token.WithNowFunc(f.nowFunc),
		token.WithExpiry(15*time.Minute, 30*24*time.Hour),
	)
	require.NoError(t, err)
	f.tokens = tokens

	f.recorder = history.NewRecorder(f.historyRepo, zerolog.Nop(),
		history.WithRecorderNowFunc(f.nowFunc),
	)
	t.Cleanup(f.recorder.Close)

	service, err := auth.NewService(
		auth.Repos{Users: f.userRepo, Sessions: f.sessionRepo, History: f.historyRepo},
		tokens,
		f.recorder,
		auth.WithNowTime(f.nowFunc),
		auth.WithSessionLifetimes(sessionLifetime, sessionExtension),
	)
	require.NoError(t, err)
	f.service = service

	return f
}

func (f *testFixture) nowFunc() time.Time { return f.now }

// advance moves the fixture clock; every collaborator shares it.
func (f *testFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *testFixture) createTestUser(t *testing.T, mutate ...func(*users.User)) *users.User {
	t.Helper()

	hash, err := users.HashPassword(testUserPassword)
	require.NoError(t, err)

	user := &users.User{
		Email:        testUserEmail,
		Name:         "John Doe",
		PasswordHash: hash,
		Roles:        []users.RoleType{users.RoleReader},
		Verified:     true,
		Status:       users.StatusActive,
		CreatedAt:    f.now,
	}
	for _, m := range mutate {
		m(user)
	}
	require.NoError(t, f.userRepo.Upsert(context.Background(), user))
	return user
}

func (f *testFixture) login(t *testing.T) *auth.LoginResult {
	t.Helper()
	result, err := f.service.Login(context.Background(), auth.LoginParams{
		Email:       testUserEmail,
		Password:    testUserPassword,
		Fingerprint: testFingerprint,
		Client: auth.ClientInfo{
			IPAddress: testIPAddress,
			UserAgent: testUserAgent,
		},
	})
	require.NoError(t, err)
	return result
}

func requireCode(t *testing.T, err error, code autherrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, autherrors.CodeOf(err))
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t)
	user := f.createTestUser(t)

	result := f.login(t)

	require.Equal(t, user.ID, result.User.ID)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.NotEmpty(t, result.SessionID)
	require.Equal(t, testFingerprint, result.Fingerprint)

	// Both tokens are bound to the session and its fingerprint.
	accessPayload, err := f.service.VerifyAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.SessionID, accessPayload.SessionID)
	require.Equal(t, testFingerprint, accessPayload.Fingerprint)
	require.Equal(t, []string{"reader"}, accessPayload.Roles)

	session, ok := f.sessionRepo.Get(result.SessionID)
	require.True(t, ok)
	require.True(t, session.Active)
	require.Equal(t, result.RefreshToken, session.RefreshToken)
	require.Equal(t, testIPAddress, session.IPAddress)
	require.Equal(t, f.now.Add(sessionLifetime), session.ExpiresAt)
}

func TestLoginWrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	_, err := f.service.Login(context.Background(), auth.LoginParams{
		Email:       testUserEmail,
		Password:    "wrong-password",
		Fingerprint: testFingerprint,
	})
	requireCode(t, err, autherrors.CodeAuthError)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), auth.LoginParams{
		Email:       "nobody@example.com",
		Password:    testUserPassword,
		Fingerprint: testFingerprint,
	})
	requireCode(t, err, autherrors.CodeAuthError)
}

func TestLoginRequiresFingerprint(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	_, err := f.service.Login(context.Background(), auth.LoginParams{
		Email:    testUserEmail,
		Password: testUserPassword,
	})
	requireCode(t, err, autherrors.CodeTokenDenied)
}

func TestLoginAccountGates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*users.User)
		code   autherrors.Code
	}{
		{"unverified email", func(u *users.User) { u.Verified = false }, autherrors.CodeEmailVerification},
		{"suspended account", func(u *users.User) { u.Status = users.StatusSuspended }, autherrors.CodeAccountSuspended},
		{"inactive account", func(u *users.User) { u.Status = users.StatusInactive }, autherrors.CodeAccountInactive},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.createTestUser(t, tc.mutate)

			_, err := f.service.Login(context.Background(), auth.LoginParams{
				Email:       testUserEmail,
				Password:    testUserPassword,
				Fingerprint: testFingerprint,
			})
			requireCode(t, err, tc.code)
		})
	}
}

func TestLoginRecordsHistory(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	f.login(t)
	_, err := f.service.Login(context.Background(), auth.LoginParams{
		Email:       testUserEmail,
		Password:    "wrong-password",
		Fingerprint: testFingerprint,
	})
	requireCode(t, err, autherrors.CodeAuthError)

	f.recorder.Close() // drain the buffer

	entries := f.historyRepo.All()
	require.Len(t, entries, 2)

	successes := 0
	for _, e := range entries {
		require.Equal(t, testUserEmail, e.Email)
		require.NotEmpty(t, e.ID)
		if e.Success {
			successes++
		}
	}
	require.Equal(t, 1, successes)
}

func TestValidateSession(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	validated, err := f.service.ValidateSession(context.Background(), auth.ValidateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
		AccessToken:       result.AccessToken,
		IPAddress:         testIPAddress,
	})
	require.NoError(t, err)

	// Validation never rotates: the stored token comes back unchanged.
	require.Equal(t, result.RefreshToken, validated.RefreshToken)
	session, ok := f.sessionRepo.Get(result.SessionID)
	require.True(t, ok)
	require.Equal(t, result.RefreshToken, session.RefreshToken)
}

func TestValidateSessionMissingCookies(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	_, err := f.service.ValidateSession(context.Background(), auth.ValidateParams{
		FingerprintCookie: testFingerprint,
		AccessToken:       result.AccessToken,
	})
	requireCode(t, err, autherrors.CodeTokenDenied)

	_, err = f.service.ValidateSession(context.Background(), auth.ValidateParams{
		RefreshCookie: result.RefreshToken,
		AccessToken:   result.AccessToken,
	})
	requireCode(t, err, autherrors.CodeTokenDenied)
}

func TestValidateSessionFingerprintMismatch(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	_, err := f.service.ValidateSession(context.Background(), auth.ValidateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: "fp-stolen",
		AccessToken:       result.AccessToken,
		IPAddress:         testIPAddress,
	})
	requireCode(t, err, autherrors.CodeTokenDenied)

	// The mismatch happened before ownership was proven, so the session
	// itself survives.
	session, ok := f.sessionRepo.Get(result.SessionID)
	require.True(t, ok)
	require.True(t, session.Active)
}

func TestValidateSessionCrossBindingHijack(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	victim := f.login(t)
	attacker := f.login(t)

	// Attacker pairs the victim's refresh cookie with their own access
	// token. Fingerprints differ between the two tokens: hijack signal.
	_, err := f.service.ValidateSession(context.Background(), auth.ValidateParams{
		RefreshCookie:     victim.RefreshToken,
		FingerprintCookie: testFingerprint,
		AccessToken:       mintAccessToken(t, f, attacker.SessionID, "fp-other"),
		IPAddress:         testIPAddress,
	})
	requireCode(t, err, autherrors.CodeTokenDenied)

	// The victim session was deactivated, so even its legitimate owner
	// can no longer rotate it.
	session, ok := f.sessionRepo.Get(victim.SessionID)
	require.True(t, ok)
	require.False(t, session.Active)

	_, err = f.service.RotateSession(context.Background(), auth.RotateParams{
		RefreshCookie:     victim.RefreshToken,
		FingerprintCookie: testFingerprint,
	})
	requireCode(t, err, autherrors.CodeTokenExpired)
}

func TestValidateSessionIPChange(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	_, err := f.service.ValidateSession(context.Background(), auth.ValidateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
		AccessToken:       result.AccessToken,
		IPAddress:         "198.51.100.99",
	})
	requireCode(t, err, autherrors.CodeTokenDenied)

	session, ok := f.sessionRepo.Get(result.SessionID)
	require.True(t, ok)
	require.False(t, session.Active)
}

func TestValidateSessionExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	f.advance(16 * time.Minute)

	_, err := f.service.ValidateSession(context.Background(), auth.ValidateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
		AccessToken:       result.AccessToken,
		IPAddress:         testIPAddress,
	})
	requireCode(t, err, autherrors.CodeTokenExpired)
}

func TestRotateSession(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	f.advance(10 * time.Minute)

	rotated, err := f.service.RotateSession(context.Background(), auth.RotateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, result.RefreshToken, rotated.RefreshToken)

	// New tokens stay bound to the original session and fingerprint.
	payload, err := f.service.VerifyAccessToken(rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.SessionID, payload.SessionID)
	require.Equal(t, testFingerprint, payload.Fingerprint)

	// Rotation extended the session and touched its activity time.
	session, ok := f.sessionRepo.Get(result.SessionID)
	require.True(t, ok)
	require.Equal(t, rotated.RefreshToken, session.RefreshToken)
	require.Equal(t, f.now.Add(sessionExtension), session.ExpiresAt)
	require.Equal(t, f.now, session.LastActivityAt)
}

func TestRotateSessionTamperedCookie(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	// Flip one hex character of the refresh cookie.
	tampered := []byte(result.RefreshToken)
	if tampered[0] == '0' {
		tampered[0] = '1'
	} else {
		tampered[0] = '0'
	}

	_, err := f.service.RotateSession(context.Background(), auth.RotateParams{
		RefreshCookie:     string(tampered),
		FingerprintCookie: testFingerprint,
	})
	requireCode(t, err, autherrors.CodeInvalidToken)

	// Nothing about the session changed.
	session, ok := f.sessionRepo.Get(result.SessionID)
	require.True(t, ok)
	require.True(t, session.Active)
	require.Equal(t, result.RefreshToken, session.RefreshToken)
}

func TestRotateSessionSingleUse(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	_, err := f.service.RotateSession(context.Background(), auth.RotateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
	})
	require.NoError(t, err)

	// Replaying the consumed token reads as an expired session.
	_, err = f.service.RotateSession(context.Background(), auth.RotateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
	})
	requireCode(t, err, autherrors.CodeTokenExpired)
}

func TestRotateSessionConcurrentRacers(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.RotateSession(context.Background(), auth.RotateParams{
				RefreshCookie:     result.RefreshToken,
				FingerprintCookie: testFingerprint,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
}

func TestRotateSessionSuspendedMidSession(t *testing.T) {
	f := setupTestFixture(t)
	user := f.createTestUser(t)
	result := f.login(t)

	user.Status = users.StatusSuspended
	require.NoError(t, f.userRepo.Upsert(context.Background(), user))

	_, err := f.service.RotateSession(context.Background(), auth.RotateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
	})
	requireCode(t, err, autherrors.CodeAccountSuspended)
}

func TestRotateSessionAfterHardExpiry(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	f.advance(sessionLifetime + time.Hour)

	_, err := f.service.RotateSession(context.Background(), auth.RotateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
	})
	requireCode(t, err, autherrors.CodeTokenExpired)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)
	result := f.login(t)

	f.service.Logout(context.Background(), result.RefreshToken)

	session, ok := f.sessionRepo.Get(result.SessionID)
	require.True(t, ok)
	require.False(t, session.Active)

	// Idempotent: repeating with the same or an empty cookie is fine.
	f.service.Logout(context.Background(), result.RefreshToken)
	f.service.Logout(context.Background(), "")

	_, err := f.service.ValidateSession(context.Background(), auth.ValidateParams{
		RefreshCookie:     result.RefreshToken,
		FingerprintCookie: testFingerprint,
		AccessToken:       result.AccessToken,
		IPAddress:         testIPAddress,
	})
	requireCode(t, err, autherrors.CodeTokenExpired)
}

func TestLoginWithProviderProvisionsUser(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.service.LoginWithProvider(context.Background(), auth.ProviderLoginParams{
		Provider: "google",
		Email:    "new.user@example.com",
		Name:     "New User",
		Client:   auth.ClientInfo{IPAddress: testIPAddress},
	})
	require.NoError(t, err)

	require.Equal(t, "new.user@example.com", result.User.Email)
	require.True(t, result.User.Verified)
	require.Equal(t, []users.RoleType{users.RoleReader}, result.User.Roles)
	require.NotEmpty(t, result.Fingerprint) // generated when the client sent none

	stored, err := f.userRepo.GetByEmail(context.Background(), "new.user@example.com")
	require.NoError(t, err)
	require.Equal(t, result.User.ID, stored.ID)

	session, ok := f.sessionRepo.Get(result.SessionID)
	require.True(t, ok)
	require.Equal(t, "google", session.LoginType)
}

func TestLoginWithProviderKeepsFingerprint(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.service.LoginWithProvider(context.Background(), auth.ProviderLoginParams{
		Provider:    "google",
		Email:       "new.user@example.com",
		Name:        "New User",
		Fingerprint: testFingerprint,
		Client:      auth.ClientInfo{IPAddress: testIPAddress},
	})
	require.NoError(t, err)

	// A fingerprint supplied by the client is bound as-is, not replaced.
	require.Equal(t, testFingerprint, result.Fingerprint)

	accessPayload, err := f.service.VerifyAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testFingerprint, accessPayload.Fingerprint)
}

func TestLoginWithProviderSuspendedUser(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, func(u *users.User) { u.Status = users.StatusSuspended })

	_, err := f.service.LoginWithProvider(context.Background(), auth.ProviderLoginParams{
		Provider: "google",
		Email:    testUserEmail,
	})
	requireCode(t, err, autherrors.CodeAccountSuspended)
}

func mintAccessToken(t *testing.T, f *testFixture, sessionID, fingerprint string) string {
	t.Helper()
	access, err := f.tokens.GenAccessToken(token.Payload{
		SessionID:   sessionID,
		UserID:      "user-x",
		Fingerprint: fingerprint,
	})
	require.NoError(t, err)
	return access
}
