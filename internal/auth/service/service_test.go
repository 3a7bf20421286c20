package service

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/auth/repository"
	"leadflow_backend/internal/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type testConfig struct {
	loginTTL time.Duration
}

func (c testConfig) GetJWTAccessSecret() string        { return "test-secret" }
func (c testConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (c testConfig) GetRefreshTokenTTL() time.Duration { return 24 * time.Hour }
func (c testConfig) GetLoginTokenTTL() time.Duration   { return c.loginTTL }
func (c testConfig) GetAppBaseURL() string             { return "http://localhost:3000" }

type storedToken struct {
	userID    uuid.UUID
	tokenType string
	expiresAt time.Time
	used      bool
}

type fakeAuthRepo struct {
	mu            sync.Mutex
	usersByEmail  map[string]repository.User
	usersByID     map[uuid.UUID]repository.User
	userTokens    map[string]*storedToken
	refreshTokens map[string]*storedToken
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		usersByEmail:  make(map[string]repository.User),
		usersByID:     make(map[uuid.UUID]repository.User),
		userTokens:    make(map[string]*storedToken),
		refreshTokens: make(map[string]*storedToken),
	}
}

func (f *fakeAuthRepo) UpsertUserByEmail(ctx context.Context, email string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	normalized := strings.ToLower(strings.TrimSpace(email))
	if user, ok := f.usersByEmail[normalized]; ok {
		return user, nil
	}
	user := repository.User{ID: uuid.New(), Email: normalized, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.usersByEmail[normalized] = user
	f.usersByID[user.ID] = user
	return user, nil
}

func (f *fakeAuthRepo) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.usersByID[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (f *fakeAuthRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeAuthRepo) CreateUserToken(ctx context.Context, userID uuid.UUID, tokenHash, tokenType string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userTokens[tokenHash] = &storedToken{userID: userID, tokenType: tokenType, expiresAt: expiresAt}
	return nil
}

func (f *fakeAuthRepo) ConsumeUserToken(ctx context.Context, tokenHash, tokenType string) (uuid.UUID, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.userTokens[tokenHash]
	if !ok || stored.used || stored.tokenType != tokenType {
		return uuid.Nil, time.Time{}, repository.ErrNotFound
	}
	stored.used = true
	return stored.userID, stored.expiresAt, nil
}

func (f *fakeAuthRepo) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshTokens[tokenHash] = &storedToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeAuthRepo) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.refreshTokens[tokenHash]
	if !ok || stored.used {
		return uuid.Nil, time.Time{}, repository.ErrNotFound
	}
	return stored.userID, stored.expiresAt, nil
}

func (f *fakeAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stored, ok := f.refreshTokens[tokenHash]; ok {
		stored.used = true
	}
	return nil
}

func (f *fakeAuthRepo) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.refreshTokens {
		if stored.userID == userID {
			stored.used = true
		}
	}
	return nil
}

// capturingBus records published events synchronously so tests can inspect
// the emailed login URL.
type capturingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *capturingBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *capturingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *capturingBus) Subscribe(eventName string, handler events.Handler) {}

func (b *capturingBus) lastMagicLink(t *testing.T) events.MagicLinkRequested {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if e, ok := b.events[i].(events.MagicLinkRequested); ok {
			return e
		}
	}
	t.Fatal("no MagicLinkRequested event published")
	return events.MagicLinkRequested{}
}

func newTestService(t *testing.T, loginTTL time.Duration) (*Service, *fakeAuthRepo, *capturingBus) {
	t.Helper()
	repo := newFakeAuthRepo()
	bus := &capturingBus{}
	svc := New(repo, testConfig{loginTTL: loginTTL}, bus, logger.New("development"))
	return svc, repo, bus
}

func extractToken(t *testing.T, loginURL string) string {
	t.Helper()
	parsed, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("bad login URL %q: %v", loginURL, err)
	}
	tokenValue := parsed.Query().Get("token")
	if tokenValue == "" {
		t.Fatalf("login URL %q carries no token", loginURL)
	}
	return tokenValue
}

func TestMagicLinkRoundTrip(t *testing.T) {
	svc, _, bus := newTestService(t, 15*time.Minute)
	ctx := context.Background()

	if err := svc.RequestMagicLink(ctx, "Someone@Example.COM"); err != nil {
		t.Fatalf("request magic link: %v", err)
	}

	link := bus.lastMagicLink(t)
	if link.Email != "someone@example.com" {
		t.Fatalf("expected normalized email, got %q", link.Email)
	}

	accessToken, refreshToken, user, err := svc.Redeem(ctx, extractToken(t, link.LoginURL))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if accessToken == "" || refreshToken == "" {
		t.Fatal("expected non-empty session tokens")
	}
	if user.Email != "someone@example.com" {
		t.Fatalf("unexpected user %q", user.Email)
	}
}

func TestMagicLinkTokenIsSingleUse(t *testing.T) {
	svc, _, bus := newTestService(t, 15*time.Minute)
	ctx := context.Background()

	if err := svc.RequestMagicLink(ctx, "one@example.com"); err != nil {
		t.Fatalf("request magic link: %v", err)
	}
	rawToken := extractToken(t, bus.lastMagicLink(t).LoginURL)

	if _, _, _, err := svc.Redeem(ctx, rawToken); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, _, _, err := svc.Redeem(ctx, rawToken); err != ErrTokenInvalid {
		t.Fatalf("second redeem: expected ErrTokenInvalid, got %v", err)
	}
}

func TestMagicLinkTokenExpires(t *testing.T) {
	svc, _, bus := newTestService(t, -1*time.Minute)
	ctx := context.Background()

	if err := svc.RequestMagicLink(ctx, "late@example.com"); err != nil {
		t.Fatalf("request magic link: %v", err)
	}
	rawToken := extractToken(t, bus.lastMagicLink(t).LoginURL)

	if _, _, _, err := svc.Redeem(ctx, rawToken); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRequestMagicLinkRejectsBadEmail(t *testing.T) {
	svc, repo, _ := newTestService(t, 15*time.Minute)

	if err := svc.RequestMagicLink(context.Background(), "not-an-address"); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if len(repo.usersByEmail) != 0 {
		t.Fatal("no account should be created for an invalid address")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, bus := newTestService(t, 15*time.Minute)
	ctx := context.Background()

	if err := svc.RequestMagicLink(ctx, "rotate@example.com"); err != nil {
		t.Fatalf("request magic link: %v", err)
	}
	_, refreshToken, _, err := svc.Redeem(ctx, extractToken(t, bus.lastMagicLink(t).LoginURL))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	accessToken, newRefresh, err := svc.Refresh(ctx, refreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if accessToken == "" || newRefresh == "" || newRefresh == refreshToken {
		t.Fatal("expected a rotated refresh token and new access token")
	}

	// The old token is revoked after rotation.
	if _, _, err := svc.Refresh(ctx, refreshToken); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid for revoked token, got %v", err)
	}
}
