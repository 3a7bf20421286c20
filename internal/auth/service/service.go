package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"leadflow_backend/internal/auth/repository"
	"leadflow_backend/internal/auth/token"
	"leadflow_backend/internal/events"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrTokenInvalid = errors.New("token invalid")
var ErrTokenExpired = errors.New("token expired")
var ErrInvalidEmail = errors.New("invalid email address")

const accessTokenType = "access"

type Service struct {
	repo repository.AuthRepository
	cfg  config.AuthServiceConfig
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.AuthRepository, cfg config.AuthServiceConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, bus: bus, log: log}
}

// RequestMagicLink creates the account on first sight and emails a one-time
// sign-in link. The caller cannot tell whether the address was already known;
// the endpoint always reports success.
func (s *Service) RequestMagicLink(ctx context.Context, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(normalized); err != nil {
		return ErrInvalidEmail
	}

	user, err := s.repo.UpsertUserByEmail(ctx, normalized)
	if err != nil {
		return err
	}

	rawToken, tokenHash, err := token.NewLoginToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.cfg.GetLoginTokenTTL())
	if err := s.repo.CreateUserToken(ctx, user.ID, tokenHash, repository.TokenTypeLogin, expiresAt); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.MagicLinkRequested{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
		LoginURL:  s.buildURL("/auth/callback", rawToken),
	})
	s.log.AuthEvent("magic_link_requested", user.Email, true, "")

	return nil
}

// Redeem exchanges a magic-link token for a session: an access JWT plus a
// rotating refresh token. Tokens are single-use and expire.
func (s *Service) Redeem(ctx context.Context, rawToken string) (string, string, repository.User, error) {
	userID, expiresAt, err := s.repo.ConsumeUserToken(ctx, token.Hash(rawToken), repository.TokenTypeLogin)
	if err != nil {
		return "", "", repository.User{}, ErrTokenInvalid
	}

	if time.Now().After(expiresAt) {
		return "", "", repository.User{}, ErrTokenExpired
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", repository.User{}, ErrTokenInvalid
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.DatabaseError("touch last login", err)
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return "", "", repository.User{}, err
	}

	s.bus.Publish(ctx, events.UserSignedIn{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
	})
	s.log.AuthEvent("magic_link_redeemed", user.Email, true, "")

	return accessToken, refreshToken, user, nil
}

// Refresh rotates the refresh token and issues a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	hash := token.Hash(refreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return "", "", ErrTokenInvalid
	}

	if time.Now().After(expiresAt) {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return "", "", ErrTokenExpired
	}

	_ = s.repo.RevokeRefreshToken(ctx, hash)
	return s.issueTokens(ctx, userID)
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.Hash(refreshToken))
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) issueTokens(ctx context.Context, userID uuid.UUID) (string, string, error) {
	accessToken, err := s.signJWT(userID, s.cfg.GetAccessTokenTTL())
	if err != nil {
		return "", "", err
	}

	rawRefresh, refreshHash, err := token.NewRefreshToken()
	if err != nil {
		return "", "", err
	}

	expiresAt := time.Now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.repo.CreateRefreshToken(ctx, userID, refreshHash, expiresAt); err != nil {
		return "", "", err
	}

	return accessToken, rawRefresh, nil
}

func (s *Service) signJWT(userID uuid.UUID, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"type": accessTokenType,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func (s *Service) buildURL(path string, tokenValue string) string {
	base := strings.TrimRight(s.cfg.GetAppBaseURL(), "/")
	return base + path + "?token=" + tokenValue
}
