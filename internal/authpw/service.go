// Package authpw provides username/email and password authentication on top
// of the user and reset-token repositories.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/auth"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/rbac"
	"rfpdesk/api/internal/repo"
	"rfpdesk/api/internal/session"
)

// SessionStore keeps refresh sessions.
type SessionStore interface {
	Save(ctx context.Context, tokenHash string, data session.TokenData, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (session.TokenData, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeUser(ctx context.Context, userID string) (int, error)
}

// Mailer delivers reset links.
type Mailer interface {
	SendPasswordReset(to, userName, resetURL, validFor string) error
}

type Config struct {
	Users       *repo.Users
	ResetTokens *repo.ResetTokens
	Sessions    SessionStore
	Mailer      Mailer // optional
	Logger      *zap.SugaredLogger

	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	BcryptCost int
	AppURL     string
	Now        func() time.Time
}

type Service struct {
	cfg    Config
	secret []byte
	log    *zap.SugaredLogger
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Users == nil || cfg.ResetTokens == nil || cfg.Sessions == nil {
		return nil, errors.New("authpw: users, reset tokens and sessions are required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("authpw: token secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{cfg: cfg, secret: []byte(cfg.Secret), log: log}, nil
}

// Tokens is what a successful sign-up, sign-in or refresh hands back.
type Tokens struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type SignUpRequest struct {
	Username string
	Email    string
	Password string
}

// SignUp registers a user. Username and email are normalized before they are
// validated and reserved; a taken value of either yields identity_exists.
//
// Once the account is stored it stays stored. If issuing tokens fails after
// that, SignUp returns Tokens carrying only UserID together with the error,
// and the caller should send the user to SignIn rather than retry SignUp.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*Tokens, error) {
	username := model.NormalizeIdentity(req.Username)
	email := model.NormalizeIdentity(req.Email)
	if err := model.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := model.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.cfg.Users.Register(ctx, repo.Registration{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         string(rbac.DefaultRole),
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("user signed up", "user_id", user.ID)
	tokens, err := s.issue(ctx, user)
	if err != nil {
		s.log.Warnw("sign-up tokens not issued", "user_id", user.ID, "error", err)
		return &Tokens{UserID: user.ID}, err
	}
	return tokens, nil
}

type SignInRequest struct {
	// Identifier is a username or an email address.
	Identifier string
	Password   string
}

// SignIn checks the password of the user named by username or email. Every
// failure short of a storage error is reported as invalid_credentials.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*Tokens, error) {
	id := model.NormalizeIdentity(req.Identifier)
	if id == "" || req.Password == "" {
		return nil, apperr.InvalidCredentials()
	}

	var (
		user *model.User
		err  error
	)
	if strings.Contains(id, "@") {
		user, err = s.cfg.Users.GetByEmail(ctx, id)
	} else {
		user, err = s.cfg.Users.GetByUsername(ctx, id)
	}
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindValidation {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, apperr.InvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.InvalidCredentials()
	}

	s.cfg.Users.TouchLogin(ctx, user.ID)
	return s.issue(ctx, user)
}

// Refresh rotates a refresh token. The old token is revoked whether or not
// the new one can be issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("refresh token required")
	}
	hash := auth.HashToken(refreshToken)
	data, err := s.cfg.Sessions.Lookup(ctx, hash)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, apperr.Transient("lookup session", err)
	}
	if err := s.cfg.Sessions.Revoke(ctx, hash); err != nil {
		return nil, apperr.Transient("revoke session", err)
	}

	user, err := s.cfg.Users.Get(ctx, data.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, apperr.Unauthorized("account is not active")
	}
	return s.issue(ctx, user)
}

// SignOut revokes one refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.cfg.Sessions.Revoke(ctx, auth.HashToken(refreshToken)); err != nil {
		return apperr.Transient("revoke session", err)
	}
	return nil
}

// Authenticate validates an access token.
func (s *Service) Authenticate(accessToken string) (auth.Claims, error) {
	claims, err := auth.ParseToken(s.secret, accessToken)
	if errors.Is(err, auth.ErrExpiredToken) {
		return auth.Claims{}, apperr.Unauthorized("access token expired")
	}
	if err != nil {
		return auth.Claims{}, apperr.Unauthorized("invalid access token")
	}
	return claims, nil
}

// Authorize reports whether the token holder may perform action.
func (s *Service) Authorize(claims auth.Claims, action rbac.Action) error {
	if !rbac.Can(rbac.Normalize(claims.Role), action) {
		return apperr.Forbidden(fmt.Sprintf("role %s may not %s", claims.Role, action))
	}
	return nil
}

// RequestPasswordReset issues a reset token for the account with email and
// mails the link when a mailer is configured. Unknown or inactive accounts
// get no token and no error. The returned secret is empty in that case.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = model.NormalizeIdentity(email)
	if email == "" {
		return "", nil
	}
	user, err := s.cfg.Users.GetByEmail(ctx, email)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindValidation {
			return "", nil
		}
		return "", err
	}
	if user == nil || !user.IsActive {
		return "", nil
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		return "", apperr.Transient("generate reset token", err)
	}
	if _, err := s.cfg.ResetTokens.Issue(ctx, user.ID, auth.HashToken(secret), s.cfg.ResetTTL); err != nil {
		return "", err
	}

	if s.cfg.Mailer != nil {
		link := s.resetURL(secret)
		if err := s.cfg.Mailer.SendPasswordReset(user.Email, user.Username, link, formatTTL(s.cfg.ResetTTL)); err != nil {
			s.log.Warnw("send password reset failed", "user_id", user.ID, "error", err)
		}
	}
	return secret, nil
}

type ResetPasswordRequest struct {
	Token       string
	NewPassword string
}

// ResetPassword redeems a reset token and sets the new password. Live
// sessions of the account are revoked afterwards.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.Token == "" {
		return apperr.InvalidToken()
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	userID, err := s.cfg.ResetTokens.Redeem(ctx, auth.HashToken(req.Token), hash)
	if err != nil {
		return err
	}

	if n, err := s.cfg.Sessions.RevokeUser(ctx, userID); err != nil {
		s.log.Warnw("revoke sessions after reset failed", "user_id", userID, "error", err)
	} else {
		s.log.Infow("password reset", "user_id", userID, "sessions_revoked", n)
	}
	return nil
}

func (s *Service) issue(ctx context.Context, user *model.User) (*Tokens, error) {
	now := s.cfg.Now()
	access, err := auth.IssueToken(s.secret, user.ID, user.Username, string(rbac.Normalize(user.Role)), now, s.cfg.AccessTTL)
	if err != nil {
		return nil, apperr.Transient("issue access token", err)
	}
	refresh, err := auth.GenerateSecret()
	if err != nil {
		return nil, apperr.Transient("issue refresh token", err)
	}
	data := session.TokenData{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now.UTC(),
	}
	if err := s.cfg.Sessions.Save(ctx, auth.HashToken(refresh), data, now.Add(s.cfg.RefreshTTL)); err != nil {
		return nil, apperr.Transient("save session", err)
	}
	return &Tokens{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.cfg.AccessTTL),
	}, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) resetURL(secret string) string {
	base := strings.TrimRight(s.cfg.AppURL, "/")
	return base + "/reset-password?token=" + url.QueryEscape(secret)
}

func formatTTL(d time.Duration) string {
	switch {
	case d%time.Hour == 0 && d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
