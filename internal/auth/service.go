// Package auth is the email/password session provider mounted under
// /api/auth. The rest of the server only sees it through Resolver and its
// http.Handler.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/booklog/booklog/internal/db"
	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const credentialProvider = "credential"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// ClientMeta describes the client opening a session.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// Service issues, resolves and revokes sessions backed by the users,
// accounts and sessions tables.
type Service struct {
	db     *db.DB
	log    *zap.Logger
	secret []byte
	ttl    time.Duration
}

var _ Resolver = (*Service)(nil)

// NewService creates the auth service. Tokens are HS256 JWTs signed with
// secret and valid for ttl.
func NewService(database *db.DB, secret string, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{
		db:     database,
		log:    log,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SignUp creates a user with a credential account and opens a session for it.
func (s *Service) SignUp(ctx context.Context, req bookapi.SignUpRequest, meta ClientMeta) (*Identity, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	password := string(hash)
	email := normalizeEmail(req.Email)

	var (
		user    db.User
		session db.Session
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&db.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}

		now := db.Now()
		user = db.User{
			Name:      strings.TrimSpace(req.Name),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		account := db.Account{
			UserID:     user.ID,
			ProviderID: credentialProvider,
			AccountID:  user.ID,
			Password:   &password,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}

		session = s.newSession(user.ID, meta, now)
		return tx.Create(&session).Error
	})
	if err != nil {
		if !errors.Is(err, ErrEmailTaken) {
			s.log.Error("Failed to sign up", zap.String("email", email), zap.Error(err))
		}
		return nil, "", err
	}

	s.log.Info("User signed up", zap.String("user_id", user.ID))
	return s.issue(&user, &session)
}

// SignIn checks the password of a credential account and opens a new session.
func (s *Service) SignIn(ctx context.Context, req bookapi.SignInRequest, meta ClientMeta) (*Identity, string, error) {
	var account db.Account
	err := s.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = accounts.user_id").
		Where("users.email = ? AND accounts.provider_id = ?", normalizeEmail(req.Email), credentialProvider).
		Take(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if account.Password == nil || account.User == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*account.Password), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	session := s.newSession(account.UserID, meta, db.Now())
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		s.log.Error("Failed to create session", zap.String("user_id", account.UserID), zap.Error(err))
		return nil, "", err
	}

	s.log.Info("User signed in", zap.String("user_id", account.UserID))
	return s.issue(account.User, &session)
}

// SignOut revokes the session the token refers to. Unknown or invalid tokens
// are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sid, ok := s.parseToken(token)
	if !ok {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", sid).Delete(&db.Session{}).Error
}

// Resolve implements Resolver. The token is read from the session cookie or
// a bearer Authorization header.
func (s *Service) Resolve(ctx context.Context, header http.Header) (*Identity, error) {
	sid, ok := s.parseToken(TokenFromHeader(header))
	if !ok {
		return nil, nil
	}

	var session db.Session
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND expires_at > ?", sid, db.Now()).
		Take(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if session.User == nil {
		return nil, nil
	}

	return &Identity{
		User:    toUser(session.User),
		Session: toSession(&session),
	}, nil
}

// PurgeExpiredSessions deletes sessions past their expiry and reports how
// many were removed.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", db.Now()).Delete(&db.Session{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *Service) newSession(userID string, meta ClientMeta, now time.Time) db.Session {
	return db.Session{
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) issue(user *db.User, session *db.Session) (*Identity, string, error) {
	claims := sessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	return &Identity{User: toUser(user), Session: toSession(session)}, token, nil
}

// parseToken returns the session id of a valid, unexpired token.
func (s *Service) parseToken(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", false
	}
	return claims.SessionID, true
}

// TokenFromHeader extracts the session token from the cookie header, falling
// back to "Authorization: Bearer".
func TokenFromHeader(header http.Header) string {
	req := http.Request{Header: header}
	if cookie, err := req.Cookie(bookapi.SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	scheme, token, found := strings.Cut(header.Get("Authorization"), " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUser(u *db.User) bookapi.User {
	return bookapi.User{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toSession(s *db.Session) bookapi.Session {
	return bookapi.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt,
	}
}
