package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionIssuer = "dandi"

// SessionCookie is the cookie that carries the dashboard session token.
const SessionCookie = "dandi_session"

// Session identifies a signed-in dashboard user.
type Session struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// SessionService issues and verifies dashboard session tokens.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns how long issued sessions stay valid.
func (s *SessionService) TTL() time.Duration { return s.ttl }

// Issue creates a new signed token for the given user.
func (s *SessionService) Issue(subject, email string) (string, error) {
	return s.issue(subject, email, s.ttl)
}

func (s *SessionService) issue(subject, email string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("session subject is required")
	}
	now := s.now()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    sessionIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate verifies a token and returns the session it carries.
func (s *SessionService) Validate(tokenStr string) (*Session, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidSession
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	sess := &Session{Subject: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type sessionContextKey struct{}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session attached by WithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey{}).(*Session); ok {
		return s
	}
	return nil
}
