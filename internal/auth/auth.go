// Package auth implements the authentication collaborator: local accounts
// with bcrypt password hashes and JWT session tokens. The session engine is
// pluggable behind the Directory port; the state core only ever sees the
// resulting user identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotSignedIn        = errors.New("not signed in")
)

// Directory is the account store behind the provider. Implementations
// return core.ErrEmailTaken on duplicate registration and core.ErrNotFound
// for unknown emails.
type Directory interface {
	CreateUser(ctx context.Context, u core.User, passwordHash string) error
	UserByEmail(ctx context.Context, email string) (core.User, string, error)
}

// Session is an authenticated session: the signed-in user plus a bearer
// token that proves it until ExpiresAt.
type Session struct {
	User      core.User
	Token     string
	ExpiresAt time.Time
}

// Provider manages the current session and notifies subscribers when it
// changes. A nil session on the change stream means signed out.
type Provider struct {
	dir      Directory
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	current *Session
	subs    map[int]chan *Session
	nextSub int
}

func NewProvider(dir Directory, secret []byte, tokenTTL time.Duration, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Provider{
		dir:      dir,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
		subs:     make(map[int]chan *Session),
	}
}

// SignUp registers a new account and signs it in.
func (p *Provider) SignUp(ctx context.Context, name, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return Session{}, ErrWeakPassword
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Session{}, core.ErrEmptyName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := core.User{ID: core.NewID(), Name: name, Email: email}
	if err := p.dir.CreateUser(ctx, user, string(hash)); err != nil {
		return Session{}, err
	}

	p.logger.InfoContext(ctx, "Registered account", "user_id", user.ID)
	return p.establish(ctx, user)
}

// SignIn verifies the password and establishes a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, hash, err := p.dir.UserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		// Same failure as a wrong password so probing can't tell
		// registered emails apart.
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	p.logger.InfoContext(ctx, "Signed in", "user_id", user.ID)
	return p.establish(ctx, user)
}

func (p *Provider) establish(ctx context.Context, user core.User) (Session, error) {
	expires := time.Now().Add(p.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}

	session := Session{User: user, Token: token, ExpiresAt: expires}

	p.mu.Lock()
	p.current = &session
	p.notifyLocked(&session)
	p.mu.Unlock()
	return session, nil
}

// SignOut drops the current session. Signing out twice is a no-op.
func (p *Provider) SignOut(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return
	}
	p.logger.InfoContext(ctx, "Signed out", "user_id", p.current.User.ID)
	p.current = nil
	p.notifyLocked(nil)
}

// Current returns the active session, or ErrNotSignedIn.
func (p *Provider) Current() (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Session{}, ErrNotSignedIn
	}
	return *p.current, nil
}

// VerifyToken returns the user id a bearer token was issued for.
func (p *Provider) VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Subscribe returns a change stream and its cancel function. Each event is
// the new session, or nil on sign-out. Slow subscribers drop events rather
// than block sign-in.
func (p *Provider) Subscribe() (<-chan *Session, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	ch := make(chan *Session, 4)
	p.subs[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
}

func (p *Provider) notifyLocked(s *Session) {
	for _, ch := range p.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
