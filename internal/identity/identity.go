// Package identity signs users up and in, issues session tokens, and tells
// subscribers whenever the signed-in identity changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

var (
	ErrInvalidInput       = errors.New("identity: invalid input")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrUnauthorized       = errors.New("identity: unauthorized")
)

const minPasswordLength = 8

// Handle identifies the signed-in user.
type Handle struct {
	UserID string
	Email  string
	Admin  bool
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	Handle    Handle
	ExpiresAt time.Time
}

// Change is delivered to subscribers after every sign-up, sign-in and
// sign-out.
type Change struct {
	Handle   Handle
	SignedIn bool
}

// Options configures a Provider.
type Options struct {
	Secret      string
	TokenTTL    time.Duration
	BcryptCost  int
	AdminEmails []string
	Now         func() time.Time
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Provider issues HS256 tokens for users stored in storage.Users.
type Provider struct {
	users       storage.Users
	revocations Revocations
	logger      *slog.Logger

	secret []byte
	ttl    time.Duration
	cost   int
	admins map[string]struct{}
	now    func() time.Time

	mu          sync.Mutex
	nextSubID   int
	subscribers []subscriber
}

type subscriber struct {
	id int
	fn func(Change)
}

// NewProvider validates opts and returns a Provider. A nil revocations store
// falls back to an in-process one.
func NewProvider(users storage.Users, revocations Revocations, opts Options, logger *slog.Logger) (*Provider, error) {
	if len(opts.Secret) < 32 {
		return nil, fmt.Errorf("identity: secret must be at least 32 characters")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	if revocations == nil {
		revocations = NewMemoryRevocations(opts.Now)
	}

	admins := make(map[string]struct{}, len(opts.AdminEmails))
	for _, email := range opts.AdminEmails {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}

	return &Provider{
		users:       users,
		revocations: revocations,
		logger:      logger,
		secret:      []byte(opts.Secret),
		ttl:         opts.TokenTTL,
		cost:        opts.BcryptCost,
		admins:      admins,
		now:         opts.Now,
	}, nil
}

// SignUp registers a new account and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return Session{}, fmt.Errorf("identity: hash password: %w", err)
	}

	user, err := p.users.Create(ctx, storage.UserCreate{Email: email, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("identity: create user: %w", err)
	}

	p.logger.Info("user signed up", "user_id", user.ID)
	return p.issue(user)
}

// SignIn checks credentials and returns a fresh session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := p.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("identity: get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return p.issue(user)
}

// SignOut revokes the token until it would have expired anyway.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	c, err := p.parse(token)
	if err != nil {
		return err
	}

	if err := p.revocations.Revoke(ctx, c.ID, c.ExpiresAt.Time); err != nil {
		return fmt.Errorf("identity: revoke token: %w", err)
	}

	p.notify(Change{Handle: p.handle(c.Subject, c.Email), SignedIn: false})
	return nil
}

// Authenticate resolves a token to the user it was issued for. Revoked
// tokens and tokens of deleted users are rejected.
func (p *Provider) Authenticate(ctx context.Context, token string) (Handle, error) {
	c, err := p.parse(token)
	if err != nil {
		return Handle{}, err
	}

	revoked, err := p.revocations.IsRevoked(ctx, c.ID)
	if err != nil {
		return Handle{}, fmt.Errorf("identity: check revocation: %w", err)
	}
	if revoked {
		return Handle{}, ErrUnauthorized
	}

	user, err := p.users.GetByID(ctx, c.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Handle{}, ErrUnauthorized
		}
		return Handle{}, fmt.Errorf("identity: get user: %w", err)
	}

	return p.handle(user.ID, user.Email), nil
}

// Subscribe registers fn to receive identity changes. Callbacks run
// synchronously, in registration order, after the change has happened. The
// returned func unregisters fn.
func (p *Provider) Subscribe(fn func(Change)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextSubID++
	id := p.nextSubID
	p.subscribers = append(p.subscribers, subscriber{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subscribers {
			if s.id == id {
				p.subscribers = append(p.subscribers[:i:i], p.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (p *Provider) issue(user storage.User) (Session, error) {
	now := p.now()
	expires := now.Add(p.ttl)

	c := claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		return Session{}, fmt.Errorf("identity: sign token: %w", err)
	}

	session := Session{
		Token:     signed,
		Handle:    p.handle(user.ID, user.Email),
		ExpiresAt: expires.Truncate(time.Second),
	}
	p.notify(Change{Handle: session.Handle, SignedIn: true})
	return session, nil
}

func (p *Provider) parse(token string) (*claims, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrUnauthorized
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" || c.ID == "" {
		return nil, ErrUnauthorized
	}
	return c, nil
}

func (p *Provider) handle(userID, email string) Handle {
	_, listed := p.admins[normalizeEmail(email)]
	return Handle{
		UserID: userID,
		Email:  email,
		Admin:  len(p.admins) == 0 || listed,
	}
}

func (p *Provider) notify(change Change) {
	p.mu.Lock()
	subs := make([]subscriber, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.Unlock()

	for _, s := range subs {
		s.fn(change)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
