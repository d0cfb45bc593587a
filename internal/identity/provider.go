package identity

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
	"github.com/angelmondragon/sliceline-client/pkg/logger"
)

// OwnerAnonymous is the shared owner id used before login. It maps onto the
// storefront's legacy shared cart record.
const OwnerAnonymous = "anonymous"

// TokenSource supplies the stored bearer token. Acquisition and refresh belong
// to the auth collaborator; an empty token means logged out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Subject is the identity the cart store and the order tracker both key on.
type Subject struct {
	OwnerID       string
	Authenticated bool
	Token         string
	ExpiresAt     time.Time
}

// Provider derives the current Subject from the stored token. The signature is
// server-verified; locally we only decode claims and check expiry, so a stale
// token degrades to the anonymous subject instead of failing the caller.
type Provider struct {
	source TokenSource
	logg   *logger.Logger
	now    func() time.Time
}

func NewProvider(source TokenSource, logg *logger.Logger) *Provider {
	return &Provider{source: source, logg: logg, now: time.Now}
}

type tokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Subject resolves the current owner. Both the cart store's owner-switch logic
// and the tracker's channel auth go through here so they observe the same
// identity transition.
func (p *Provider) Subject(ctx context.Context) Subject {
	anonymous := Subject{OwnerID: OwnerAnonymous}
	if p == nil || p.source == nil {
		return anonymous
	}

	raw, err := p.source.Token(ctx)
	if err != nil || raw == "" {
		return anonymous
	}

	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		if p.logg != nil {
			p.logg.Warn(ctx, "stored token is not a parsable jwt")
		}
		return anonymous
	}

	ownerID := claims.UserID
	if ownerID == "" {
		ownerID = claims.Subject
	}
	if ownerID == "" {
		return anonymous
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
		if !p.now().Before(expiresAt) {
			if p.logg != nil {
				p.logg.Warn(ctx, "stored token is expired")
			}
			return anonymous
		}
	}

	return Subject{
		OwnerID:       ownerID,
		Authenticated: true,
		Token:         raw,
		ExpiresAt:     expiresAt,
	}
}

// BearerToken returns the token for channel or API authentication. Expired or
// absent credentials surface as an auth error so callers fail fast instead of
// burning retries.
func (p *Provider) BearerToken(ctx context.Context) (string, error) {
	subject := p.Subject(ctx)
	if !subject.Authenticated {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "no valid credentials stored")
	}
	return subject.Token, nil
}
