package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
)

func mintToken(t *testing.T, userID string, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("server-side-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func staticSource(token string) TokenSource {
	return TokenSourceFunc(func(ctx context.Context) (string, error) {
		return token, nil
	})
}

func TestSubjectAuthenticated(t *testing.T) {
	t.Parallel()

	token := mintToken(t, "user-42", time.Now().Add(time.Hour))
	provider := NewProvider(staticSource(token), nil)

	subject := provider.Subject(context.Background())
	if !subject.Authenticated {
		t.Fatal("expected authenticated subject")
	}
	if subject.OwnerID != "user-42" {
		t.Fatalf("unexpected owner id: %q", subject.OwnerID)
	}
	if subject.Token != token {
		t.Fatal("subject should carry the raw token")
	}
}

func TestSubjectExpiredTokenFallsBackToAnonymous(t *testing.T) {
	t.Parallel()

	token := mintToken(t, "user-42", time.Now().Add(-time.Minute))
	provider := NewProvider(staticSource(token), nil)

	subject := provider.Subject(context.Background())
	if subject.Authenticated {
		t.Fatal("expired token must not authenticate")
	}
	if subject.OwnerID != OwnerAnonymous {
		t.Fatalf("unexpected owner id: %q", subject.OwnerID)
	}
}

func TestSubjectGarbageToken(t *testing.T) {
	t.Parallel()

	provider := NewProvider(staticSource("not-a-jwt"), nil)

	if subject := provider.Subject(context.Background()); subject.OwnerID != OwnerAnonymous {
		t.Fatalf("garbage token should degrade to anonymous, got %q", subject.OwnerID)
	}
}

func TestSubjectMissingToken(t *testing.T) {
	t.Parallel()

	provider := NewProvider(staticSource(""), nil)

	if subject := provider.Subject(context.Background()); subject.Authenticated {
		t.Fatal("empty token must not authenticate")
	}
}

func TestBearerTokenUnauthorized(t *testing.T) {
	t.Parallel()

	provider := NewProvider(staticSource(""), nil)

	_, err := provider.BearerToken(context.Background())
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestBearerTokenSuccess(t *testing.T) {
	t.Parallel()

	token := mintToken(t, "user-7", time.Now().Add(time.Hour))
	provider := NewProvider(staticSource(token), nil)

	got, err := provider.BearerToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != token {
		t.Fatal("bearer token mismatch")
	}
}
