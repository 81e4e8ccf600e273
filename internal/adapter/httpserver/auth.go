package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	obsctx "github.com/fairyhunter13/ai-mock-interview/internal/observability"
)

var errNoBearer = errors.New("missing bearer token")

// Authenticator verifies HS256 bearer tokens issued by the identity provider.
// The sub claim is the caller's stable user id.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator returns an Authenticator. An empty secret rejects every token.
func NewAuthenticator(secret, issuer string) Authenticator {
	return Authenticator{secret: []byte(secret), issuer: issuer}
}

// Verify parses the token and returns its subject.
func (a Authenticator) Verify(raw string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: authentication not configured", domain.ErrUnauthenticated)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	tok, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	return sub, nil
}

// Middleware rejects unauthenticated requests with 401 before any handler
// runs and stores the user id in the request context.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err == nil {
			var userID string
			userID, err = a.Verify(raw)
			if err == nil {
				ctx := obsctx.ContextWithUserID(r.Context(), userID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		LoggerFrom(r).Debug("authentication failed", slog.Any("error", err))
		writeError(w, r, domain.ErrUnauthenticated, nil)
	})
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", errNoBearer
	}
	return strings.TrimSpace(tok), nil
}

// userIDFrom returns the authenticated caller, or "" outside Middleware.
func userIDFrom(r *http.Request) string {
	return obsctx.UserIDFromContext(r.Context())
}
