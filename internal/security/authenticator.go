package security

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/util"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type contextKey int

const (
	identityContextKey contextKey = iota
	failureContextKey
)

// AuthFailure records why a presented bearer token was not accepted.
type AuthFailure struct {
	Kind   FailureKind
	Reason string
}

var errWrongTokenType = errors.New("refresh token presented as bearer")

// Authenticate reconstructs the caller identity from the bearer token, once per request.
// It never rejects a request: without a valid token the request continues anonymous and
// authorization further down decides what an anonymous caller may do. Access tokens are
// not checked against any store.
func Authenticate(codec *TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			token, present := bearerToken(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := codec.Decode(token)
			if err == nil && claims.Type != TypeAccess {
				err = newTokenError(KindMalformed, errWrongTokenType)
			}
			if err != nil {
				failure := AuthFailure{Kind: FailureKindOf(err), Reason: err.Error()}
				logFailure(r, failure)
				ctx := context.WithValue(r.Context(), failureContextKey, failure)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), claims.Identity())))
		})
	}
}

// bearerToken returns the token and whether a Bearer authorization was presented at all.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	if !found {
		return "", true
	}
	return strings.TrimSpace(token), true
}

// logFailure : forged tokens are worth an operator's attention, expired ones are routine
func logFailure(r *http.Request, failure AuthFailure) {
	entry := util.Logger.WithFields(logrus.Fields{
		"reason":      failure.Kind.String(),
		"remote_addr": r.RemoteAddr,
		"request_id":  middleware.GetReqID(r.Context()),
		"path":        r.URL.Path,
	})

	switch {
	case failure.Kind.Suspicious():
		entry.Warn("rejected bearer token with invalid signature")
	case failure.Kind == KindExpired:
		entry.Debug("bearer token expired")
	default:
		entry.Info("rejected malformed bearer token")
	}
}

// ContextWithIdentity attaches an identity unless one is already present; the first
// identity attached to a request is final.
func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	if _, ok := IdentityFromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey, identity)
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

func AuthFailureFromContext(ctx context.Context) (AuthFailure, bool) {
	failure, ok := ctx.Value(failureContextKey).(AuthFailure)
	return failure, ok
}

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			util.HandleError(w, unauthorizedMessage(r.Context()), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous requests with 401 and callers outside roles with 403.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				util.HandleError(w, unauthorizedMessage(r.Context()), http.StatusUnauthorized)
				return
			}
			if !identity.HasRole(roles...) {
				util.HandleError(w, "access denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorizedMessage(ctx context.Context) string {
	if failure, ok := AuthFailureFromContext(ctx); ok && failure.Kind == KindExpired {
		return "access token expired"
	}
	return "authentication required"
}
