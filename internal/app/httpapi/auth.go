package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxAuthModeKey ctxKey = "httpapi.auth_mode"

// sharedSecretHeader is the header the spreadsheet-side Apps Script client
// sends on every request (spec.md §4.15, §6.1).
const sharedSecretHeader = "X-ROADMAP-AI-SECRET"

// BearerValidator validates the optional JWT bearer token accepted from
// roadmapctl (SPEC_FULL.md §11 domain stack: "optional bearer-token mode for
// the roadmapctl operator CLI ... the spreadsheet UI path still uses the
// shared secret per spec §6.1"). Grounded on the teacher's JWTValidator
// interface, stripped of tenant/role/Supabase-specific claim handling since
// this platform has no multi-tenant or role model.
type BearerValidator interface {
	Validate(token string) error
}

// HS256BearerValidator validates HMAC-signed JWTs issued for roadmapctl
// sessions, grounded on the teacher's SupabaseJWTValidator shape.
type HS256BearerValidator struct {
	secret []byte
}

func NewHS256BearerValidator(secret string) *HS256BearerValidator {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &HS256BearerValidator{secret: []byte(secret)}
}

func (v *HS256BearerValidator) Validate(token string) error {
	if v == nil || len(v.secret) == 0 {
		return ErrInvalidBearerToken
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidBearerToken
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidBearerToken
	}
	return nil
}

// wrapWithAuth enforces spec.md §4.15's authentication requirement: every
// request to the Action API must carry a valid X-ROADMAP-AI-SECRET header,
// or, when bearer is configured, a valid Authorization: Bearer JWT issued
// for roadmapctl. Mismatch on either path returns 401.
func wrapWithAuth(next http.Handler, secret string, bearer BearerValidator) http.Handler {
	secret = strings.TrimSpace(secret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if got := r.Header.Get(sharedSecretHeader); got != "" {
			if secret != "" && got == secret {
				ctx := context.WithValue(r.Context(), ctxAuthModeKey, "shared_secret")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			writeError(w, http.StatusUnauthorized, ErrInvalidSecret)
			return
		}

		if bearer != nil {
			if token := extractBearerToken(r); token != "" {
				if err := bearer.Validate(token); err == nil {
					ctx := context.WithValue(r.Context(), ctxAuthModeKey, "bearer")
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				writeError(w, http.StatusUnauthorized, ErrInvalidBearerToken)
				return
			}
		}

		writeError(w, http.StatusUnauthorized, ErrMissingSecret)
	})
}

func extractBearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
