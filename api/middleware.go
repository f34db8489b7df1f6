package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/raushankrgupta/maternity-matters/utils"
)

// Authentication failure messages.
const (
	MsgAuthHeaderMissing = "Access denied. Authorization header missing or malformed."
	MsgNoToken           = "Access denied. No token provided."
	MsgTokenExpired      = "Token expired. Please log in again."
	MsgTokenInvalid      = "Invalid token. Authentication failed."

	MsgOriginNotAllowed = "The CORS policy for this site does not allow access from the specified Origin."
	MsgTooManyRequests  = "Too many requests from this IP for API access, please try again later."
)

const requestIDHeader = "X-Request-Id"

type claimsKey struct{}

// ClaimsFromContext returns the verified session claims. It must only be
// called behind RequireAuth.
func ClaimsFromContext(ctx context.Context) *utils.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*utils.Claims)
	if claims == nil {
		return &utils.Claims{}
	}
	return claims
}

// RequestID tags the request with an id, echoes it in the response and puts a
// request scoped zerolog logger in the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := log.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// RequireAuth verifies the Bearer session token and stores its claims in the
// request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			unauthorized(w, r, MsgAuthHeaderMissing)
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			unauthorized(w, r, MsgNoToken)
			return
		}

		claims, err := h.tokens.ValidateToken(token)
		if errors.Is(err, jwt.ErrTokenExpired) {
			unauthorized(w, r, MsgTokenExpired)
			return
		}
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Rejected session token")
			unauthorized(w, r, MsgTokenInvalid)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	zerolog.Ctx(r.Context()).Info().Str("path", r.URL.Path).Msg(msg)
	utils.RespondJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
}

// RejectDisallowedOrigins answers 403 to cross-origin requests from origins
// outside the allow-list. Requests without an Origin header pass.
func RejectDisallowedOrigins(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && !set[origin] {
				zerolog.Ctx(r.Context()).Warn().Str("origin", origin).Msg("Origin not allowed")
				utils.RespondJSON(w, http.StatusForbidden, map[string]string{"error": MsgOriginNotAllowed})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	zerolog.Ctx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("Rate limit exceeded")
	utils.RespondJSON(w, http.StatusTooManyRequests, map[string]string{"error": MsgTooManyRequests})
}
