package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "barberdesk/pkg/errors"
	httputil "barberdesk/pkg/http"
	"barberdesk/pkg/logger"
	"barberdesk/pkg/session"

	"github.com/golang-jwt/jwt/v5"
)

const AdminUserType = "Admin"

type UserType struct {
	ID   int64  `json:"id"`
	Name string `json:"nomeTipoUsuario"`
}

// Claims mirrors the token issued by the barbershop API login.
type Claims struct {
	ID       int64     `json:"id"`
	Name     string    `json:"nome"`
	Email    string    `json:"email"`
	UserType *UserType `json:"tipoUsuario,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.UserType != nil && c.UserType.Name == AdminUserType
}

type Authenticator struct {
	secret []byte
	log    *logger.Logger
	parser *jwt.Parser
}

func NewAuthenticator(secret string, log *logger.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		log:    log,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// Authenticate parses a bearer token and builds the operator session.
func (a *Authenticator) Authenticate(header string) (*session.Session, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, apperrors.Unauthorized("missing bearer token")
	}

	claims := &Claims{}
	if _, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Unauthorized("token expired")
		}
		return nil, apperrors.Unauthorized("invalid token")
	}

	subject := claims.Subject
	if subject == "" {
		subject = claims.Email
	}
	if subject == "" {
		return nil, apperrors.Unauthorized("token has no subject")
	}
	if !claims.IsAdmin() {
		return nil, apperrors.Forbidden("dashboard access requires an admin account")
	}

	s := &session.Session{
		Subject: subject,
		Name:    claims.Name,
		Email:   claims.Email,
		IsAdmin: true,
		Token:   raw,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// RequireAdmin rejects requests without a valid admin token and stores the
// session in the request context.
func RequireAdmin(auth *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := auth.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				auth.log.Warn("Request rejected by authentication",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err.Error(),
				)
				if writeErr := httputil.WriteError(w, err); writeErr != nil {
					auth.log.Error("failed to write error response", "middleware", "RequireAdmin", "error", writeErr)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
		})
	}
}
