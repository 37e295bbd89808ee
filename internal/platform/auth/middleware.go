package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
)

// Claims carried by tokens issued by the identity service.
type Claims struct {
	jwt.RegisteredClaims
	Roles         []string `json:"roles"`
	StateID       int      `json:"state_id"`
	CaseManagerID string   `json:"case_manager_id,omitempty"`
}

// Identity converts verified claims into the caller identity used for scoping.
func (c *Claims) Identity() access.Identity {
	return access.Identity{
		UserID:        c.Subject,
		Roles:         c.Roles,
		StateID:       c.StateID,
		CaseManagerID: c.CaseManagerID,
	}
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	// Skipper bypasses authentication, typically AuthSkipper.
	Skipper middleware.Skipper
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			setIdentity(c, claims.Identity())
			return next(c)
		}
	}
}

// DevAuthMiddleware authenticates header-less requests as a national
// administrator. Requests that do carry a token are verified as usual.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	verify := JWTMiddleware(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := verify(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				return verified(c)
			}
			setIdentity(c, DevIdentity)
			return next(c)
		}
	}
}

// DevIdentity is the identity assumed for unauthenticated development requests.
var DevIdentity = access.Identity{
	UserID: "dev-user",
	Roles:  []string{access.RoleSuperAdmin},
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func setIdentity(c echo.Context, id access.Identity) {
	c.Set("user_id", id.UserID)
	ctx := access.WithIdentity(c.Request().Context(), id)
	c.SetRequest(c.Request().WithContext(ctx))
}
