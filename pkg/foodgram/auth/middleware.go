package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
)

const contextKeyPrincipal = "principal"

// Principal is the authenticated caller of a request
type Principal struct {
	UserID uint
	Email  string
	Role   models.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// OptionalAuth attaches a Principal when the request carries
// "Authorization: Token <jwt>" or "Bearer <jwt>". Requests without the
// header stay anonymous; a malformed or invalid token is rejected.
func OptionalAuth(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 {
			apierror.Respond(c, apierror.NewUnauthorized("Invalid authorization header format"))
			return
		}
		switch strings.ToLower(parts[0]) {
		case "token", "bearer":
		default:
			apierror.Respond(c, apierror.NewUnauthorized("Invalid authorization header format"))
			return
		}

		claims, err := issuer.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if err == ErrExpiredToken {
				apierror.Respond(c, apierror.NewUnauthorized("Token has expired"))
			} else {
				apierror.Respond(c, apierror.NewUnauthorized("Invalid token"))
			}
			return
		}

		c.Set(contextKeyPrincipal, Principal{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   models.Role(claims.Role),
		})
		c.Set(logging.UserIDKey, claims.UserID)

		c.Next()
	}
}

// RequireAuth rejects anonymous requests
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			apierror.Respond(c, apierror.NewUnauthorized("Authentication credentials were not provided"))
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects principals without the admin role. It must run
// after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := CurrentUser(c)
		if !p.IsAdmin() {
			apierror.Respond(c, apierror.NewForbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the request's principal, if any
func CurrentUser(c *gin.Context) (Principal, bool) {
	v, exists := c.Get(contextKeyPrincipal)
	if !exists {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// UserID returns the principal's id, or 0 for anonymous requests
func UserID(c *gin.Context) uint {
	p, _ := CurrentUser(c)
	return p.UserID
}

// SetPrincipal attaches p to the request
func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(contextKeyPrincipal, p)
	c.Set(logging.UserIDKey, p.UserID)
}
