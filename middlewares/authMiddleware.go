package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"bitbucket.org/mmdatafocus/bakery_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type authString string

const principalKey = authString("principal")

const AuthTokenHeader = "X-Auth-Token"

// AuthMiddleware turns a bearer token into a principal. Requests without a token pass through anonymous;
// a bad token or an unknown user is rejected with 401.
func AuthMiddleware(tokens *utils.TokenIssuer, access *workflow.AccessPolicy, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			c.Next()
			return
		}

		claims, err := tokens.JwtValidate(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		principal, err := access.ResolvePrincipal(c.Request.Context(), claims.ID)
		if err != nil {
			if utils.ErrorKind(err) == utils.ErrUnauthorized {
				abortUnauthorized(c, err.Error())
				return
			}
			config.LogError(logger, "middlewares", "AuthMiddleware", "resolving principal", claims.ID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "internal server error",
				"code":    "internal_error",
			})
			return
		}

		ctx := context.WithValue(c.Request.Context(), principalKey, principal)
		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetUserIdInContext(ctx, principal.UserId)
		ctx = utils.SetUserNameInContext(ctx, principal.Name)
		ctx = utils.SetRightCodesInContext(ctx, principal.RightCodes())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CtxPrincipal(c.Request.Context()) == nil {
			abortUnauthorized(c, "missing auth token")
			return
		}
		c.Next()
	}
}

func CtxPrincipal(ctx context.Context) *workflow.Principal {
	raw, _ := ctx.Value(principalKey).(*workflow.Principal)
	return raw
}

// WithPrincipal is used by handler tests to skip token issuing.
func WithPrincipal(ctx context.Context, p *workflow.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth != "" {
		const bearer = "Bearer "
		if len(auth) > len(bearer) && strings.EqualFold(auth[:len(bearer)], bearer) {
			return strings.TrimSpace(auth[len(bearer):])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(AuthTokenHeader))
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"code":    "unauthorized",
	})
}
