package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bloomhealth/bloom/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

type authFailure struct {
	code    int
	message string
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, fail := authenticate(ctx)
		if fail != nil {
			utils.Error(ctx, http.StatusUnauthorized, fail.code, fail.message)
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// OptionalAuth attaches the user identity when a valid token is present and never rejects the request.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if claims, fail := authenticate(ctx); fail == nil {
			ctx.Set(ContextUserIDKey, claims.UserID)
			ctx.Set(ContextUsernameKey, claims.Username)
		}
		ctx.Next()
	}
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(ctx *gin.Context) (string, bool) {
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func authenticate(ctx *gin.Context) (*utils.Claims, *authFailure) {
	if ctx.GetHeader("Authorization") == "" {
		return nil, &authFailure{40101, "authorization header missing"}
	}

	tokenString, ok := BearerToken(ctx)
	if !ok {
		return nil, &authFailure{40102, "invalid authorization header format"}
	}

	if utils.IsTokenBlacklisted(tokenString) {
		return nil, &authFailure{40104, "token revoked"}
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, &authFailure{40105, "invalid token"}
	}
	return claims, nil
}
