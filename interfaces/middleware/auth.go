package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"socialhub/domain/dto"
	"socialhub/domain/model"
)

// Auth validates the bearer token and stashes the caller's identity on the
// gin context (user_id, workspace_id, tenant_id, role).
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		parts := strings.Split(authorization, "Bearer ")
		if len(parts) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		claims, token, err := getClaim(parts[1], secretKey)
		if err != nil || !token.Valid {
			res.ResponseMessage = claimErrorMessage(err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		ctx.Set("user_id", claims.UserID)
		ctx.Set("workspace_id", claims.WorkspaceID)
		ctx.Set("tenant_id", claims.TenantID)
		ctx.Set("role", claims.Role)
		ctx.Next()
	}
}

// AdminOnly must run after Auth; it gates administrative routes.
func AdminOnly() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetString("role") != "admin" {
			ctx.AbortWithStatusJSON(http.StatusForbidden, dto.Res{ResponseCode: "403", ResponseMessage: "Forbidden"})
			return
		}
		ctx.Next()
	}
}

func getClaim(raw, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var claims model.UserClaims
	token, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	if token == nil {
		token = &jwt.Token{}
	}
	return claims, token, err
}

func claimErrorMessage(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		}
		if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return "Timing is everything"
		}
	}
	return "Unauthorized"
}
