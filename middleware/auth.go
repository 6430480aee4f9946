package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pixelmuse/utils"
)

// AuthMiddleware validates the bearer session token and places the user id,
// role and email in the request context. Tokens are minted by the external
// identity service; we only verify them.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		_, claims, err := utils.ValidateAccessToken(tokenStr)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		// Extract user ID
		var userID uint
		if rawID, ok := claims["id"]; ok {
			switch v := rawID.(type) {
			case float64:
				userID = uint(v)
			case int:
				userID = uint(v)
			case string:
				var n uint
				_, _ = fmt.Sscanf(v, "%d", &n)
				userID = n
			}
		}
		if userID == 0 {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var role string
		if rStr, ok := claims["role"].(string); ok {
			role = rStr
		}
		var email string
		if eStr, ok := claims["email"].(string); ok {
			email = eStr
		}

		ctx := context.WithValue(r.Context(), utils.UserIDKey, userID)
		ctx = context.WithValue(ctx, utils.UserRoleKey, role)
		ctx = context.WithValue(ctx, utils.UserEmailKey, email)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
