package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Blokmap/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type contextKey string

const ProfileKey contextKey = "profile"

// Auth middleware validates the Bearer token and puts the acting profile in
// the request context
func Auth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				log.Warn().Msg("Missing Authorization header")
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "Authorization header must be a Bearer token", http.StatusUnauthorized)
				return
			}

			claims := &models.ProfileClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return key, nil
			})
			if err != nil || !parsed.Valid {
				log.Warn().Err(err).Msg("Invalid token")
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ProfileKey, claims.Profile())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetProfile extracts the acting profile from context
func GetProfile(ctx context.Context) (models.Profile, bool) {
	profile, ok := ctx.Value(ProfileKey).(models.Profile)
	return profile, ok
}
