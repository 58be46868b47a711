// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Middleware Pattern nedir?
// Her HTTP request, handler'a ulaşmadan önce bir veya daha fazla middleware'dan geçer.
// Middleware'lar zincir şeklinde çalışır: Auth → Handler
//
// Go'da middleware bir fonksiyondur:
//   func(next http.Handler) http.Handler
//
// "next" parametresi zincirdeki bir sonraki handler'dır.
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Eğer hata varsa next'i çağırmaz → request burada durur.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vidora-app/server/handlers"
	"github.com/vidora-app/server/pkg"
	"github.com/vidora-app/server/repository"
	"github.com/vidora-app/server/services"
)

// AuthMiddleware, JWT access token doğrulama middleware'ı.
type AuthMiddleware struct {
	authService services.AuthService
	userRepo    repository.UserRepository
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(authService services.AuthService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userRepo:    userRepo,
	}
}

// Require, access token zorunlu kılan middleware.
// Token yoksa veya geçersizse → 401 Unauthorized.
//
// Token iki yerden gelebilir (öncelik sırasıyla):
//  1. "accessToken" cookie'si — browser client'lar (httpOnly cookie akışı)
//  2. "Authorization: Bearer <token>" header'ı — API client'lar
//
// Akış:
//  1. Cookie/header'dan token'ı çıkar → yoksa 401 (ErrUnauthenticated)
//  2. AuthService.ValidateAccessToken() ile doğrula → bozuksa 401 (ErrInvalidToken)
//  3. Kullanıcıyı DB'den getir — token geçerli ama hesap silinmiş olabilir
//  4. Sanitize edilmiş kullanıcıyı context'e ekle → next handler'ı çağır
//
// Middleware request'i ASLA mutate etmez — sadece context'e veri ekler.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			pkg.Error(w, pkg.ErrUnauthenticated)
			return
		}

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		user, err := m.userRepo.GetByID(r.Context(), claims.UserID)
		if err != nil {
			// Token imzası geçerli ama hesap artık yok — hesabın varlığı
			// hakkında bilgi sızdırmadan generic invalid token dönülür.
			if errors.Is(err, pkg.ErrNotFound) {
				err = pkg.ErrInvalidToken
			}
			pkg.Error(w, err)
			return
		}

		// Hassas alanlar context'te taşınmamalı
		user.PasswordHash = ""
		user.RefreshToken = nil

		// context.WithValue: mevcut context'e key-value ekler.
		// Downstream handler'lar handlers.GetUserFromContext ile erişir.
		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken, request'ten access token'ı çıkarır.
// Önce cookie, sonra Authorization header — cookie'li browser istekleri
// yanlışlıkla stale bir header taşısa bile cookie kazanır.
func extractToken(r *http.Request) string {
	if c, err := r.Cookie("accessToken"); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
