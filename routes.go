// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Route sıralama kuralı: Literal path'ler parametrik path'lerden ÖNCE tanımlanmalı.
package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vidora-app/server/handlers"
	"github.com/vidora-app/server/middleware"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
func initRoutes(
	mux *http.ServeMux,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	authMw *middleware.AuthMiddleware,
	uploadDir string,
) {
	// auth: JWT access token zorunlu kılan chain helper
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}

	// Health check
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"vidora"}`)
	})

	// Auth — public endpoint'ler (token gerekmez)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/forgot-password", authHandler.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", authHandler.ResetPassword)

	// Logout protected'dır — kimin oturumunun düşeceği access token'dan belirlenir
	mux.Handle("POST /api/auth/logout", auth(authHandler.Logout))

	// User
	mux.Handle("GET /api/users/me", auth(authHandler.Me))
	mux.Handle("PATCH /api/users/me/profile", auth(profileHandler.UpdateProfile))
	mux.Handle("POST /api/users/me/password", auth(authHandler.ChangePassword))
	mux.Handle("POST /api/users/me/avatar", auth(profileHandler.UploadAvatar))
	mux.Handle("POST /api/users/me/cover", auth(profileHandler.UploadCover))

	// Static file serving — yüklenen resimlere erişim
	//
	// http.StripPrefix: URL'den "/api/uploads/" kısmını çıkarır.
	// http.FileServer: Kalan path'i upload dizininde dosya olarak arar.
	// Örnek: GET /api/uploads/avatar_xxx.jpg → ./data/uploads/avatar_xxx.jpg
	//
	// Path traversal koruması:
	// http.FileServer zaten ".." path'lerini reddeder.
	// Ek güvenlik için sadece düz dosya isimlerini kabul edip subdirectory'leri reddediyoruz.
	uploadsHandler := http.StripPrefix("/api/uploads/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/") || strings.Contains(r.URL.Path, "\\") {
			http.NotFound(w, r)
			return
		}
		http.FileServer(http.Dir(uploadDir)).ServeHTTP(w, r)
	}))
	mux.Handle("GET /api/uploads/", uploadsHandler)
}
