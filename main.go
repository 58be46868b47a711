// Package main, vidora backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i başlat (embedded migration'lar ile)
//  3. Upload dizinini oluştur
//  4. Repository'leri oluştur (DB bağlantısı ile)
//  5. Service'leri oluştur (repository'ler ile)
//  6. Handler'ları oluştur (service'ler ile)
//  7. HTTP router'ı kur, route'ları bağla
//  8. CORS yapılandır
//  9. HTTP Server'ı başlat
// 10. Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/vidora-app/server/config"
	"github.com/vidora-app/server/database"
	"github.com/vidora-app/server/handlers"
	"github.com/vidora-app/server/middleware"
	"github.com/vidora-app/server/pkg/email"
	"github.com/vidora-app/server/pkg/ratelimit"
	"github.com/vidora-app/server/repository"
	"github.com/vidora-app/server/services"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] vidora server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	// Migration'lar binary'ye embed edilir — deploy'da ayrı dosya taşınmaz.
	db, err := database.New(cfg.Database.Path, database.EmbeddedMigrations)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Upload Dizini ───
	if err := os.MkdirAll(cfg.Upload.Dir, 0755); err != nil {
		log.Fatalf("[main] failed to create upload directory: %v", err)
	}

	// ─── 4. Repository Layer ───
	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	resetRepo := repository.NewSQLiteResetTokenRepo(db.Conn)

	// ─── 5. Service Layer ───
	// Email opsiyonel — API key yoksa reset emaili loglanır ama gönderilmez.
	var emailSender email.EmailSender
	if cfg.Email.ResendAPIKey != "" {
		emailSender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL)
		log.Println("[main] email sender configured (resend)")
	} else {
		log.Println("[main] RESEND_API_KEY not set — password reset emails disabled")
	}

	authService := services.NewAuthService(db.Conn, userRepo, resetRepo, emailSender, cfg)
	userService := services.NewUserService(userRepo)
	uploadService := services.NewUploadService(cfg.Upload.Dir, cfg.Upload.MaxSize)

	// ─── 6. Handler Layer ───
	loginLimiter := ratelimit.NewAttemptLimiter(
		cfg.Auth.LoginMaxAttempts,
		time.Duration(cfg.Auth.LoginWindowSecs)*time.Second,
	)
	defer loginLimiter.Close()

	authHandler := handlers.NewAuthHandler(
		authService, uploadService, loginLimiter,
		cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry,
	)
	profileHandler := handlers.NewProfileHandler(userService, uploadService)

	// ─── 7. HTTP Router ───
	authMw := middleware.NewAuthMiddleware(authService, userRepo)

	mux := http.NewServeMux()
	initRoutes(mux, authHandler, profileHandler, authMw, cfg.Upload.Dir)

	// ─── 8. CORS ───
	// AllowCredentials zorunlu — auth cookie'leri cross-origin taşınır.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := corsHandler.Handler(mux)

	// ─── 9. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 10. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Yeni request kabul etmeyi durdur, mevcut request'lerin bitmesini bekle.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
