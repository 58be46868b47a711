// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece
// her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Email    EmailConfig
	CORS     CORSConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/vidora.db)
}

// JWTConfig, JWT token ayarları.
//
// Access ve refresh token'lar AYRI secret'larla imzalanır.
// Böylece bir access token refresh endpoint'inde (veya tersi) replay edilemez —
// imza doğrulaması yanlış secret yüzünden her zaman başarısız olur.
type JWTConfig struct {
	AccessSecret  string        // Access token imzalama anahtarı — GİZLİ TUTULMALI
	RefreshSecret string        // Refresh token imzalama anahtarı — access'ten FARKLI olmalı
	AccessExpiry  time.Duration // Kısa ömür (varsayılan: 15 dakika)
	RefreshExpiry time.Duration // Uzun ömür (varsayılan: 7 gün)
}

// AuthConfig, şifre ve login koruması ayarları.
type AuthConfig struct {
	BcryptCost       int // Bcrypt work factor (varsayılan: 12)
	LoginMaxAttempts int // Rate limit: pencere başına login denemesi
	LoginWindowSecs  int // Rate limit: pencere süresi (saniye)
}

// UploadConfig, profil resmi yükleme ayarları.
type UploadConfig struct {
	Dir     string // Dosyaların kaydedileceği dizin
	MaxSize int64  // Byte cinsinden max dosya boyutu (varsayılan: 8MB)
}

// EmailConfig, şifre sıfırlama emaili ayarları (Resend).
// ResendAPIKey boşsa email gönderimi devre dışı kalır.
type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string // Resend'de doğrulanmış domain altında olmalı
	AppURL       string // Reset linklerinde kullanılan public URL
}

// CORSConfig, izin verilen frontend origin'leri.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// .env dosyasını yükle — dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("ACCESS_TOKEN_EXPIRY_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRY_MINUTES: %w", err)
	}

	refreshExpiry, err := strconv.Atoi(getEnv("REFRESH_TOKEN_EXPIRY_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRY_DAYS: %w", err)
	}

	bcryptCost, err := strconv.Atoi(getEnv("BCRYPT_COST", "12"))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	maxSize, err := strconv.ParseInt(getEnv("UPLOAD_MAX_SIZE", "8388608"), 10, 64) // 8MB
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_SIZE: %w", err)
	}

	loginAttempts, err := strconv.Atoi(getEnv("LOGIN_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_MAX_ATTEMPTS: %w", err)
	}

	loginWindow, err := strconv.Atoi(getEnv("LOGIN_WINDOW_SECONDS", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_WINDOW_SECONDS: %w", err)
	}

	// Token secret'ları zorunludur — imzasız/öngörülebilir secret'la çalışmak
	// tüm auth sistemini anlamsız kılar. Startup'ta fail-fast.
	accessSecret := getEnv("ACCESS_TOKEN_SECRET", "")
	if accessSecret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET environment variable is required")
	}
	refreshSecret := getEnv("REFRESH_TOKEN_SECRET", "")
	if refreshSecret == "" {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET environment variable is required")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/vidora.db"),
		},
		JWT: JWTConfig{
			AccessSecret:  accessSecret,
			RefreshSecret: refreshSecret,
			AccessExpiry:  time.Duration(accessExpiry) * time.Minute,
			RefreshExpiry: time.Duration(refreshExpiry) * 24 * time.Hour,
		},
		Auth: AuthConfig{
			BcryptCost:       bcryptCost,
			LoginMaxAttempts: loginAttempts,
			LoginWindowSecs:  loginWindow,
		},
		Upload: UploadConfig{
			Dir:     getEnv("UPLOAD_DIR", "./data/uploads"),
			MaxSize: maxSize,
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("EMAIL_FROM", ""),
			AppURL:       getEnv("APP_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				getEnv("CORS_ORIGIN", "http://localhost:3000"),
			},
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:8000").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
