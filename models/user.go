// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Veritabanındaki bir tablonun Go karşılığıdır.
// Aynı zamanda API'den gelen/giden verilerin şeklini de belirler.
//
// Go'da `json:"username"` gibi tag'ler, struct field'larının JSON'a
// nasıl serialize/deserialize edileceğini belirler.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// User, bir kullanıcı hesabını temsil eder.
//
// İki field ASLA API response'una çıkmaz (`json:"-"`):
//   - PasswordHash: bcrypt hash — loglanmaz, serialize edilmez,
//     plaintext karşılaştırması yapılmaz
//   - RefreshToken: hesabın o an geçerli TEK refresh token'ı.
//     nil → aktif oturum yok (logout edilmiş veya hiç login olmamış).
//     Sunulan bir refresh token, imzası geçerli olsa bile bu değerle
//     birebir eşleşmiyorsa kabul edilmez (server-side revocation).
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL *string   `json:"cover_image_url"` // *string = nullable — kapak resmi opsiyonel
	PasswordHash  string    `json:"-"`
	RefreshToken  *string   `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// emailRegex, basit email format kontrolü.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterRequest, kayıt olurken frontend'den gelen veri.
// Multipart form'dan parse edilir (avatar/kapak dosyaları ayrı okunur).
// PasswordHash yerine Password alırız — hash'leme service katmanında yapılır.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// Validate, RegisterRequest'in geçerli olup olmadığını kontrol eder.
// Validation kuralları:
//   - Username: 3-32 karakter, alfanumerik + alt çizgi; lowercase'e normalize edilir
//   - Email: geçerli format; lowercase'e normalize edilir
//   - FullName: zorunlu, max 64 karakter
//   - Password: minimum 8 karakter
func (r *RegisterRequest) Validate() error {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	usernameLen := utf8.RuneCountInString(r.Username)
	if usernameLen < 3 || usernameLen > 32 {
		return fmt.Errorf("username must be between 3 and 32 characters")
	}
	for _, ch := range r.Username {
		if !isValidUsernameChar(ch) {
			return fmt.Errorf("username can only contain letters, numbers, and underscores")
		}
	}

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if !emailRegex.MatchString(r.Email) {
		return fmt.Errorf("invalid email format")
	}

	r.FullName = strings.TrimSpace(r.FullName)
	if r.FullName == "" {
		return fmt.Errorf("full name is required")
	}
	if utf8.RuneCountInString(r.FullName) > 64 {
		return fmt.Errorf("full name must be at most 64 characters")
	}

	if utf8.RuneCountInString(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	return nil
}

// LoginRequest, giriş yaparken frontend'den gelen veri.
// Identifier alanına username VEYA email yazılabilir —
// service katmanı ikisini de dener (case-insensitive).
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Validate, LoginRequest'in geçerli olup olmadığını kontrol eder.
func (r *LoginRequest) Validate() error {
	r.Identifier = strings.ToLower(strings.TrimSpace(r.Identifier))
	if r.Identifier == "" {
		return fmt.Errorf("username or email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// UpdateProfileRequest, profil güncellemesi için (partial update).
// nil field'lar dokunulmadan bırakılır.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

// Validate, UpdateProfileRequest geçerlilik kontrolü.
// En az bir field set edilmiş olmalı.
func (r *UpdateProfileRequest) Validate() error {
	if r.FullName == nil && r.Email == nil {
		return fmt.Errorf("at least one of full_name or email is required")
	}
	if r.FullName != nil {
		trimmed := strings.TrimSpace(*r.FullName)
		if trimmed == "" {
			return fmt.Errorf("full name cannot be empty")
		}
		if utf8.RuneCountInString(trimmed) > 64 {
			return fmt.Errorf("full name must be at most 64 characters")
		}
		*r.FullName = trimmed
	}
	if r.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*r.Email))
		if !emailRegex.MatchString(normalized) {
			return fmt.Errorf("invalid email format")
		}
		*r.Email = normalized
	}
	return nil
}

// ChangePasswordRequest, şifre değiştirme isteği.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate, ChangePasswordRequest geçerlilik kontrolü.
func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" || r.NewPassword == "" {
		return fmt.Errorf("current_password and new_password are required")
	}
	if utf8.RuneCountInString(r.NewPassword) < 8 {
		return fmt.Errorf("new password must be at least 8 characters")
	}
	return nil
}

// isValidUsernameChar, username'de izin verilen karakterleri kontrol eder.
func isValidUsernameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_'
}
