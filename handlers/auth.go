// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'ın görevi çok basit ve "ince" (thin) olmalı:
// 1. Request body'yi parse et (JSON/multipart → struct)
// 2. Service katmanını çağır
// 3. Sonucu HTTP response olarak döndür
//
// Handler ASLA iş mantığı (business logic) içermez.
// Handler ASLA doğrudan DB'ye erişmez.
// Tüm akıl service'de, handler sadece köprü.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vidora-app/server/models"
	"github.com/vidora-app/server/pkg"
	"github.com/vidora-app/server/pkg/ratelimit"
	"github.com/vidora-app/server/services"
)

// UserContextKey, context'te kullanıcı bilgisi taşımak için kullanılan key tipi.
//
// Go'da context.Value() any tip kabul eder — string key kullanmak çakışmaya neden olabilir.
// Özel bir tip tanımlayarak namespace collision'ı önleriz.
type contextKey string

const UserContextKey contextKey = "user"

// GetUserFromContext, auth middleware'ın context'e koyduğu kullanıcıyı okur.
// Middleware'dan geçmemiş bir route'ta çağrılırsa (nil, false) döner.
func GetUserFromContext(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	return user, ok
}

// Cookie isimleri — frontend ile sözleşme.
const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// AuthHandler, auth endpoint'lerini yöneten struct.
// Service interface'leri ve rate limiter constructor'dan alınır (DI).
type AuthHandler struct {
	authService   services.AuthService
	uploadService services.UploadService
	loginLimiter  *ratelimit.AttemptLimiter
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthHandler, constructor.
// loginLimiter: Login brute-force koruması. nil ise rate limiting devre dışı kalır.
// accessExpiry/refreshExpiry: cookie Max-Age değerleri token ömrüyle eşleşir.
func NewAuthHandler(
	authService services.AuthService,
	uploadService services.UploadService,
	loginLimiter *ratelimit.AttemptLimiter,
	accessExpiry, refreshExpiry time.Duration,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		uploadService: uploadService,
		loginLimiter:  loginLimiter,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Register godoc
// POST /api/auth/register — multipart/form-data
//
// Form alanları: fullName, email, username, password
// Dosyalar: avatar (zorunlu), coverImage (opsiyonel)
//
// Kayıt otomatik login YAPMAZ — client kayıt sonrası /login'e yönlendirir.
// Kayıt başarısız olursa diske yazılmış resimler geri temizlenir.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// 16MB form limiti — avatar + kapak resmi rahat sığar
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := &models.RegisterRequest{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "avatar image is required")
		return
	}
	defer avatarFile.Close()

	avatarURL, err := h.uploadService.SaveImage("avatar", avatarFile, avatarHeader)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	// Kapak resmi opsiyonel — yoksa http.ErrMissingFile döner, sorun değil
	var coverURL *string
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()

		url, err := h.uploadService.SaveImage("cover", coverFile, coverHeader)
		if err != nil {
			h.uploadService.Remove(avatarURL)
			pkg.Error(w, err)
			return
		}
		coverURL = &url
	}

	user, err := h.authService.Register(r.Context(), req, avatarURL, coverURL)
	if err != nil {
		// Kayıt başarısız — diske yazılan resimleri temizle
		h.uploadService.Remove(avatarURL)
		if coverURL != nil {
			h.uploadService.Remove(*coverURL)
		}
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, user, "User registered Successfully")
}

// Login godoc
// POST /api/auth/login
// Body: { "identifier": "...", "password": "..." } — identifier username veya email.
//
// Başarılı login access + refresh token'ları hem httpOnly cookie olarak
// set eder hem de body'de döner (cookie kullanamayan client'lar için).
//
// Rate limiting: IP bazlı brute-force koruması.
// Limit aşıldığında 429 Too Many Requests + Retry-After header döner.
// Başarılı login sayacı sıfırlar — meşru kullanıcı bloke olmaz.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		retryAfter := h.loginLimiter.RetryAfterSeconds(ip)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many login attempts, please try again in %s",
				ratelimit.FormatRetryMessage(retryAfter)))
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ip)
	}

	h.setAuthCookies(w, &result.TokenPair)
	pkg.JSON(w, http.StatusOK, result, "User logged In Successfully")
}

// Refresh godoc
// POST /api/auth/refresh
//
// Refresh token iki yerden gelebilir (öncelik sırasıyla):
// 1. "refreshToken" cookie'si
// 2. Body: { "refresh_token": "..." }
//
// Rotation: eski token geçersizleşir, yeni çift hem cookie hem body'de döner.
// Revoke edilmiş/stale token → 401; client yeniden login olmalı.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokenString := ""
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		tokenString = c.Value
	} else {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		// Body boş olabilir — decode hatası token yokluğuyla aynı sonuca çıkar
		_ = json.NewDecoder(r.Body).Decode(&req)
		tokenString = req.RefreshToken
	}

	pair, err := h.authService.Refresh(r.Context(), tokenString)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	h.setAuthCookies(w, pair)
	pkg.JSON(w, http.StatusOK, pair, "Access token refreshed")
}

// Logout godoc
// POST /api/auth/logout
// Auth middleware gerektirir.
//
// Saklanan refresh token DB'de NULL'lanır ve cookie'ler temizlenir.
// İdempotent — zaten çıkış yapılmışsa da başarılı döner.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.authService.Logout(r.Context(), user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	h.clearAuthCookies(w)
	pkg.JSON(w, http.StatusOK, nil, "User logged Out")
}

// Me godoc
// GET /api/users/me
// Auth middleware gerektirir — context'te user bilgisi olur.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	pkg.JSON(w, http.StatusOK, user, "current user fetched Successfully")
}

// ChangePassword godoc
// POST /api/users/me/password
// Auth middleware gerektirir — kullanıcı kendi şifresini değiştirir.
//
// Body: { "current_password": "...", "new_password": "..." }
// Mevcut şifre doğrulandıktan sonra yeni hash oluşturulur.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, nil, "Password changed successfully")
}

// ForgotPassword godoc
// POST /api/auth/forgot-password
// Body: { "email": "..." }
//
// Şifre sıfırlama emaili gönderir.
// Güvenlik: Email DB'de yoksa bile aynı success yanıtı döner (enumeration koruması).
// Cooldown: Aynı email'e 90 saniyede 1 istek. Cooldown aktifse kalan süre response'ta döner.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	cooldown, err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	// Cooldown aktifse kalan süreyi response'a ekle — frontend geri sayım gösterir
	if cooldown > 0 {
		pkg.JSON(w, http.StatusOK, map[string]any{"cooldown": cooldown}, "cooldown active")
		return
	}

	pkg.JSON(w, http.StatusOK, nil, "if the email exists, a reset link has been sent")
}

// ResetPassword godoc
// POST /api/auth/reset-password
// Body: { "token": "...", "new_password": "..." }
//
// Email'deki token ile şifre sıfırlar. Token doğrulanır, şifre güncellenir,
// token silinir ve aktif oturum (refresh token) düşürülür.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, nil, "password has been reset successfully")
}

// setAuthCookies, token çiftini httpOnly cookie olarak set eder.
//
// HttpOnly: JavaScript cookie'yi okuyamaz — XSS token çalamaz.
// Secure: sadece HTTPS üzerinden gönderilir.
// SameSite=None: frontend farklı origin'de olabilir (CORS setup'ı ile birlikte).
func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(h.accessExpiry.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.refreshExpiry.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearAuthCookies, logout'ta cookie'leri geçersiz kılar (MaxAge < 0 → sil).
func (h *AuthHandler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}
