// Package services, business logic katmanını barındırır.
//
// Service Layer Pattern nedir?
// Handler (HTTP) ile Repository (DB) arasında oturan katmandır.
// Tüm iş kuralları burada yaşar:
//   - Şifre hash'leme
//   - JWT token üretme/doğrulama
//   - Refresh token rotation
//
// Service ASLA http.Request/Response bilmez — sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz — Repository interface'i kullanır.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vidora-app/server/config"
	"github.com/vidora-app/server/database"
	"github.com/vidora-app/server/models"
	"github.com/vidora-app/server/pkg"
	"github.com/vidora-app/server/pkg/cache"
	"github.com/vidora-app/server/pkg/crypto"
	"github.com/vidora-app/server/pkg/email"
	"github.com/vidora-app/server/repository"
)

// resetTokenTTL, şifre sıfırlama token'ının geçerlilik süresi.
const resetTokenTTL = 20 * time.Minute

// forgotPasswordCooldown, aynı email'e art arda reset isteği arası bekleme.
const forgotPasswordCooldown = 90 * time.Second

// AuthService interface'i — dışarıya açık API.
// Handler ve middleware bu interface'e bağımlıdır, concrete struct'a değil.
type AuthService interface {
	// Register, yeni hesap oluşturur. Avatar/kapak URL'leri upload service
	// tarafından önceden üretilmiş olarak gelir. Otomatik login YAPMAZ.
	Register(ctx context.Context, req *models.RegisterRequest, avatarURL string, coverImageURL *string) (*models.User, error)
	// Login, kimlik bilgilerini doğrular ve token çifti üretir.
	Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error)
	// Refresh, geçerli bir refresh token'ı yeni bir çiftle değiştirir (rotation).
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout, hesabın saklanan refresh token'ını koşulsuz iptal eder. İdempotent.
	Logout(ctx context.Context, userID string) error
	// ValidateAccessToken, access token'ı doğrular ve claims'i döner.
	// Her iç parse hatası pkg.ErrInvalidToken olarak surface edilir.
	ValidateAccessToken(tokenString string) (*models.AccessTokenClaims, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	// ForgotPassword, reset emaili gönderir. Kalan cooldown saniyesini döner
	// (0 = email gönderildi veya sessizce yutuldu — enumeration koruması).
	ForgotPassword(ctx context.Context, emailAddr string) (int, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// TokenPair, access + refresh token çifti.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult, login sonrası dönen token çifti + sanitize edilmiş kullanıcı.
type AuthResult struct {
	TokenPair
	User *models.User `json:"user"`
}

// authService, AuthService interface'inin implementasyonu.
type authService struct {
	db            *sql.DB
	userRepo      repository.UserRepository
	resetRepo     repository.PasswordResetRepository
	emailSender   email.EmailSender // nil olabilir — email devre dışı
	accessSecret  []byte
	refreshSecret []byte
	accessExp     time.Duration
	refreshExp    time.Duration
	bcryptCost    int
	// resetCooldown, email → son istek zamanı. Reset emaili spam'ini önler.
	resetCooldown *cache.TTLCache[string, time.Time]
}

// NewAuthService, constructor.
// db bağlantısı, ResetPassword'un çok adımlı yazmasını transaction'a
// almak için repo'ların yanında ayrıca alınır.
func NewAuthService(
	db *sql.DB,
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	emailSender email.EmailSender,
	cfg *config.Config,
) AuthService {
	return &authService{
		db:            db,
		userRepo:      userRepo,
		resetRepo:     resetRepo,
		emailSender:   emailSender,
		accessSecret:  []byte(cfg.JWT.AccessSecret),
		refreshSecret: []byte(cfg.JWT.RefreshSecret),
		accessExp:     cfg.JWT.AccessExpiry,
		refreshExp:    cfg.JWT.RefreshExpiry,
		bcryptCost:    cfg.Auth.BcryptCost,
		resetCooldown: cache.New[string, time.Time](forgotPasswordCooldown, 5*time.Minute),
	}
}

// Register, yeni kullanıcı kaydı oluşturur.
//
// Şifre, persistence'tan ÖNCE hash'lenir ve hash'leme sonucu beklenir —
// plaintext veya yarım kalmış bir değer hiçbir koşulda DB'ye gitmez.
// Duplicate username/email kontrolü repository'deki UNIQUE constraint'e
// bırakılır (check-then-insert yarışını önler).
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest, avatarURL string, coverImageURL *string) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err.Error())
	}
	if avatarURL == "" {
		return nil, fmt.Errorf("%w: avatar image is required", pkg.ErrValidation)
	}

	hash, err := crypto.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:      req.Username,
		Email:         req.Email,
		FullName:      req.FullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverImageURL,
		PasswordHash:  hash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err // ErrAlreadyExists olabilir
	}

	return sanitize(user), nil
}

// Login, kullanıcı girişi yapar.
//
// "Hesap yok" ve "şifre yanlış" içeride ayrı tespit edilir ama dışarıya
// AYNI hata ile döner (ErrInvalidCredentials) — kullanıcı enumeration'ı
// önlemek için hangi durumun gerçekleştiği açık edilmez.
//
// Başarılı login saklanan refresh token'ı koşulsuz ezer: hesap başına
// tek aktif oturum vardır, önceki cihazın oturumu implicit olarak düşer.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err.Error())
	}

	user, err := s.userRepo.GetByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: incorrect username/email or password", pkg.ErrInvalidCredentials)
		}
		return nil, err
	}

	ok, err := crypto.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, err // ErrHashCorrupt → 500
	}
	if !ok {
		return nil, fmt.Errorf("%w: incorrect username/email or password", pkg.ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	return &AuthResult{TokenPair: *pair, User: sanitize(user)}, nil
}

// Refresh, refresh token rotation yapar.
//
// Akış (sıra önemli):
//  1. Token boşsa → ErrUnauthenticated
//  2. İmza + expiry doğrula → bozuksa ErrInvalidToken
//  3. Subject kullanıcıyı bul → yoksa ErrInvalidToken
//  4. Saklanan token'la BİREBİR karşılaştır → farklıysa ErrTokenRevoked
//     (logout edilmiş veya rotation sonrası eski token'ın tekrar kullanımı)
//  5. Yeni çift üret, compare-and-swap ile yaz → CAS kaybedilirse ErrTokenRevoked
//
// Adım 4 erken çıkış içindir; asıl yarış güvenliği adım 5'teki tek koşullu
// UPDATE'tedir. Aynı token'la gelen iki eşzamanlı refresh'ten yalnızca biri
// satırı günceller; diğeri ErrTokenRevoked alır ve client yeniden login olur.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token required", pkg.ErrUnauthenticated)
	}

	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", pkg.ErrInvalidToken)
		}
		return nil, err
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, pkg.ErrTokenRevoked
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	rotated, err := s.userRepo.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !rotated {
		// Eşzamanlı bir refresh/logout bizden önce davrandı.
		return nil, pkg.ErrTokenRevoked
	}

	return pair, nil
}

// Logout, saklanan refresh token'ı NULL'lar.
// Token zaten NULL olsa bile başarılıdır — idempotent.
// Dolaşımdaki access token'lar expiry'lerine kadar stateless geçerli kalır;
// iptal edilen şey refresh yeteneğidir.
func (s *authService) Logout(ctx context.Context, userID string) error {
	return s.userRepo.ClearRefreshToken(ctx, userID)
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
//
// Parser'ın kendi hataları (malformed, expired, imza uyuşmazlığı...)
// olduğu gibi sızdırılMAZ — hepsi ErrInvalidToken'a map edilir.
// Middleware tek bir sentinel ile çalışır, jwt paketinin iç hata
// tiplerini bilmek zorunda kalmaz.
func (s *authService) ValidateAccessToken(tokenString string) (*models.AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.accessSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", pkg.ErrInvalidToken)
	}

	return claims, nil
}

// ChangePassword, kullanıcının şifresini değiştirir.
func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := crypto.CheckPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: current password is incorrect", pkg.ErrInvalidCredentials)
	}

	if currentPassword == newPassword {
		return fmt.Errorf("%w: new password must be different from current password", pkg.ErrValidation)
	}

	newHash, err := crypto.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(ctx, userID, newHash)
}

// ForgotPassword, şifre sıfırlama emaili gönderir.
//
// Güvenlik: email DB'de olmasa bile hata DÖNMEZ (enumeration koruması) —
// caller her durumda aynı success yanıtını verir.
// Cooldown: aynı email'e 90 saniyede 1 istek; aktifse kalan süre döner.
func (s *authService) ForgotPassword(ctx context.Context, emailAddr string) (int, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	if last, ok := s.resetCooldown.Get(emailAddr); ok {
		remaining := forgotPasswordCooldown - time.Since(last)
		if remaining > 0 {
			return int(remaining.Seconds()) + 1, nil
		}
	}
	s.resetCooldown.Set(emailAddr, time.Now())

	// Fırsatçı temizlik: süresi geçmiş token'lar tabloda birikmesin.
	// Best-effort — başarısız olursa akış devam eder.
	if err := s.resetRepo.DeleteExpired(ctx); err != nil {
		log.Printf("[auth] expired reset token cleanup failed: %v", err)
	}

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return 0, nil // hesap yok — sessizce yut
		}
		return 0, err
	}

	// Plaintext token sadece email'e gider; DB'ye SHA256 hash'i yazılır.
	plainToken, err := randomHex(32)
	if err != nil {
		return 0, fmt.Errorf("failed to generate reset token: %w", err)
	}
	tokenHash := sha256Hex(plainToken)

	// Önceki bekleyen token'ları geçersiz kıl — aynı anda tek token.
	if err := s.resetRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return 0, err
	}
	if err := s.resetRepo.Create(ctx, &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}); err != nil {
		return 0, err
	}

	if s.emailSender == nil {
		log.Printf("[auth] email disabled; reset token for %s not sent", emailAddr)
		return 0, nil
	}
	if err := s.emailSender.SendPasswordReset(ctx, emailAddr, plainToken); err != nil {
		return 0, fmt.Errorf("%w: %v", pkg.ErrInternal, err)
	}

	return 0, nil
}

// ResetPassword, email'deki token ile şifre sıfırlar.
//
// Üç yazma tek transaction'da yapılır (all-or-nothing):
// şifre güncelle + kullanıcının tüm reset token'larını sil +
// saklanan refresh token'ı iptal et (oturum düşür).
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	record, err := s.resetRepo.GetByTokenHash(ctx, sha256Hex(token))
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrInvalidToken)
		}
		return err
	}
	if time.Now().After(record.ExpiresAt) {
		_ = s.resetRepo.DeleteByUserID(ctx, record.UserID)
		return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrInvalidToken)
	}

	newHash, err := crypto.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		userRepoTx := repository.NewSQLiteUserRepo(tx)
		resetRepoTx := repository.NewSQLiteResetTokenRepo(tx)

		if err := userRepoTx.UpdatePassword(ctx, record.UserID, newHash); err != nil {
			return err
		}
		if err := resetRepoTx.DeleteByUserID(ctx, record.UserID); err != nil {
			return err
		}
		return userRepoTx.ClearRefreshToken(ctx, record.UserID)
	})
}

// ─── Private Helpers ───

// issueTokenPair, access + refresh token üretir. Yan etkisi yoktur —
// persistence caller'ın sorumluluğudur (SetRefreshToken / RotateRefreshToken).
func (s *authService) issueTokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) issueAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.AccessTokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "vidora",
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *authService) issueRefreshToken(user *models.User) (string, error) {
	// jti olmadan aynı saniye içinde üretilen iki token bayt bayt aynı olurdu
	// (iat/exp saniye hassasiyetinde) — rotation'da eski ve yeni değer
	// ayırt edilemezdi. Random jti her token'ı benzersiz kılar.
	jti, err := randomHex(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	now := time.Now()
	claims := &models.RefreshTokenClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "vidora",
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// parseRefreshToken, refresh token imzasını ve expiry'sini doğrular.
// Refresh secret'ı ile — access token burada ASLA geçmez.
func (s *authService) parseRefreshToken(tokenString string) (*models.RefreshTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.RefreshTokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.refreshSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.RefreshTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", pkg.ErrInvalidToken)
	}

	return claims, nil
}

// sanitize, API'ye dönecek kullanıcı kopyasından hassas alanları temizler.
// json:"-" tag'leri zaten serialize etmez; bu ikinci bir güvence —
// sanitize edilmiş nesne loglansa bile hash/token içermez.
func sanitize(user *models.User) *models.User {
	clean := *user
	clean.PasswordHash = ""
	clean.RefreshToken = nil
	return &clean
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
