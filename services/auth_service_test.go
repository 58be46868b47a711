package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidora-app/server/config"
	"github.com/vidora-app/server/database"
	"github.com/vidora-app/server/models"
	"github.com/vidora-app/server/pkg"
	"github.com/vidora-app/server/repository"
)

// fakeEmailSender, gönderilen reset token'larını yakalar — gerçek email gitmez.
type fakeEmailSender struct {
	mu     sync.Mutex
	tokens map[string]string // email → son gönderilen plaintext token
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{tokens: make(map[string]string)}
}

func (f *fakeEmailSender) SendPasswordReset(_ context.Context, toEmail, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[toEmail] = token
	return nil
}

func (f *fakeEmailSender) lastToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[email]
}

type testEnv struct {
	auth      AuthService
	userRepo  repository.UserRepository
	resetRepo repository.PasswordResetRepository
	sender    *fakeEmailSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(dsn, database.EmbeddedMigrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Hour,
		},
		Auth: config.AuthConfig{BcryptCost: 4}, // testlerde hız önemli
	}

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	resetRepo := repository.NewSQLiteResetTokenRepo(db.Conn)
	sender := newFakeEmailSender()

	return &testEnv{
		auth:      NewAuthService(db.Conn, userRepo, resetRepo, sender, cfg),
		userRepo:  userRepo,
		resetRepo: resetRepo,
		sender:    sender,
	}
}

func registerAlice(t *testing.T, env *testEnv) *models.User {
	t.Helper()

	user, err := env.auth.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Example",
		Password: "password123",
	}, "/api/uploads/avatar_a.png", nil)
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	user := registerAlice(t, env)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash, "dönen kullanıcı sanitize edilmiş olmalı")
	assert.Nil(t, user.RefreshToken)

	// Duplicate username
	_, err := env.auth.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		FullName: "Other",
		Password: "password123",
	}, "/api/uploads/avatar_b.png", nil)
	assert.True(t, errors.Is(err, pkg.ErrAlreadyExists))

	// Validation hatası
	_, err = env.auth.Register(context.Background(), &models.RegisterRequest{
		Username: "x",
		Email:    "bad",
		FullName: "",
		Password: "short",
	}, "/api/uploads/avatar_c.png", nil)
	assert.True(t, errors.Is(err, pkg.ErrValidation))

	// Avatar zorunlu
	_, err = env.auth.Register(context.Background(), &models.RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		FullName: "Bob",
		Password: "password123",
	}, "", nil)
	assert.True(t, errors.Is(err, pkg.ErrValidation))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	ctx := context.Background()

	// Username ile
	result, err := env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.NotEqual(t, result.AccessToken, result.RefreshToken)
	assert.Empty(t, result.User.PasswordHash)

	// Email ile, büyük harfle
	result2, err := env.auth.Login(ctx, &models.LoginRequest{Identifier: "ALICE@EXAMPLE.COM", Password: "password123"})
	require.NoError(t, err)

	// İkinci login öncekinin refresh token'ını ezer — hesap başına tek oturum
	_, err = env.auth.Refresh(ctx, result.RefreshToken)
	assert.True(t, errors.Is(err, pkg.ErrTokenRevoked))
	_, err = env.auth.Refresh(ctx, result2.RefreshToken)
	assert.NoError(t, err)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	ctx := context.Background()

	// Yanlış şifre
	_, err := env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "wrong-password"})
	assert.True(t, errors.Is(err, pkg.ErrInvalidCredentials))

	// Var olmayan hesap — AYNI hata döner, NotFound sızdırılmaz (enumeration koruması)
	_, err = env.auth.Login(ctx, &models.LoginRequest{Identifier: "nobody", Password: "whatever"})
	assert.True(t, errors.Is(err, pkg.ErrInvalidCredentials))
	assert.False(t, errors.Is(err, pkg.ErrNotFound))
}

func TestValidateAccessToken(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)

	result, err := env.auth.Login(context.Background(), &models.LoginRequest{Identifier: "alice", Password: "password123"})
	require.NoError(t, err)

	claims, err := env.auth.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Alice Example", claims.FullName)

	// Kırpılmış token → ErrInvalidToken (imza doğrulanamaz)
	_, err = env.auth.ValidateAccessToken(result.AccessToken[:len(result.AccessToken)-5])
	assert.True(t, errors.Is(err, pkg.ErrInvalidToken))

	// Refresh token access endpoint'inde geçmez — farklı secret ile imzalı
	_, err = env.auth.ValidateAccessToken(result.RefreshToken)
	assert.True(t, errors.Is(err, pkg.ErrInvalidToken))

	_, err = env.auth.ValidateAccessToken("garbage")
	assert.True(t, errors.Is(err, pkg.ErrInvalidToken))
}

func TestRefresh_Rotation(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	ctx := context.Background()

	result, err := env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "password123"})
	require.NoError(t, err)

	// İlk refresh başarılı, yeni çift döner
	pair, err := env.auth.Refresh(ctx, result.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, result.RefreshToken, pair.RefreshToken)

	// Eski token'ın tekrar kullanımı → revoked
	_, err = env.auth.Refresh(ctx, result.RefreshToken)
	assert.True(t, errors.Is(err, pkg.ErrTokenRevoked))

	// Yeni token çalışmaya devam eder
	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_Errors(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	ctx := context.Background()

	// Boş token → unauthenticated
	_, err := env.auth.Refresh(ctx, "")
	assert.True(t, errors.Is(err, pkg.ErrUnauthenticated))

	// Bozuk token → invalid
	_, err = env.auth.Refresh(ctx, "not.a.jwt")
	assert.True(t, errors.Is(err, pkg.ErrInvalidToken))

	// Access token refresh endpoint'inde geçmez
	result, err := env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "password123"})
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, result.AccessToken)
	assert.True(t, errors.Is(err, pkg.ErrInvalidToken))
}

func TestRefresh_Concurrent_SingleWinner(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	ctx := context.Background()

	result, err := env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "password123"})
	require.NoError(t, err)

	// Aynı refresh token'la eşzamanlı istekler — tam olarak biri kazanmalı
	const n = 5
	var wg sync.WaitGroup
	outcomes := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.auth.Refresh(ctx, result.RefreshToken)
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	winners, losers := 0, 0
	for err := range outcomes {
		if err == nil {
			winners++
		} else {
			require.True(t, errors.Is(err, pkg.ErrTokenRevoked), "kaybeden istek revoked almalı, aldı: %v", err)
			losers++
		}
	}

	assert.Equal(t, 1, winners)
	assert.Equal(t, n-1, losers)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)
	ctx := context.Background()

	result, err := env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, user.ID))

	// Logout sonrası refresh token geçersiz — imzası hâlâ doğru olsa bile
	_, err = env.auth.Refresh(ctx, result.RefreshToken)
	assert.True(t, errors.Is(err, pkg.ErrTokenRevoked))

	// İkinci logout da başarılı (idempotent)
	require.NoError(t, env.auth.Logout(ctx, user.ID))
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)
	ctx := context.Background()

	// Yanlış mevcut şifre
	err := env.auth.ChangePassword(ctx, user.ID, "wrong", "newpassword1")
	assert.True(t, errors.Is(err, pkg.ErrInvalidCredentials))

	// Yeni şifre eskisiyle aynı
	err = env.auth.ChangePassword(ctx, user.ID, "password123", "password123")
	assert.True(t, errors.Is(err, pkg.ErrValidation))

	// Başarılı değişiklik
	require.NoError(t, env.auth.ChangePassword(ctx, user.ID, "password123", "newpassword1"))

	_, err = env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "password123"})
	assert.True(t, errors.Is(err, pkg.ErrInvalidCredentials))
	_, err = env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "newpassword1"})
	assert.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	ctx := context.Background()

	// Login ol — reset sonrası oturumun düştüğünü doğrulayacağız
	result, err := env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "password123"})
	require.NoError(t, err)

	// Bilinmeyen email sessizce yutulur, email gitmez
	cooldown, err := env.auth.ForgotPassword(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, cooldown)
	assert.Empty(t, env.sender.lastToken("ghost@example.com"))

	// Bilinen email'e token gönderilir
	cooldown, err = env.auth.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, cooldown)
	plainToken := env.sender.lastToken("alice@example.com")
	require.NotEmpty(t, plainToken)

	// Hemen ikinci istek cooldown'a takılır
	cooldown, err = env.auth.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Greater(t, cooldown, 0)

	// Token ile şifre sıfırla
	require.NoError(t, env.auth.ResetPassword(ctx, plainToken, "brandnewpass1"))

	// Yeni şifre çalışır, eski çalışmaz
	_, err = env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "password123"})
	assert.True(t, errors.Is(err, pkg.ErrInvalidCredentials))
	_, err = env.auth.Login(ctx, &models.LoginRequest{Identifier: "alice", Password: "brandnewpass1"})
	assert.NoError(t, err)

	// Reset, aktif oturumu da düşürür
	_, err = env.auth.Refresh(ctx, result.RefreshToken)
	assert.True(t, errors.Is(err, pkg.ErrTokenRevoked))

	// Token tek kullanımlık — ikinci kullanım geçmez
	err = env.auth.ResetPassword(ctx, plainToken, "anotherpass1")
	assert.True(t, errors.Is(err, pkg.ErrInvalidToken))
}

// Her ForgotPassword çağrısı süresi geçmiş token'ları fırsatçı olarak
// temizler — tablo zamanla birikmez.
func TestForgotPassword_SweepsExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)
	ctx := context.Background()

	staleHash := sha256Hex("stale-token")
	require.NoError(t, env.resetRepo.Create(ctx, &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: staleHash,
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	// Bilinmeyen email bile temizliği tetikler
	_, err := env.auth.ForgotPassword(ctx, "ghost@example.com")
	require.NoError(t, err)

	_, err = env.resetRepo.GetByTokenHash(ctx, staleHash)
	assert.True(t, errors.Is(err, pkg.ErrNotFound))
}

func TestResetPassword_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	err := env.auth.ResetPassword(context.Background(), "no-such-token", "newpassword1")
	assert.True(t, errors.Is(err, pkg.ErrInvalidToken))
}
