// Package repository, veritabanı erişim katmanını tanımlar.
//
// Repository Pattern nedir?
// Veritabanı işlemlerini (CRUD) soyutlayan bir tasarım kalıbıdır.
// Service katmanı doğrudan SQL yazmaz — repository interface'i üzerinden çalışır.
//
// Neden interface?
// 1. Test: Mock repository yazarak DB olmadan test edebilirsin
// 2. Esneklik: SQLite'tan PostgreSQL'e geçmek istersen sadece yeni implementasyon yazarsın
// 3. SOLID (Dependency Inversion): Service, concrete struct'a değil interface'e bağımlı
package repository

import (
	"context"

	"github.com/vidora-app/server/models"
)

// UserRepository, kullanıcı veritabanı işlemleri için interface.
//
// Refresh token'a dair üç ayrı operasyon bilinçli olarak ayrıdır:
//   - SetRefreshToken: login — önceki değeri koşulsuz ezer
//     (önceki oturumun token'ı implicit olarak iptal olur)
//   - RotateRefreshToken: refresh — compare-and-swap; sadece saklanan değer
//     beklenen eski token'a eşitse yeni token yazılır. İki eşzamanlı refresh
//     aynı eski token'la yarışırsa yalnızca biri kazanır.
//   - ClearRefreshToken: logout — koşulsuz NULL, idempotent
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIdentifier, username VEYA email ile kullanıcı arar (case-insensitive).
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Update, profil alanlarını günceller (full_name, email, avatar, kapak resmi).
	Update(ctx context.Context, user *models.User) error
	// UpdatePassword, kullanıcının şifre hash'ini günceller.
	// AuthService.ChangePassword/ResetPassword tarafından çağrılır — yeni bcrypt hash alır.
	UpdatePassword(ctx context.Context, userID string, newPasswordHash string) error
	SetRefreshToken(ctx context.Context, userID string, token string) error
	// RotateRefreshToken, tek bir koşullu UPDATE ile rotation yapar.
	// false döner ve hata vermezse: saklanan token oldToken'a eşit değildi
	// (revoke edilmiş veya başka bir refresh kazanmış).
	RotateRefreshToken(ctx context.Context, userID string, oldToken, newToken string) (bool, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}
