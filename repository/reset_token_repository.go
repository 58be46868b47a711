package repository

import (
	"context"

	"github.com/vidora-app/server/models"
)

// PasswordResetRepository, şifre sıfırlama token'ları için interface.
// Token'lar tek kullanımlıktır: doğrulama sonrası DeleteByUserID ile
// kullanıcının TÜM bekleyen token'ları silinir.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) error
}
