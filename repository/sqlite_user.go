package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vidora-app/server/database"
	"github.com/vidora-app/server/models"
	"github.com/vidora-app/server/pkg"
)

// userColumns, SELECT sorgularında dönen kolonlar.
// password_hash ve refresh_token da dahildir — dışarı sızdırmama sorumluluğu
// model'in json tag'lerinde (`json:"-"`) ve service katmanındadır.
const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, password_hash, refresh_token, created_at`

// sqliteUserRepo, UserRepository interface'inin SQLite implementasyonu.
type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo, constructor.
// UserRepository interface'i döner (concrete struct değil) — Dependency Inversion.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, full_name, avatar_url, cover_image_url, password_hash)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.FullName,
		user.AvatarURL,
		user.CoverImageURL,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		// UNIQUE constraint violation → kullanıcı adı veya email zaten var
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users.email") {
				return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
			}
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *sqliteUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	// username ve email kolonları COLLATE NOCASE — karşılaştırma case-insensitive.
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ?`
	return r.getOne(ctx, query, identifier, identifier)
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *sqliteUserRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET full_name = ?, email = ?, avatar_url = ?, cover_image_url = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		user.FullName, user.Email, user.AvatarURL, user.CoverImageURL, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return requireAffected(result)
}

func (r *sqliteUserRepo) UpdatePassword(ctx context.Context, userID string, newPasswordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, newPasswordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(result)
}

func (r *sqliteUserRepo) SetRefreshToken(ctx context.Context, userID string, token string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = ? WHERE id = ?`, token, userID)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	return requireAffected(result)
}

// RotateRefreshToken, refresh rotation'ın compare-and-swap adımı.
//
// Okuma + yazma iki ayrı statement olsaydı, aynı token'la gelen iki eşzamanlı
// refresh isteği ikisi de eşleşme kontrolünden geçip ikisi de yeni token
// üretebilirdi. Tek koşullu UPDATE ile karşılaştırma ve yazma atomiktir:
// yalnızca saklanan değer hâlâ oldToken olan istek satırı günceller,
// kaybeden isteğin RowsAffected'ı 0 olur.
func (r *sqliteUserRepo) RotateRefreshToken(ctx context.Context, userID string, oldToken, newToken string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = ? WHERE id = ? AND refresh_token = ?`,
		newToken, userID, oldToken)
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *sqliteUserRepo) ClearRefreshToken(ctx context.Context, userID string) error {
	// Koşulsuz NULL — token zaten NULL olsa bile başarılıdır (idempotent logout).
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = NULL WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return requireAffected(result)
}

// getOne, tek satır dönen SELECT'ler için ortak scan yardımcısı.
func (r *sqliteUserRepo) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.AvatarURL, &user.CoverImageURL, &user.PasswordHash,
		&user.RefreshToken, &user.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// requireAffected, UPDATE sonucunda en az bir satır etkilenmesini bekler.
// 0 satır → kullanıcı yok.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// isUniqueViolation, SQLite UNIQUE constraint hatasını kontrol eder.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
