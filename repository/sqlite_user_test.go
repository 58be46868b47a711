package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidora-app/server/database"
	"github.com/vidora-app/server/models"
	"github.com/vidora-app/server/pkg"
)

// setupDB, her test için izole bir SQLite dosyası açar ve migration'ları çalıştırır.
func setupDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(dsn, database.EmbeddedMigrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestUser(username, email string) *models.User {
	return &models.User{
		Username:     username,
		Email:        email,
		FullName:     "Test User",
		AvatarURL:    "/api/uploads/avatar_test.png",
		PasswordHash: "$2a$04$fakehashfakehashfakehashfakehashfakehashfakehashfake",
	}
}

func TestSQLiteUserRepo_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	user := newTestUser("alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID, "INSERT RETURNING id doldurmalı")
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Nil(t, got.RefreshToken)
}

func TestSQLiteUserRepo_Create_Duplicate(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestUser("alice", "alice@example.com")))

	// Aynı username — COLLATE NOCASE sayesinde büyük harfle de çakışır
	err := repo.Create(ctx, newTestUser("ALICE", "other@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkg.ErrAlreadyExists))

	// Aynı email
	err = repo.Create(ctx, newTestUser("bob", "alice@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkg.ErrAlreadyExists))
}

func TestSQLiteUserRepo_GetByIdentifier(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	user := newTestUser("alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	// Username ile
	got, err := repo.GetByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// Email ile, case-insensitive
	got, err = repo.GetByIdentifier(ctx, "ALICE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// Bulunamadı
	_, err = repo.GetByIdentifier(ctx, "nobody")
	assert.True(t, errors.Is(err, pkg.ErrNotFound))
}

func TestSQLiteUserRepo_RefreshTokenLifecycle(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	user := newTestUser("alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	// Login: token set edilir
	require.NoError(t, repo.SetRefreshToken(ctx, user.ID, "token-1"))
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "token-1", *got.RefreshToken)

	// Rotation: saklanan değer eşleşiyorsa yeni token yazılır
	rotated, err := repo.RotateRefreshToken(ctx, user.ID, "token-1", "token-2")
	require.NoError(t, err)
	assert.True(t, rotated)

	// Eski token'la ikinci rotation denemesi kaybeder — CAS eşleşmez
	rotated, err = repo.RotateRefreshToken(ctx, user.ID, "token-1", "token-3")
	require.NoError(t, err)
	assert.False(t, rotated)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "token-2", *got.RefreshToken)

	// Logout: NULL'lanır, ikinci logout da başarılıdır (idempotent)
	require.NoError(t, repo.ClearRefreshToken(ctx, user.ID))
	require.NoError(t, repo.ClearRefreshToken(ctx, user.ID))

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RefreshToken)

	// NULL'lanmış token'la rotation başarısız olur
	rotated, err = repo.RotateRefreshToken(ctx, user.ID, "token-2", "token-4")
	require.NoError(t, err)
	assert.False(t, rotated)
}

func TestSQLiteUserRepo_Update(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	user := newTestUser("alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	user.FullName = "Alice Updated"
	cover := "/api/uploads/cover_xyz.png"
	user.CoverImageURL = &cover
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Updated", got.FullName)
	require.NotNil(t, got.CoverImageURL)
	assert.Equal(t, cover, *got.CoverImageURL)

	// Var olmayan kullanıcı → ErrNotFound
	ghost := newTestUser("ghost", "ghost@example.com")
	ghost.ID = "deadbeefdeadbeef"
	assert.True(t, errors.Is(repo.Update(ctx, ghost), pkg.ErrNotFound))
}

func TestSQLiteUserRepo_UpdatePassword(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	user := newTestUser("alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.True(t, errors.Is(repo.UpdatePassword(ctx, "missing-id", "x"), pkg.ErrNotFound))
}
