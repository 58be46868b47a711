// Package database — Transaction yönetimi.
//
// WithTx, birden fazla DB operasyonunun atomik (all-or-nothing) çalışmasını
// sağlar. Şifre sıfırlama gibi çok adımlı yazma işlemlerinde kullanılır:
// şifre güncelle + reset token'ları sil + refresh token'ı iptal et —
// ya hepsi ya hiçbiri.
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxQuerier, hem *sql.DB hem *sql.Tx tarafından karşılanan interface.
//
// Repository'ler bu interface'i dependency olarak alır —
// normal operasyonlarda *sql.DB, transaction içinde *sql.Tx geçilebilir.
// Go'nun database/sql paketinde bu interface tanımlı değildir;
// duck typing sayesinde ikisi de otomatik karşılar.
type TxQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx, verilen fonksiyonu bir SQL transaction içinde çalıştırır.
//
// Davranış:
//  1. BEGIN TRANSACTION
//  2. fn(tx) çağır
//  3. fn nil dönerse → COMMIT
//  4. fn error dönerse → ROLLBACK
//  5. fn panic atarsa → ROLLBACK + panic'i tekrar fırlat
//
// Panic recovery olmadan açık kalan transaction DB lock'a neden olabilir.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}

		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return
}
