// Package crypto — şifre hash'leme yardımcıları.
//
// Bcrypt neden?
// - Her hash'e otomatik random salt gömülür (rainbow table koruması)
// - Cost parametresi ile kasıtlı olarak yavaştır (offline brute-force koruması)
// - Karşılaştırma constant-time'dır (timing attack koruması)
//
// Cost, config'den gelir (varsayılan 12). Cost +1 = süre x2.
package crypto

import (
	"errors"
	"fmt"

	"github.com/vidora-app/server/pkg"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword, plaintext şifreyi bcrypt ile hash'ler.
// Dönen hash salt'ı ve cost'u içerir — ayrı saklamak gerekmez.
//
// Bu fonksiyon persistence'tan ÖNCE çağrılıp sonucu beklenmelidir;
// hash'lenmemiş bir şifre hiçbir koşulda DB'ye yazılmaz.
func HashPassword(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword, plaintext şifreyi saklanan hash ile karşılaştırır.
//
// Dönüş değerleri:
//   - (true, nil): şifre doğru
//   - (false, nil): şifre yanlış — bu bir error DEĞİLDİR, normal akıştır
//   - (false, ErrHashCorrupt): saklanan hash bcrypt formatında değil —
//     veri bütünlüğü sorunu, 500 olarak surface edilmeli
func CheckPassword(plain, storedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	// Mismatch dışındaki her hata (ErrHashTooShort, InvalidHashPrefixError vb.)
	// saklanan hash'in bozuk olduğu anlamına gelir.
	return false, fmt.Errorf("%w: %v", pkg.ErrHashCorrupt, err)
}
