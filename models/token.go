package models

import "github.com/golang-jwt/jwt/v5"

// AccessTokenClaims, access token'ın içindeki veriler (payload).
//
// JWT (JSON Web Token) 3 parçadan oluşur: header.payload.signature
// Payload'da kullanıcı kimliği ve token'ın expire süresi bulunur.
// Server her request'te imzayı doğrular — DB'ye gitmeden
// token'ın kimin adına düzenlendiğini bilir.
//
// Bu struct'lar models paketinde tanımlanır çünkü birden fazla katman
// (services, middleware) tarafından kullanılır — circular dependency'yi önler.
type AccessTokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims, refresh token'ın payload'ı.
//
// Bilinçli olarak access token'dan daha dar: sadece user_id taşır.
// Refresh token AYRI bir secret ile imzalanır ve claim şekli farklıdır —
// bir access token refresh olarak (veya tersi) replay edilemez.
//
// Refresh token'ın geçerliliği iki aşamalıdır:
//  1. İmza + expiry (stateless, burada temsil edilen kısım)
//  2. users.refresh_token kolonundaki değerle BİREBİR eşleşme (stateful)
//
// İkinci kontrol sayesinde kriptografik olarak hâlâ geçerli bir token
// server tarafında iptal edilebilir (logout, rotation).
type RefreshTokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
