// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir (string taşıyan struct'lar).
// errors.New() ile sabit error değişkenleri tanımlarız.
// Böylece error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrInvalidToken) { ... }
//
// Bu, typo'ya açık string karşılaştırmasından çok daha güvenlidir.
package pkg

import "errors"

// Domain-level error'lar.
// Service katmanı bunları döner, handler katmanı HTTP status code'larına map'ler.
//
// Auth akışında üç ayrı 401 sebebi vardır ve ayrı sentinel'lerle temsil edilir:
//   - ErrUnauthenticated: istek hiç token taşımıyor
//   - ErrInvalidToken: token var ama imza/expiry/subject geçersiz
//   - ErrTokenRevoked: refresh token imza olarak geçerli ama artık güncel değil
//     (logout edilmiş veya rotation ile eskimiş) — client yeniden login olmalı
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("refresh token revoked or stale")
	ErrAlreadyExists      = errors.New("already exists")
	ErrHashCorrupt        = errors.New("stored password hash is corrupt")
	ErrInternal           = errors.New("internal error")
)
