// Package ratelimit — brute-force saldırılarına karşı IP bazlı
// deneme sınırlama.
//
// Tasarım:
// - Her IP için sliding window ile deneme sayısı tutulur.
// - Window içinde limit aşılırsa istek reddedilir, caller 429 döner.
// - Başarılı login sonrası Reset() ile sayaç temizlenir.
// - Background goroutine süresi dolmuş kayıtları siler (memory leak engeli).
//
// Neden in-memory?
// Tek instance deploy'da Redis bağımlılığı gereksiz; SQLite'a her istekte
// yazmak da I/O + contention demek. sync.Mutex ile thread-safe map yeterli.
//
// pkg/ratelimit hiçbir proje içi pakete bağımlı değildir (leaf dependency) —
// handlers ↔ middleware arasında import cycle riski yoktur.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// entry, bir IP'nin mevcut penceresindeki deneme sayısı.
type entry struct {
	count       int
	windowStart time.Time
}

// AttemptLimiter, anahtara (IP) göre sliding-window deneme sınırlayıcı.
//
// Kullanım:
//
//	limiter := NewAttemptLimiter(5, 2*time.Minute)
//	if !limiter.Allow(ip) { /* 429 + Retry-After */ }
//	// başarılı login:
//	limiter.Reset(ip)
type AttemptLimiter struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxAttempts int
	window      time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

// NewAttemptLimiter, limiter'ı oluşturur ve temizleme goroutine'ini başlatır.
// maxAttempts: pencere başına izin verilen deneme (ör: 5).
// window: pencere süresi (ör: 2*time.Minute).
func NewAttemptLimiter(maxAttempts int, window time.Duration) *AttemptLimiter {
	l := &AttemptLimiter{
		entries:     make(map[string]*entry),
		maxAttempts: maxAttempts,
		window:      window,
		done:        make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow, verilen anahtarın bir deneme daha yapmasına izin var mı kontrol eder.
// Her çağrı sayacı artırır — istek başarılı olsun olmasın deneme sayılır.
func (l *AttemptLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) > l.window {
		// İlk deneme veya pencere dolmuş — yeni pencere başlat
		l.entries[key] = &entry{count: 1, windowStart: now}
		return true
	}

	e.count++
	return e.count <= l.maxAttempts
}

// Reset, başarılı login sonrası sayacı temizler.
// Temizlenmezse meşru kullanıcı sonraki denemelerinde bloke olabilir.
func (l *AttemptLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// RetryAfterSeconds, limitin kalkmasına kalan süre (saniye).
// HTTP Retry-After header değeri olarak kullanılır.
func (l *AttemptLimiter) RetryAfterSeconds(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return 0
	}

	remaining := l.window - time.Since(e.windowStart)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1 // yukarı yuvarla — client tam süreyi beklesin
}

// Close, temizleme goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (l *AttemptLimiter) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

func (l *AttemptLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.done:
			return
		}
	}
}

func (l *AttemptLimiter) cleanup() {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if now.Sub(e.windowStart) > l.window {
			delete(l.entries, key)
		}
	}
}

// ExtractIP, HTTP request'ten client IP adresini çıkarır.
//
// Öncelik: X-Forwarded-For (ilk IP) → X-Real-IP → RemoteAddr.
// Production'da uygulama genellikle nginx/Caddy arkasındadır; RemoteAddr
// o durumda proxy'nin IP'sidir, gerçek client header'lardadır.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// "client, proxy1, proxy2" — ilk değer gerçek client
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormatRetryMessage, kalan süreyi okunabilir formata çevirir.
// Örn: 120 → "2 minute(s)", 45 → "45 second(s)"
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
