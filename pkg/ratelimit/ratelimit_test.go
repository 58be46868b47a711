package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptLimiter_AllowAndBlock(t *testing.T) {
	l := NewAttemptLimiter(3, time.Minute)
	defer l.Close()

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	// 4. deneme limiti aşar
	assert.False(t, l.Allow("1.2.3.4"))

	// Başka bir IP etkilenmez
	assert.True(t, l.Allow("5.6.7.8"))
}

func TestAttemptLimiter_Reset(t *testing.T) {
	l := NewAttemptLimiter(1, time.Minute)
	defer l.Close()

	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))

	l.Reset("1.2.3.4")
	assert.True(t, l.Allow("1.2.3.4"))
}

func TestAttemptLimiter_WindowExpiry(t *testing.T) {
	l := NewAttemptLimiter(1, 50*time.Millisecond)
	defer l.Close()

	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))

	time.Sleep(60 * time.Millisecond)
	// Pencere doldu — yeni pencere başlar
	assert.True(t, l.Allow("1.2.3.4"))
}

func TestAttemptLimiter_RetryAfterSeconds(t *testing.T) {
	l := NewAttemptLimiter(1, time.Minute)
	defer l.Close()

	assert.Equal(t, 0, l.RetryAfterSeconds("unknown"))

	l.Allow("1.2.3.4")
	after := l.RetryAfterSeconds("1.2.3.4")
	assert.Greater(t, after, 0)
	assert.LessOrEqual(t, after, 61)
}

func TestExtractIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ExtractIP(r))

	r.Header.Set("X-Real-IP", "2.2.2.2")
	assert.Equal(t, "2.2.2.2", ExtractIP(r))

	// X-Forwarded-For her şeyi ezer, ilk IP alınır
	r.Header.Set("X-Forwarded-For", "3.3.3.3, 4.4.4.4")
	assert.Equal(t, "3.3.3.3", ExtractIP(r))
}

func TestFormatRetryMessage(t *testing.T) {
	assert.Equal(t, "45 second(s)", FormatRetryMessage(45))
	assert.Equal(t, "2 minute(s)", FormatRetryMessage(120))
}
