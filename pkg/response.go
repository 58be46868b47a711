package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Tüm API yanıtları için standart zarf (envelope).
// Frontend her zaman aynı yapıyı bekler — tutarlılık önemli.
//
// Başarılı yanıt:  {"statusCode":200,"data":{...},"message":"ok","success":true}
// Hatalı yanıt:    {"statusCode":401,"success":false,"message":"...","errors":[]}
//
// İki ayrı struct kullanılır: başarı zarfında errors alanı hiç görünmez,
// hata zarfında ise boş bile olsa her zaman bir dizi olarak bulunur.
type successResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorResponse struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

// JSON, başarılı bir yanıt gönderir.
// "any" Go'da generic tip — herhangi bir veri tipini kabul eder.
func JSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := successResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// Error, hata yanıtı gönderir.
// Domain error'ları otomatik olarak uygun HTTP status code'a çevrilir.
func Error(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToStatus(err), err.Error(), nil)
}

// ErrorWithMessage, özel mesajlı hata yanıtı gönderir.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	writeError(w, status, message, nil)
}

// ErrorWithDetails, mesaja ek detay satırları (ör. alan bazlı validation
// hataları) içeren hata yanıtı gönderir.
func ErrorWithDetails(w http.ResponseWriter, err error, details []string) {
	writeError(w, mapErrorToStatus(err), err.Error(), details)
}

func writeError(w http.ResponseWriter, status int, message string, details []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// errors alanı her zaman dizi — detay yoksa boş dizi, null değil
	if details == nil {
		details = []string{}
	}

	resp := errorResponse{
		StatusCode: status,
		Success:    false,
		Message:    message,
		Errors:     details,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode error response", http.StatusInternalServerError)
	}
}

// mapErrorToStatus, domain error'ları HTTP status code'larına eşler.
// errors.Is() kullanarak error chain'ini kontrol eder —
// wrap edilmiş error'lar da doğru match eder.
func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	default:
		// ErrHashCorrupt ve ErrInternal dahil — detay sızdırmadan 500
		return http.StatusInternalServerError
	}
}
