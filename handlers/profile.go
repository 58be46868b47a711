package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vidora-app/server/models"
	"github.com/vidora-app/server/pkg"
	"github.com/vidora-app/server/services"
)

// ProfileHandler, profil endpoint'lerini yöneten struct.
// Tüm endpoint'ler auth middleware arkasındadır — kullanıcı context'ten gelir.
type ProfileHandler struct {
	userService   services.UserService
	uploadService services.UploadService
}

// NewProfileHandler, constructor.
func NewProfileHandler(userService services.UserService, uploadService services.UploadService) *ProfileHandler {
	return &ProfileHandler{
		userService:   userService,
		uploadService: uploadService,
	}
}

// UpdateProfile godoc
// PATCH /api/users/me/profile
// Body: { "full_name": "...", "email": "..." } — ikisi de opsiyonel, en az biri dolu.
//
// Partial update: gönderilmeyen alanlar değişmez.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, updated, "Account details updated successfully")
}

// UploadAvatar godoc
// POST /api/users/me/avatar — multipart/form-data, dosya alanı: "avatar"
//
// Yeni avatar diske yazılır, DB güncellenir, eski dosya silinir.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.uploadImage(w, r, "avatar")
}

// UploadCover godoc
// POST /api/users/me/cover — multipart/form-data, dosya alanı: "coverImage"
func (h *ProfileHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	h.uploadImage(w, r, "cover")
}

// uploadImage, avatar ve kapak yüklemelerinin ortak akışı.
// kind: "avatar" veya "cover" — form alanı adını ve DB kolonunu belirler.
func (h *ProfileHandler) uploadImage(w http.ResponseWriter, r *http.Request, kind string) {
	user, ok := GetUserFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fieldName := "avatar"
	if kind == "cover" {
		fieldName = "coverImage"
	}

	file, header, err := r.FormFile(fieldName)
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, fieldName+" file is required")
		return
	}
	defer file.Close()

	newURL, err := h.uploadService.SaveImage(kind, file, header)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	var oldURL string
	var updated *models.User
	if kind == "cover" {
		oldURL, updated, err = h.userService.UpdateCoverImage(r.Context(), user.ID, newURL)
	} else {
		oldURL, updated, err = h.userService.UpdateAvatar(r.Context(), user.ID, newURL)
	}
	if err != nil {
		h.uploadService.Remove(newURL)
		pkg.Error(w, err)
		return
	}

	// DB güncellendi — eski dosya artık yetim, diskten temizle
	if oldURL != "" {
		h.uploadService.Remove(oldURL)
	}

	message := "Avatar image updated successfully"
	if kind == "cover" {
		message = "Cover image updated successfully"
	}
	pkg.JSON(w, http.StatusOK, updated, message)
}
