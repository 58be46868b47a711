package services

import (
	"context"
	"fmt"

	"github.com/vidora-app/server/models"
	"github.com/vidora-app/server/pkg"
	"github.com/vidora-app/server/repository"
)

// UserService, profil işlemleri interface'i.
// Kimlik/oturum işleri AuthService'te; burası sadece profil verisi.
type UserService interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// UpdateProfile, partial update yapar — sadece dolu gelen alanlar değişir.
	UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error)
	// UpdateAvatar, yeni avatar URL'ini yazar ve ESKİ URL'i döner
	// (caller eski dosyayı diskten temizleyebilsin).
	UpdateAvatar(ctx context.Context, userID, avatarURL string) (oldURL string, user *models.User, err error)
	UpdateCoverImage(ctx context.Context, userID, coverURL string) (oldURL string, user *models.User, err error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService, constructor.
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sanitize(user), nil
}

// UpdateProfile, read-modify-write ile partial update yapar.
// nil gelen alanlar mevcut değerini korur.
func (s *userService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err // ErrAlreadyExists olabilir (email çakışması)
	}

	return sanitize(user), nil
}

func (s *userService) UpdateAvatar(ctx context.Context, userID, avatarURL string) (string, *models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	oldURL := user.AvatarURL
	user.AvatarURL = avatarURL

	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", nil, err
	}

	return oldURL, sanitize(user), nil
}

func (s *userService) UpdateCoverImage(ctx context.Context, userID, coverURL string) (string, *models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	var oldURL string
	if user.CoverImageURL != nil {
		oldURL = *user.CoverImageURL
	}
	user.CoverImageURL = &coverURL

	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", nil, err
	}

	return oldURL, sanitize(user), nil
}
