package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vidora-app/server/pkg"
)

// UploadService, resim yükleme iş mantığı interface'i.
// Avatar ve kapak resmi yüklemeleri buradan geçer.
type UploadService interface {
	// SaveImage, dosyayı doğrular, diske kaydeder ve public URL'ini döner.
	// kind ("avatar"/"cover") dosya adına prefix olur — dizinde ayırt edilebilsin.
	SaveImage(kind string, file multipart.File, header *multipart.FileHeader) (string, error)
	// Remove, daha önce SaveImage'ın döndüğü URL'e ait dosyayı siler.
	// Dosya yoksa hata dönmez.
	Remove(fileURL string)
}

type uploadService struct {
	uploadDir string
	maxSize   int64
}

// NewUploadService, constructor.
func NewUploadService(uploadDir string, maxSize int64) UploadService {
	return &uploadService{uploadDir: uploadDir, maxSize: maxSize}
}

// allowedImageTypes, profil resmi olarak kabul edilen türler.
// Sadece resim — video/pdf gibi türler bu endpoint'lerden geçmez.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *uploadService) SaveImage(kind string, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > s.maxSize {
		return "", fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrValidation, s.maxSize/(1024*1024))
	}

	contentType := header.Header.Get("Content-Type")
	// charset vb. parametreler olabilir — sadece base MIME type'ı al
	mimeBase := strings.TrimSpace(strings.Split(contentType, ";")[0])

	ext, ok := allowedImageTypes[mimeBase]
	if !ok {
		return "", fmt.Errorf("%w: only jpeg/png/gif/webp images are allowed", pkg.ErrValidation)
	}

	// Orijinal dosya adı diske hiç yansımaz — uuid + uzantı yeterli.
	// Path traversal ve çakışma derdi baştan kapanır.
	diskFilename := kind + "_" + uuid.NewString() + ext

	destPath := filepath.Join(s.uploadDir, diskFilename)
	destFile, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		os.Remove(destPath) // Yarım dosya bırakma
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return "/api/uploads/" + diskFilename, nil
}

func (s *uploadService) Remove(fileURL string) {
	name := filepath.Base(fileURL)
	if name == "" || name == "." || name == ".." {
		return
	}
	os.Remove(filepath.Join(s.uploadDir, name))
}
