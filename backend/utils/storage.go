package utils

import (
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Типы файлов, принимаемые при сдаче работ.
var allowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain":               true,
	"image/jpeg":               true,
	"image/png":                true,
	"application/zip":          true,
	"application/x-rar-compressed": true,
}

func AllowedContentType(ct string) bool {
	// Content-Type может нести параметры вида "; charset=..."
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return allowedContentTypes[ct]
}

// SaveUploadedFile сохраняет файл под случайным именем и возвращает
// его публичный URL. Ядро хранит только эту непрозрачную строку.
func SaveUploadedFile(c *fiber.Ctx, fh *multipart.FileHeader, uploadDir, folder string) (string, error) {
	name := uuid.New().String() + filepath.Ext(fh.Filename)
	dir := filepath.Join(uploadDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if err := c.SaveFile(fh, filepath.Join(dir, name)); err != nil {
		return "", err
	}

	return "/uploads/" + filepath.ToSlash(filepath.Join(folder, name)), nil
}

// DeleteUploadedFile удаляет файл по его публичному URL.
// Отсутствие файла не считается ошибкой.
func DeleteUploadedFile(uploadDir, fileURL string) error {
	rel := strings.TrimPrefix(fileURL, "/uploads/")
	if rel == "" || rel == fileURL {
		return nil
	}
	err := os.Remove(filepath.Join(uploadDir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
