package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/uslugi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/uslugi-backend/internal/storage"
)

// Разрешённые типы файлов для загрузки
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Для документов верификации дополнительно допускается PDF.
var documentMimeTypes = map[string]bool{
	"application/pdf": true,
}

// Разрешённые расширения файлов
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// MediaHandler управляет загрузкой файлов: фотоподтверждений работ и
// документов верификации.
type MediaHandler struct {
	storage *storage.PhotoStorage
}

// NewMediaHandler создаёт новый хэндлер.
func NewMediaHandler(storage *storage.PhotoStorage) *MediaHandler {
	return &MediaHandler{storage: storage}
}

// UploadWorkPhoto обрабатывает POST /media/work-photos.
func (h *MediaHandler) UploadWorkPhoto(c *gin.Context) {
	h.upload(c, storage.SectionWorkPhotos)
}

// UploadDocument обрабатывает POST /media/documents.
func (h *MediaHandler) UploadDocument(c *gin.Context) {
	h.upload(c, storage.SectionDocuments)
}

func (h *MediaHandler) upload(c *gin.Context, section string) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле file обязательно"})
		return
	}

	if file.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "файл не может быть пустым"})
		return
	}

	// Валидация расширения файла
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] || (ext == ".pdf" && section != storage.SectionDocuments) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неподдерживаемый формат файла"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	// Читаем первые 512 байт для проверки магических байтов
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать файл"})
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось определить тип файла"})
		return
	}

	contentType := kind.MIME.Value
	allowed := allowedMimeTypes[contentType]
	if section == storage.SectionDocuments {
		allowed = allowed || documentMimeTypes[contentType]
	}
	if !allowed {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("неподдерживаемый тип файла (%s)", contentType),
		})
		return
	}

	// Расширение должно соответствовать реальному типу файла;
	// .jpg и .jpeg считаются эквивалентными.
	expectedExt := "." + kind.Extension
	if ext != expectedExt && !(ext == ".jpg" && expectedExt == ".jpeg") && !(ext == ".jpeg" && expectedExt == ".jpg") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("расширение файла (%s) не соответствует реальному типу (%s)", ext, expectedExt),
		})
		return
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сбросить позицию файла"})
			return
		}
	}

	relativePath, size, err := h.storage.Save(c.Request.Context(), section, userID, file.Filename, src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"file_path":    "/media/" + filepath.ToSlash(relativePath),
		"file_size":    size,
		"content_type": contentType,
	})
}
