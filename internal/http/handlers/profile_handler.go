package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/dto"
	"github.com/ignatzorin/uslugi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

// ProfileHandler отвечает за профиль текущего пользователя.
type ProfileHandler struct {
	users *repository.UserRepository
}

// NewProfileHandler создаёт хэндлер.
func NewProfileHandler(users *repository.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// GetMe обрабатывает GET /profile.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "profile": profile})
}

// UpdateMe обрабатывает PUT /profile. Для исполнителя здесь задаются
// категория услуг и координаты, без которых он не попадает в подбор.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateLength("отображаемое имя", req.DisplayName,
		validation.MinDisplayNameLength, validation.MaxDisplayNameLength); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if req.Address != nil {
		if err := validation.ValidateLength("адрес", *req.Address, 0, validation.MaxAddressLength); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		common.RespondBadRequest(c, "координаты задаются парой: широта и долгота")
		return
	}
	if req.Latitude != nil {
		if err := validation.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	profile := &models.Profile{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}

	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			common.RespondBadRequest(c, "некорректный идентификатор категории")
			return
		}
		profile.CategoryID = &categoryID
	}

	if err := h.users.UpsertProfile(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, profile)
}
