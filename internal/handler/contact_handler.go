package handler

import (
	"net/http"
	"strconv"

	"github.com/contactkeeper/backend/internal/dto"
	"github.com/contactkeeper/backend/internal/service"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/contactkeeper/backend/pkg/response"
	"github.com/contactkeeper/backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ContactHandler struct {
	contacts service.ContactService
}

func NewContactHandler(contacts service.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

func (h *ContactHandler) owner(c *gin.Context) (*uuid.UUID, error) {
	user, err := response.CurrentUser(c)
	if err != nil {
		return nil, err
	}
	id := user.ID
	return &id, nil
}

func contactID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperror.ErrInvalidInput
	}
	return uint(id), nil
}

func (h *ContactHandler) List(c *gin.Context) {
	ownerID, err := h.owner(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var query dto.ListContactsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	contacts, err := h.contacts.List(c.Request.Context(), query.Limit, query.Offset, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContactListResponse(contacts))
}

func (h *ContactHandler) Get(c *gin.Context) {
	ownerID, err := h.owner(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	id, err := contactID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return
	}

	contact, err := h.contacts.Get(c.Request.Context(), id, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContactResponse(contact))
}

func (h *ContactHandler) Create(c *gin.Context) {
	ownerID, err := h.owner(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	contact, err := h.contacts.Create(c.Request.Context(), req, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewContactResponse(contact))
}

func (h *ContactHandler) Update(c *gin.Context) {
	ownerID, err := h.owner(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	id, err := contactID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return
	}

	var req dto.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	contact, err := h.contacts.Update(c.Request.Context(), id, req, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContactResponse(contact))
}

func (h *ContactHandler) Delete(c *gin.Context) {
	ownerID, err := h.owner(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	id, err := contactID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return
	}

	if err := h.contacts.Delete(c.Request.Context(), id, ownerID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ContactHandler) UpcomingBirthdays(c *gin.Context) {
	ownerID, err := h.owner(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var query dto.BirthdaysQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	contacts, err := h.contacts.UpcomingBirthdays(c.Request.Context(), query.Days, query.Limit, query.Offset, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContactListResponse(contacts))
}

func (h *ContactHandler) Search(c *gin.Context) {
	ownerID, err := h.owner(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var query dto.SearchContactsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	contacts, err := h.contacts.Search(c.Request.Context(), query.Query, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Empty result is a 404 on this route, matching the contract callers
	// already depend on.
	if len(contacts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": apperror.ErrNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.NewContactListResponse(contacts))
}
