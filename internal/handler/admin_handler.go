package handler

import (
	"net/http"

	"github.com/contactkeeper/backend/internal/dto"
	"github.com/contactkeeper/backend/internal/service"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/contactkeeper/backend/pkg/response"
	"github.com/contactkeeper/backend/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	admin service.AdminService
}

func NewAdminHandler(admin service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) CreateRole(c *gin.Context) {
	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	role, err := h.admin.CreateRole(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRoleResponse(role))
}

func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.admin.ListRoles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRoleListResponse(roles))
}

func (h *AdminHandler) ListAllContacts(c *gin.Context) {
	var query dto.ListContactsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	contacts, err := h.admin.ListAllContacts(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContactListResponse(contacts))
}

func (h *AdminHandler) AllUpcomingBirthdays(c *gin.Context) {
	var query dto.BirthdaysQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	contacts, err := h.admin.AllUpcomingBirthdays(c.Request.Context(), query.Days, query.Limit, query.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContactListResponse(contacts))
}

func (h *AdminHandler) SearchAllContacts(c *gin.Context) {
	var query dto.SearchContactsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	contacts, err := h.admin.SearchAllContacts(c.Request.Context(), query.Query)
	if err != nil {
		response.Error(c, err)
		return
	}

	if len(contacts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": apperror.ErrNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.NewContactListResponse(contacts))
}
