package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skylift-health/airlift-api/internal/models"
	appErrors "github.com/skylift-health/airlift-api/pkg/errors"
	"github.com/skylift-health/airlift-api/pkg/response"
)

type notificationLister interface {
	ListNotifications(ctx context.Context, filter models.NotificationFilter, actor *models.JWTClaims) ([]models.Notification, *models.Pagination, error)
}

// NotificationHandler exposes the persisted notification feed.
type NotificationHandler struct {
	service notificationLister
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationLister) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List notifications for the caller
// @Tags Notifications
// @Produce json
// @Param enquiry_id query string false "Enquiry filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.NotificationFilter{
		EnquiryID: strings.TrimSpace(c.Query("enquiry_id")),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	notifications, pagination, err := h.service.ListNotifications(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, pagination)
}
