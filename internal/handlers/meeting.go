package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/meetsync/internal/middleware/auth"
	"github.com/Skotchmaster/meetsync/internal/models"
	"github.com/Skotchmaster/meetsync/internal/service"
)

type MeetingHandler struct {
	Meetings *service.MeetingService
}

func (h *MeetingHandler) Create(c echo.Context) error {
	var req CreateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err, msgFieldsRequired))
	}

	m, err := h.Meetings.Create(c.Request().Context(), authmw.UserFromContext(c), req.Title)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, MeetingResponse{Success: true, Meeting: *m})
}

func (h *MeetingHandler) End(c echo.Context) error {
	if err := h.Meetings.End(c.Request().Context(), authmw.UserFromContext(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Meeting ended for everyone"})
}

func (h *MeetingHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query error")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	total, meetings, err := h.Meetings.Search(c.Request().Context(), q, page, size)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, "query error")
		}
		return httpError(err)
	}
	if meetings == nil {
		meetings = []models.Meeting{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Total: total, Meetings: meetings})
}
