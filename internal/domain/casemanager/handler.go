package casemanager

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/case-managers", h.List)
	api.GET("/case-managers/:id/patients", h.ListPatients)
	api.GET("/case-managers/:id/stats", h.GetStats)
}

func (h *Handler) List(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	cms, err := h.svc.List(c.Request().Context(), id)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, cms)
}

func (h *Handler) ListPatients(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	patients, total, err := h.svc.Patients(c.Request().Context(), id, c.Param("id"), p)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, p))
}

func (h *Handler) GetStats(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.Stats(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
