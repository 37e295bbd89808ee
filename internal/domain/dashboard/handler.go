package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/cohort"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard")
	g.GET("/stats", h.GetStats)
	g.GET("/appointment-trends", h.GetTrends)
	g.GET("/top3-case-managers", h.GetTopCaseManagers)
	g.GET("/top3-cmts", h.GetTopTeams)
}

// parseRequest reads the identity, the optional start/end window and the
// cohort flags. Invalid input is rejected before any query runs.
func parseRequest(c echo.Context, withWindow bool) (Request, error) {
	id, err := access.FromRequest(c)
	if err != nil {
		return Request{}, err
	}
	req := Request{Identity: id}
	if withWindow {
		w, ok, err := carerecord.ParseWindow(c.QueryParam("start"), c.QueryParam("end"))
		if err != nil {
			return Request{}, carerecord.HTTPError(err)
		}
		if ok {
			req.Window = &w
		}
	}
	req.Cohort, err = cohort.FromContext(c)
	if err != nil {
		return Request{}, carerecord.HTTPError(err)
	}
	return req, nil
}

func (h *Handler) GetStats(c echo.Context) error {
	req, err := parseRequest(c, true)
	if err != nil {
		return err
	}
	stats, err := h.svc.Stats(c.Request().Context(), req)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetTrends(c echo.Context) error {
	req, err := parseRequest(c, true)
	if err != nil {
		return err
	}
	trends, err := h.svc.Trends(c.Request().Context(), req)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, trends)
}

func (h *Handler) GetTopCaseManagers(c echo.Context) error {
	req, err := parseRequest(c, false)
	if err != nil {
		return err
	}
	top, err := h.svc.TopCaseManagers(c.Request().Context(), req)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, top)
}

func (h *Handler) GetTopTeams(c echo.Context) error {
	req, err := parseRequest(c, false)
	if err != nil {
		return err
	}
	top, err := h.svc.TopTeams(c.Request().Context(), req)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, top)
}
