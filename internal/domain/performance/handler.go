package performance

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/cohort"
	"github.com/Ecews-Speed-Project/cmt-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	perf := api.Group("/performance")
	perf.GET("/case-managers", h.ListCaseManagers)
	perf.GET("/case-managers/:id", h.GetCaseManager)
	perf.GET("/cmts", h.ListTeams)
	perf.GET("/cmts/:name", h.GetTeam)

	api.GET("/cmts", h.ListTeamDirectory)
	api.GET("/cmts/:id", h.GetTeamDetail)
}

func (h *Handler) ListTeamDirectory(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	teams, err := h.svc.TeamDirectory(c.Request().Context(), id)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, teams)
}

func (h *Handler) ListCaseManagers(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	f, err := cohort.FromContext(c)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	p := pagination.FromContext(c)
	rows, total, err := h.svc.CaseManagers(c.Request().Context(), id, f, p)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rows, total, p))
}

func (h *Handler) GetCaseManager(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.CaseManager(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) ListTeams(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	f, err := cohort.FromContext(c)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	teams, err := h.svc.Teams(c.Request().Context(), id, f)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, teams)
}

func (h *Handler) GetTeam(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	team, err := h.svc.Team(c.Request().Context(), id, c.Param("name"))
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, team)
}

func (h *Handler) GetTeamDetail(c echo.Context) error {
	id, err := access.FromRequest(c)
	if err != nil {
		return err
	}
	teamID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid team id")
	}
	detail, err := h.svc.TeamDetail(c.Request().Context(), id, teamID)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	return c.JSON(http.StatusOK, detail)
}
