package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/cohort"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/performance"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Source supplies scoped performance rows. performance.Service satisfies it.
type Source interface {
	Teams(ctx context.Context, id access.Identity, f cohort.Filter) ([]performance.TeamRollup, error)
	AllCaseManagers(ctx context.Context, id access.Identity, f cohort.Filter) ([]carerecord.ScoredCaseManager, error)
}

// Handler provides the workbook export endpoints.
type Handler struct {
	src    Source
	logger zerolog.Logger
	now    func() time.Time
}

func NewHandler(src Source, logger zerolog.Logger) *Handler {
	return &Handler{src: src, logger: logger, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("/cmts.xlsx", h.ExportTeams)
	g.GET("/case-managers.xlsx", h.ExportCaseManagers)
}

func (h *Handler) ExportTeams(c echo.Context) error {
	id, f, err := request(c)
	if err != nil {
		return err
	}
	rows, err := h.src.Teams(c.Request().Context(), id, f)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	wb, err := Workbook(TeamsSheet, TeamColumns, rows)
	if err != nil {
		return h.failed(err)
	}
	return h.send(c, wb, "cmt-performance")
}

func (h *Handler) ExportCaseManagers(c echo.Context) error {
	id, f, err := request(c)
	if err != nil {
		return err
	}
	rows, err := h.src.AllCaseManagers(c.Request().Context(), id, f)
	if err != nil {
		return carerecord.HTTPError(err)
	}
	wb, err := Workbook(CaseManagersSheet, CaseManagerColumns, rows)
	if err != nil {
		return h.failed(err)
	}
	return h.send(c, wb, "case-manager-performance")
}

func request(c echo.Context) (access.Identity, cohort.Filter, error) {
	id, err := access.FromRequest(c)
	if err != nil {
		return access.Identity{}, cohort.Filter{}, err
	}
	f, err := cohort.FromContext(c)
	if err != nil {
		return access.Identity{}, cohort.Filter{}, carerecord.HTTPError(err)
	}
	return id, f, nil
}

func (h *Handler) send(c echo.Context, wb *excelize.File, name string) error {
	defer wb.Close()
	buf, err := wb.WriteToBuffer()
	if err != nil {
		return h.failed(err)
	}
	filename := fmt.Sprintf("%s-%s.xlsx", name, h.now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (h *Handler) failed(err error) error {
	h.logger.Error().Err(err).Msg("workbook generation failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate report").SetInternal(err)
}
