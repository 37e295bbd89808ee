package reporting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/cohort"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/performance"
)

type fakeSource struct {
	teams      []performance.TeamRollup
	cms        []carerecord.ScoredCaseManager
	err        error
	lastCohort cohort.Filter
}

func (s *fakeSource) Teams(_ context.Context, _ access.Identity, f cohort.Filter) ([]performance.TeamRollup, error) {
	s.lastCohort = f
	return s.teams, s.err
}

func (s *fakeSource) AllCaseManagers(_ context.Context, _ access.Identity, f cohort.Filter) ([]carerecord.ScoredCaseManager, error) {
	s.lastCohort = f
	return s.cms, s.err
}

func sampleSource() *fakeSource {
	return &fakeSource{
		teams: []performance.TeamRollup{
			{Team: "Alpha", State: "Akwa Ibom", FacilityName: "Uyo GH", CaseManagers: 2, TxCur: 40,
				Appointments: performance.Appointments{Scheduled: 20, Completed: 10, CompletionRate: 50}, AverageScore: 82.5},
			{Team: "Beta", State: "Cross River", FacilityName: "Calabar GH", CaseManagers: 1, TxCur: 12, AverageScore: 70},
		},
		cms: []carerecord.ScoredCaseManager{
			{CaseManager: carerecord.CaseManager{ID: "CM-A", FullName: "Ada", Team: "Alpha", State: "Akwa Ibom"},
				Record: carerecord.PerformanceRecord{TxCur: 25, FinalScore: 90}},
		},
	}
}

func TestWorkbook_Teams(t *testing.T) {
	wb, err := Workbook(TeamsSheet, TeamColumns, sampleSource().teams)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{TeamsSheet}, wb.GetSheetList())

	rows, err := wb.GetRows(TeamsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "CMT", rows[0][0])
	assert.Equal(t, "Average Score", rows[0][len(TeamColumns)-1])
	assert.Equal(t, []string{"Alpha", "Akwa Ibom", "Uyo GH", "2", "40"}, rows[1][:5])
	assert.Equal(t, "82.5", rows[1][len(TeamColumns)-1])
	assert.Equal(t, "Beta", rows[2][0])

	styleID, err := wb.GetCellStyle(TeamsSheet, "A1")
	require.NoError(t, err)
	style, err := wb.GetStyle(styleID)
	require.NoError(t, err)
	assert.True(t, style.Font.Bold)
}

func TestWorkbook_EmptyHasHeaderOnly(t *testing.T) {
	wb, err := Workbook(CaseManagersSheet, CaseManagerColumns, nil)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(CaseManagersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(CaseManagerColumns))
}

func newRequest(t *testing.T, target string, withIdentity bool) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if withIdentity {
		req = req.WithContext(access.WithIdentity(req.Context(), access.Identity{UserID: "u1", Roles: []string{access.RoleSuperAdmin}}))
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func newTestHandler(src Source) *Handler {
	h := NewHandler(src, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC) }
	return h
}

func TestHandler_ExportCaseManagers(t *testing.T) {
	src := sampleSource()
	c, rec := newRequest(t, "/api/v1/reports/case-managers.xlsx?pediatrics=true", true)

	require.NoError(t, newTestHandler(src).ExportCaseManagers(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxMIME, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "case-manager-performance-20240715.xlsx")
	assert.True(t, src.lastCohort.Pediatric)

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	v, err := wb.GetCellValue(CaseManagersSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "CM-A", v)
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		identity bool
		srcErr   error
		want     int
	}{
		{"unauthenticated", "/", false, nil, http.StatusUnauthorized},
		{"bad cohort flag", "/?pmtct=maybe", true, nil, http.StatusBadRequest},
		{"store failure", "/", true, fmt.Errorf("team scores: %w", carerecord.ErrStore), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := sampleSource()
			src.err = tt.srcErr
			c, _ := newRequest(t, tt.target, tt.identity)

			err := newTestHandler(src).ExportTeams(c)
			var he *echo.HTTPError
			require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
			assert.Equal(t, tt.want, he.Code)
		})
	}
}
