package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
)

func newTestHandler(store *carerecord.MemoryStore) (*Handler, *echo.Echo) {
	return NewHandler(newTestService(store, Options{})), echo.New()
}

func request(e *echo.Echo, target string, id *access.Identity) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != nil {
		req = req.WithContext(access.WithIdentity(req.Context(), *id))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestHandler_GetStats(t *testing.T) {
	h, e := newTestHandler(statsStore())
	c, rec := request(e, "/api/v1/dashboard/stats?start=2024-01-01&end=2024-06-30", &superAdmin)

	if err := h.GetStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["tx_cur"] != float64(4) {
		t.Errorf("expected tx_cur 4, got %v", body["tx_cur"])
	}
	vl, ok := body["viral_load"].(map[string]interface{})
	if !ok || vl["suppressed"] != float64(1) {
		t.Errorf("unexpected viral_load %v", body["viral_load"])
	}
}

func TestHandler_GetStats_InvalidWindow(t *testing.T) {
	h, e := newTestHandler(statsStore())
	for _, q := range []string{
		"?start=2024-06-30&end=2024-01-01",
		"?start=2024-01-01",
		"?start=30-06-2024&end=2024-07-01",
		"?pediatrics=maybe",
	} {
		c, _ := request(e, "/api/v1/dashboard/stats"+q, &superAdmin)
		if got := statusOf(h.GetStats(c)); got != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, got)
		}
	}
}

func TestHandler_RequiresIdentity(t *testing.T) {
	h, e := newTestHandler(statsStore())
	c, _ := request(e, "/api/v1/dashboard/top3-cmts", nil)
	if got := statusOf(h.GetTopTeams(c)); got != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", got)
	}
}

func TestHandler_StoreFailureIs503(t *testing.T) {
	store := rankingStore()
	store.Err = errors.New("connection reset")
	h, e := newTestHandler(store)
	c, _ := request(e, "/api/v1/dashboard/top3-case-managers", &superAdmin)
	if got := statusOf(h.GetTopCaseManagers(c)); got != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", got)
	}
}

func TestHandler_GetTrends(t *testing.T) {
	h, e := newTestHandler(trendStore())
	c, rec := request(e, "/api/v1/dashboard/appointment-trends?start=2024-03-01&end=2024-03-14", &superAdmin)

	if err := h.GetTrends(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body Trends
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body.TotalVisits) != 2 || body.TotalVisits[0].WeekLabel != "Week1" {
		t.Errorf("unexpected visits %+v", body.TotalVisits)
	}
}
