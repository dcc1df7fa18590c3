// README: Handler validation tests; bad requests must fail before any service call.
package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"poring/internal/http/handlers"
	"poring/internal/modules/mission"
	"poring/internal/modules/rental"
)

// buildTestRouter wires a minimal Gin engine. The nil-backed services are safe
// here because every request in these tests is rejected by input validation
// before a service method runs.
func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rentalHandler := handlers.NewRentalHandler(rental.NewService(nil, nil, nil, nil), nil)
	r.POST("/api/rentals", rentalHandler.Start)
	r.POST("/api/rentals/return", rentalHandler.Return)

	missionHandler := handlers.NewMissionHandler(mission.NewService(nil, nil, nil, nil, 1000, 10))
	r.POST("/api/missions/prepare", missionHandler.Prepare)
	r.POST("/api/missions/complete", missionHandler.Complete)

	userHandler := handlers.NewUserHandler(nil)
	r.GET("/api/users/:id/summary", userHandler.Summary)

	hubHandler := handlers.NewHubHandler(nil, nil, 50, 1.0)
	r.GET("/api/available-bikes", hubHandler.Availability)
	r.GET("/api/available-nearby-bikes", hubHandler.Nearby)
	r.GET("/api/rent-recommend", hubHandler.Recommend)

	chatHandler := handlers.NewChatHandler(nil)
	r.POST("/api/chat", chatHandler.Message)

	return r
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBadRequests(t *testing.T) {
	r := buildTestRouter()

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"rental start missing ids", http.MethodPost, "/api/rentals", map[string]any{"user_id": 0}},
		{"rental return missing hub", http.MethodPost, "/api/rentals/return", map[string]any{"user_id": 1}},
		{"rental return bad kind", http.MethodPost, "/api/rentals/return",
			map[string]any{"user_id": 1, "hub_name": "Library", "kind": "rooftop"}},
		{"mission prepare missing station", http.MethodPost, "/api/missions/prepare",
			map[string]any{"user_id": 1, "low_battery_bike_id": 2}},
		{"mission prepare negative reward", http.MethodPost, "/api/missions/prepare",
			map[string]any{"user_id": 1, "low_battery_bike_id": 2, "target_station_id": 3, "reward": -5}},
		{"mission complete missing bike", http.MethodPost, "/api/missions/complete",
			map[string]any{"user_id": 1, "station_id": 3}},
		{"summary non-numeric id", http.MethodGet, "/api/users/abc/summary", nil},
		{"availability missing hub_name", http.MethodGet, "/api/available-bikes", nil},
		{"nearby missing coordinates", http.MethodGet, "/api/available-nearby-bikes?lat=xx", nil},
		{"nearby bad radius", http.MethodGet, "/api/available-nearby-bikes?lat=36.0&lon=129.3&r_km=-1", nil},
		{"recommend missing hub_name", http.MethodGet, "/api/rent-recommend", nil},
		{"chat missing message", http.MethodPost, "/api/chat", map[string]any{"user_id": 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, tc.method, tc.path, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s %s: expected 400, got %d (%s)", tc.method, tc.path, w.Code, w.Body.String())
			}
		})
	}
}

func TestInvalidJSONBody(t *testing.T) {
	r := buildTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/rentals", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed json, got %d", w.Code)
	}
}
