package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/config"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/api/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		Server: config.ServerConfig{
			CORS:      config.CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
			BodyLimit: 1 << 20,
			RateLimit: config.RateLimitConfig{Generate: 10},
		},
	}
}

// 路由注册只需要 Handler 指针，Service 为 nil 不影响
func testHandler() *handler.Handler {
	return &handler.Handler{
		Subject:   handler.NewSubjectHandler(nil),
		Timetable: handler.NewTimetableHandler(nil),
		Working:   handler.NewWorkingHandler(nil),
		Export:    handler.NewExportHandler(nil, nil),
	}
}

func TestSetup_RegistersRoutes(t *testing.T) {
	r := Setup(testConfig(), testHandler(), nil, nil, zap.NewNop())

	registered := make(map[string]bool)
	for _, ri := range r.Routes() {
		registered[ri.Method+" "+ri.Path] = true
	}

	want := []string{
		"GET /health",
		"GET /api/v1/subjects",
		"GET /api/v1/subjects/:id",
		"POST /api/v1/timetables/generate",
		"POST /api/v1/timetables/clashes",
		"POST /api/v1/timetables/clashes/candidate",
		"POST /api/v1/working",
		"GET /api/v1/working/:id",
		"DELETE /api/v1/working/:id",
		"PUT /api/v1/working/:id/selection",
		"POST /api/v1/working/:id/custom",
		"PUT /api/v1/working/:id/custom/:slot_id",
		"DELETE /api/v1/working/:id/slots/:slot_id",
		"POST /api/v1/working/:id/resolve",
		"POST /api/v1/working/:id/reset",
		"POST /api/v1/working/:id/import-ics",
		"GET /api/v1/working/:id/export.ics",
		"GET /api/v1/working/:id/export.xlsx",
	}
	for _, route := range want {
		if !registered[route] {
			t.Errorf("路由未注册: %s", route)
		}
	}
}

func TestHealth_DatabaseUnavailable(t *testing.T) {
	r := Setup(testConfig(), testHandler(), nil, nil, zap.NewNop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["database"] != "unavailable" || body["redis"] != "disabled" {
		t.Errorf("unexpected health body: %v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("全局中间件应注入 X-Request-ID")
	}
}
