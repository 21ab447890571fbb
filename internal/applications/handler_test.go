package applications

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/scoring"
)

func newHandlerRouter(t *testing.T, scorer Scorer) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fx := newFixture(t, scorer)
	r := gin.New()
	api := r.Group("/api/v1")
	h := NewHandler(fx.svc)
	h.RegisterRoutes(api)
	h.RegisterPipelineRoutes(api)
	return r, fx
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, resp.Body.String())
	}
	return body.Error.Code
}

func TestSubmitAndAdminFlow(t *testing.T) {
	r, _ := newHandlerRouter(t, fixedScorer(85, "React"))

	resp := doJSON(r, http.MethodPost, "/api/v1/applications", `{"jobId":"job-1","cvUrl":"local://cv/cv.pdf"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var app Application
	if err := json.Unmarshal(resp.Body.Bytes(), &app); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if app.Status != StatusShortlisted || app.Bookmarked || app.Score() != 85 {
		t.Fatalf("unexpected application %+v", app)
	}

	resp = doJSON(r, http.MethodPatch, "/api/v1/applications/"+app.ID+"/status", `{"status":"pending","revision":1}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(r, http.MethodPatch, "/api/v1/applications/"+app.ID+"/status", `{"status":"shortlisted","revision":1}`)
	if resp.Code != http.StatusConflict || errorCode(t, resp) != "revision_conflict" {
		t.Fatalf("expected revision conflict, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(r, http.MethodPatch, "/api/v1/applications/"+app.ID+"/bookmark", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPatch, "/api/v1/applications/bookmark", `{"id":"`+app.ID+`","bookmarked":false}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var patched Application
	if err := json.Unmarshal(resp.Body.Bytes(), &patched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if patched.Bookmarked || patched.Status != StatusPending || patched.Revision != 4 {
		t.Fatalf("unexpected patched record %+v", patched)
	}

	resp = doJSON(r, http.MethodGet, "/api/v1/applications?status=pending&sort=matchHigh", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.Code)
	}
	var list []Application
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != app.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	resp = doJSON(r, http.MethodDelete, "/api/v1/applications/"+app.ID, "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.Code)
	}
	resp = doJSON(r, http.MethodGet, "/api/v1/applications/"+app.ID, "")
	if resp.Code != http.StatusNotFound || errorCode(t, resp) != "application_not_found" {
		t.Fatalf("expected application_not_found, got %d", resp.Code)
	}
}

func TestSubmitAcceptsForm(t *testing.T) {
	r, _ := newHandlerRouter(t, fixedScorer(30))
	form := url.Values{"jobId": {"job-1"}, "cvUrl": {"local://cv/x.pdf"}, "cvText": {"React developer"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		scorer Scorer
		body   string
		status int
		code   string
	}{
		{name: "missing fields", scorer: fixedScorer(1), body: `{"jobId":"job-1"}`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "unknown job", scorer: fixedScorer(1), body: `{"jobId":"nope","cvUrl":"local://cv/cv.pdf"}`, status: http.StatusNotFound, code: "job_not_found"},
		{name: "missing document", scorer: fixedScorer(1), body: `{"jobId":"job-1","cvUrl":"local://cv/gone.pdf"}`, status: http.StatusNotFound, code: "document_not_found"},
		{name: "no text", scorer: fixedScorer(1), body: `{"jobId":"job-1","cvUrl":"local://cv/blank.pdf"}`, status: http.StatusUnprocessableEntity, code: "extraction_failed"},
		{
			name: "pipeline failed",
			scorer: scorerFunc(func(ctx context.Context, text string, target scoring.Target) (scoring.Verdict, error) {
				return scoring.Verdict{}, scoring.ErrPipelineFailed
			}),
			body:   `{"jobId":"job-1","cvUrl":"local://cv/cv.pdf"}`,
			status: http.StatusBadGateway,
			code:   "pipeline_failed",
		},
		{
			name: "timeout",
			scorer: scorerFunc(func(ctx context.Context, text string, target scoring.Target) (scoring.Verdict, error) {
				return scoring.Verdict{}, scoring.ErrTimeout
			}),
			body:   `{"jobId":"job-1","cvUrl":"local://cv/cv.pdf"}`,
			status: http.StatusGatewayTimeout,
			code:   "timeout",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newHandlerRouter(t, tt.scorer)
			resp := doJSON(r, http.MethodPost, "/api/v1/applications", tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
			if got := errorCode(t, resp); got != tt.code {
				t.Fatalf("expected code %s, got %s", tt.code, got)
			}
		})
	}
}

func TestRecalculateRoutes(t *testing.T) {
	r, fx := newHandlerRouter(t, fixedScorer(72))
	seed(t, fx.repo, "app-1", "job-1", intPtr(0), "cv text", time.Now())

	resp := doJSON(r, http.MethodPost, "/api/v1/applications/recalculate", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var summary RecomputeSummary
	if err := json.Unmarshal(resp.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Total != 1 || summary.Updated != 1 || len(summary.Errors) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	resp = doJSON(r, http.MethodPost, "/api/v1/applications/recalculate?async=true", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without queue, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPost, "/api/v1/applications/app-1/recalculate", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	resp = doJSON(r, http.MethodPost, "/api/v1/applications/missing/recalculate", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListRejectsMalformedPaging(t *testing.T) {
	r, _ := newHandlerRouter(t, fixedScorer(50))
	for _, query := range []string{"limit=ten", "offset=abc", "limit=-1", "offset=-3", "bookmarked=maybe"} {
		resp := doJSON(r, http.MethodGet, "/api/v1/applications?"+query, "")
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, resp.Code)
		}
		if got := errorCode(t, resp); got != "validation_error" {
			t.Fatalf("%s: expected validation_error, got %s", query, got)
		}
	}

	resp := doJSON(r, http.MethodGet, "/api/v1/applications?limit=5&offset=0", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}
