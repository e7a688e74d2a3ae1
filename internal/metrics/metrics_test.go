package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/exams/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", m.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/exams/7", nil))
	m.ObserveSubmission("accepted")
	m.ObservePaymentTransition("successful")
	m.ObserveStudentID()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		`cbt_http_requests_total{method="GET",route="/exams/:id",status="200"} 1`,
		`cbt_exam_submissions_total{outcome="accepted"} 1`,
		`cbt_payment_transitions_total{status="successful"} 1`,
		`cbt_student_ids_issued_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
