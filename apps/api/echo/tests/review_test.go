package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/projhub/portal/apps/api/echo"
	"github.com/projhub/portal/core"
	"github.com/projhub/portal/tests"
)

func Test_reviewApi(t *testing.T) {
	app, repos := setup(t)
	testutil.CreateBatch(t, repos.Batch, "Batch_1", "AI", "A", "secret1", "221FA04001", "221FA04002")

	facultyToken := getToken(t, "F001", core.RoleFaculty)
	coordinatorToken := getToken(t, "C001", core.RoleCoordinator)
	studentToken := getToken(t, "221FA04001", core.RoleStudent)

	scores := []byte(`{
		"batchNumber": "Batch_1",
		"reviews": {"221fa04001": {"param_1_review_1": 3, "specific_2_review_1": "4", "param_1_review_2": 2}}
	}`)

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/api/review/reviews",
			body:     scores,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "coordinator may not score",
			method:   http.MethodPost,
			path:     "/api/review/reviews",
			body:     scores,
			token:    coordinatorToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "score out of range",
			method:   http.MethodPost,
			path:     "/api/review/reviews",
			body:     []byte(`{"batchNumber": "Batch_1", "reviews": {"221FA04001": {"param_1_review_1": 9}}}`),
			token:    facultyToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "faculty scores",
			method:   http.MethodPost,
			path:     "/api/review/reviews",
			body:     scores,
			token:    facultyToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "Reviews saved successfully!"}),
		},
		{
			name:     "read back",
			method:   http.MethodGet,
			path:     "/api/review/reviews/Batch_1",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"reviews": {"221FA04001": {"param_1_review_1": 3, "specific_2_review_1": 4, "param_1_review_2": 2}}}`),
		},
		{
			name:     "never reviewed",
			method:   http.MethodGet,
			path:     "/api/review/reviews/Batch_2",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"reviews": {}}`),
		},
		{
			name:     "review total",
			method:   http.MethodGet,
			path:     "/api/review/scores/Batch_1/221FA04001/1",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"round": 1, "reviewTotal": 7}`),
		},
		{
			name:     "round out of range",
			method:   http.MethodGet,
			path:     "/api/review/scores/Batch_1/221FA04001/5",
			token:    studentToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "summative",
			method:   http.MethodGet,
			path:     "/api/review/summative/Batch_1/221FA04001",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"totalScore": 9, "averageItemScore": 3}`),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/review/report", coordinatorToken)
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var rows []struct {
			Section     string `json:"section"`
			RegNo       string `json:"registrationNumber"`
			TotalScore  int    `json:"totalScore"`
			BatchNumber string `json:"batchNumber"`
		}
		unmarchall(t, rec.Body.Bytes(), &rows)
		if assert.Len(t, rows, 2) {
			assert.Equal(t, "221FA04001", rows[0].RegNo)
			assert.Equal(t, 9, rows[0].TotalScore)
			assert.Equal(t, "221FA04002", rows[1].RegNo)
			assert.Equal(t, 0, rows[1].TotalScore)
		}
	})

	t.Run("report download", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/review/report/download/excel", coordinatorToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "review_report.xlsx")
		assert.NotEmpty(t, rec.Body.Bytes())
	})
}
