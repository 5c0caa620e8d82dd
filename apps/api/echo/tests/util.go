package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	. "github.com/projhub/portal/apps/api/echo"
	"github.com/projhub/portal/core"
	"github.com/projhub/portal/core/allocation"
	"github.com/projhub/portal/core/attendance"
	"github.com/projhub/portal/core/batch"
	"github.com/projhub/portal/core/documents"
	"github.com/projhub/portal/core/faculty"
	"github.com/projhub/portal/core/review"
	"github.com/projhub/portal/core/scoring"
	"github.com/projhub/portal/core/title"
	"github.com/projhub/portal/services/logger"
	"github.com/projhub/portal/services/spreadsheet"
	"github.com/projhub/portal/storage/filestore"
	"github.com/projhub/portal/tests"
)

var (
	conf = &core.Config{
		AppName:   "Project Portal",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			CORSOrigins:        []string{"*"},
		},
		Allocation: core.AllocationConfig{
			Sections:        []string{"A", "B"},
			UnassignedLabel: "Unassigned",
		},
		Signup: core.SignupConfig{MinPasswordLength: 6},
	}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T) (*Server, testutil.Repos) {
	repos := testutil.NewRepos()
	validate, translator := testutil.NewValidator(t)
	sheets := spreadsheet.NewExcel()

	dir := t.TempDir()
	slots, err := filestore.NewLocal(filepath.Join(dir, "domain_faculty"))
	if err != nil {
		t.Fatalf("filestore.NewLocal() failed: %v", err)
	}
	uploads, err := filestore.NewLocal(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("filestore.NewLocal() failed: %v", err)
	}

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	titleSvc := title.NewService(repos.Title, validate)
	batchSvc := batch.NewService(repos.Batch, titleSvc, validate, conf.Signup)

	app := NewServer("", nil, &Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		BatchSvc:      batchSvc,
		FacultySvc:    faculty.NewService(repos.Faculty, validate),
		ReviewSvc:     review.NewService(repos.Review, batchSvc, sheets, validate, scoring.DefaultTiers, conf.Allocation),
		AttendanceSvc: attendance.NewService(repos.Attendance, sheets, validate),
		TitleSvc:      titleSvc,
		AllocationSvc: allocation.NewService(slots, sheets, conf.Allocation),
		DocumentsSvc:  documents.NewService(slots, uploads, sheets),
	})
	return app, repos
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest posts `content` as the multipart "file" field.
func newUploadRequest(t *testing.T, path, token, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() failed: %v", err)
	}
	if _, err = part.Write(content); err != nil {
		t.Fatalf("part.Write() failed: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func workbook(t *testing.T, headers []string, rows ...[]string) []byte {
	var buf bytes.Buffer
	if err := spreadsheet.NewExcel().Write(&buf, "", headers, rows); err != nil {
		t.Fatalf("workbook() failed: %v", err)
	}
	return buf.Bytes()
}

func getToken(t *testing.T, id, role string) string {
	token, err := GenerateToken(NewClaims(core.Principal{ID: id, Role: role}, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, data []byte, v interface{}) {
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarchall(%s) failed: %v", data, err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
