package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/projhub/portal/apps/api/echo"
	"github.com/projhub/portal/core"
	"github.com/projhub/portal/tests"
)

func upload(t *testing.T, app *Server, path, token, filename string, content []byte) (int, string) {
	req, rec := newUploadRequest(t, path, token, filename, content)
	app.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func Test_allocationApi_studentInfo(t *testing.T) {
	app, _ := setup(t)

	coordinatorToken := getToken(t, "C001", core.RoleCoordinator)
	facultyToken := getToken(t, "F001", core.RoleFaculty)

	info := workbook(t,
		[]string{"Regdno", "Section", "Batch Title", "Batch Number", "Status"},
		[]string{"221FA04001", "A", "AI", "Batch_1", "Active"},
		[]string{"221FA04002", "A", "AI", "Batch_1", "Active"},
		[]string{"221FA04003", "B", "IoT", "Batch_2", "Active"},
	)

	runHTTPTests(t, app, []httpTest{{
		name:     "nothing uploaded",
		method:   http.MethodGet,
		path:     "/api/alloc/getBatches",
		token:    facultyToken,
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "file not found"}),
	}})

	code, body := upload(t, app, "/api/alloc/uploadStudentInfo", facultyToken, "info.xlsx", info)
	assert.Equal(t, http.StatusForbidden, code, body)

	code, body = upload(t, app, "/api/alloc/uploadStudentInfo", coordinatorToken, "info.csv", []byte("a,b"))
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = upload(t, app, "/api/alloc/uploadStudentInfo", coordinatorToken, "info.xlsx", info)
	if assert.Equal(t, http.StatusOK, code, body) {
		ok, err := jsonBytesEqual([]byte(body), marchallObj(t, UploadResponse{
			Message:  "File uploaded successfully",
			FileName: "student_info.xlsx",
		}))
		assert.NoError(t, err)
		assert.True(t, ok, body)
	}

	tests := []httpTest{
		{
			name:     "batches",
			method:   http.MethodGet,
			path:     "/api/alloc/getBatches",
			token:    facultyToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"batches": {
				"Batch_1": {"title": "AI", "students": ["221FA04001", "221FA04002"]},
				"Batch_2": {"title": "IoT", "students": ["221FA04003"]}
			}}`),
		},
		{
			name:     "add student",
			method:   http.MethodPost,
			path:     "/api/alloc/addStudent",
			body:     []byte(`{"Regdno": "221FA04004", "Section": "B", "Domain": "IoT", "BatchNumber": "Batch_2", "Status": "Active"}`),
			token:    coordinatorToken,
			wantCode: http.StatusCreated,
		},
		{
			name:     "add incomplete student",
			method:   http.MethodPost,
			path:     "/api/alloc/addStudent",
			body:     []byte(`{"Regdno": "221FA04005"}`),
			token:    coordinatorToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "batches after add",
			method:   http.MethodGet,
			path:     "/api/alloc/getBatches",
			token:    facultyToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"batches": {
				"Batch_1": {"title": "AI", "students": ["221FA04001", "221FA04002"]},
				"Batch_2": {"title": "IoT", "students": ["221FA04003", "221FA04004"]}
			}}`),
		},
		{
			name:     "stored files",
			method:   http.MethodGet,
			path:     "/api/alloc/files",
			token:    facultyToken,
			wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("formatted download", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/alloc/downloadStudentInfo", facultyToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "formatted_student_info.xlsx")
	})
}

func Test_allocationApi_guides(t *testing.T) {
	app, _ := setup(t)

	coordinatorToken := getToken(t, "C001", core.RoleCoordinator)
	studentToken := getToken(t, "221FA04001", core.RoleStudent)

	faculty := workbook(t,
		[]string{"AI", "IoT"},
		[]string{"Dr. Rao", "Dr. Iyer"},
		[]string{"Dr. Das", ""},
	)
	guides := workbook(t,
		[]string{"Batch Number", "Domain", "Allocated Guide"},
		[]string{"Batch_1", "AI", "Dr. Rao"},
	)

	code, body := upload(t, app, "/api/domain-faculty/upload", coordinatorToken, "faculty.xlsx", faculty)
	assert.Equal(t, http.StatusOK, code, body)
	code, body = upload(t, app, "/api/final/uploadGuideInfo", coordinatorToken, "guides.xlsx", guides)
	assert.Equal(t, http.StatusOK, code, body)

	tests := []httpTest{
		{
			name:     "domains",
			method:   http.MethodGet,
			path:     "/api/domain-faculty/domains",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"domains": ["AI", "IoT"]}`),
		},
		{
			name:     "guides of a domain",
			method:   http.MethodGet,
			path:     "/api/domain-faculty/faculty/AI",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"domain": "AI", "facultyNames": ["Dr. Rao", "Dr. Das"]}`),
		},
		{
			name:     "unknown domain",
			method:   http.MethodGet,
			path:     "/api/domain-faculty/faculty/Robotics",
			token:    studentToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "domain not found"}),
		},
		{
			name:     "guide of a batch",
			method:   http.MethodGet,
			path:     "/api/final/faculty/batch/Batch_1",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"batch": "Batch_1", "domain": "AI", "allocatedGuide": "Dr. Rao"}`),
		},
		{
			name:     "batch without guide",
			method:   http.MethodGet,
			path:     "/api/final/faculty/batch/Batch_2",
			token:    studentToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "no guide found for this batch"}),
		},
		{
			name:     "guide info rows",
			method:   http.MethodGet,
			path:     "/api/final/getGuideInfo",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"data": [{"Batch Number": "Batch_1", "Domain": "AI", "Allocated Guide": "Dr. Rao"}]}`),
		},
		{
			name:     "student may not delete",
			method:   http.MethodDelete,
			path:     "/api/final/files/guide_info.xlsx",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/final/files/guide_info.xlsx",
			token:    coordinatorToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "File deleted successfully"}),
		},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     "/api/final/faculty/batch/Batch_1",
			token:    studentToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "file not found"}),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_allocationApi_sections(t *testing.T) {
	app, repos := setup(t)

	coordinatorToken := getToken(t, "C001", core.RoleCoordinator)
	for _, number := range []string{"Batch_1", "Batch_2", "Batch_3"} {
		testutil.CreateBatch(t, repos.Batch, number, "AI", "", "secret1")
	}

	runHTTPTests(t, app, []httpTest{
		{
			name:     "configured sections",
			method:   http.MethodGet,
			path:     "/api/section/getSections",
			token:    coordinatorToken,
			wantCode: http.StatusOK,
			wantData: []byte(`["A", "B"]`),
		},
		{
			name:     "computed assignments",
			method:   http.MethodGet,
			path:     "/api/section/assignments",
			token:    coordinatorToken,
			wantCode: http.StatusOK,
			wantData: []byte(`[
				{"batch": "Batch_1", "section": "A", "source": "computed"},
				{"batch": "Batch_2", "section": "A", "source": "computed"},
				{"batch": "Batch_3", "section": "B", "source": "computed"}
			]`),
		},
	})

	secAlloc := workbook(t,
		[]string{"Section", "Batches"},
		[]string{"A", "Batch_1-Batch_1"},
		[]string{"B", "Batch_2-Batch_3"},
	)
	code, body := upload(t, app, "/api/section/uploadSecAlloc", coordinatorToken, "sections.xlsx", secAlloc)
	assert.Equal(t, http.StatusOK, code, body)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "imported batches",
			method:   http.MethodGet,
			path:     "/api/section/getAllBatches",
			token:    coordinatorToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"A": ["Batch_1"], "B": ["Batch_2", "Batch_3"]}`),
		},
		{
			name:     "one section",
			method:   http.MethodGet,
			path:     "/api/section/getAllBatches/B",
			token:    coordinatorToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"B": ["Batch_2", "Batch_3"]}`),
		},
		{
			name:     "unknown section",
			method:   http.MethodGet,
			path:     "/api/section/getAllBatches/Z",
			token:    coordinatorToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "imported assignments",
			method:   http.MethodGet,
			path:     "/api/section/assignments",
			token:    coordinatorToken,
			wantCode: http.StatusOK,
			wantData: []byte(`[
				{"batch": "Batch_1", "section": "A", "source": "imported"},
				{"batch": "Batch_2", "section": "B", "source": "imported"},
				{"batch": "Batch_3", "section": "B", "source": "imported"}
			]`),
		},
	})
}

func Test_uploadApi(t *testing.T) {
	app, _ := setup(t)

	coordinatorToken := getToken(t, "C001", core.RoleCoordinator)
	facultyToken := getToken(t, "F001", core.RoleFaculty)

	runHTTPTests(t, app, []httpTest{{
		name:     "no uploads",
		method:   http.MethodGet,
		path:     "/api/uploads/getfiles",
		token:    facultyToken,
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "no Excel file found"}),
	}})

	content := workbook(t, []string{"Name", "Marks"}, []string{"Asha", "18"})

	code, body := upload(t, app, "/api/uploads", facultyToken, "marks.xlsx", content)
	assert.Equal(t, http.StatusForbidden, code, body)

	code, body = upload(t, app, "/api/uploads", coordinatorToken, "marks.xlsx", content)
	if !assert.Equal(t, http.StatusCreated, code, body) {
		return
	}
	var resp UploadResponse
	unmarchall(t, []byte(body), &resp)
	assert.True(t, strings.HasPrefix(resp.FileName, "marks-"), resp.FileName)
	assert.True(t, strings.HasSuffix(resp.FileName, ".xlsx"), resp.FileName)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "latest upload rows",
			method:   http.MethodGet,
			path:     "/api/uploads/getfiles",
			token:    facultyToken,
			wantCode: http.StatusOK,
			wantData: []byte(`[{"Name": "Asha", "Marks": "18"}]`),
		},
		{
			name:     "download",
			method:   http.MethodGet,
			path:     "/api/uploads/files/" + resp.FileName,
			token:    facultyToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/uploads/files/" + resp.FileName,
			token:    coordinatorToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "File deleted successfully"}),
		},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     "/api/uploads/files/" + resp.FileName,
			token:    facultyToken,
			wantCode: http.StatusNotFound,
		},
	})
}
