package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yukikurage/timesheet-management-api/internal/config"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/services"
	"github.com/yukikurage/timesheet-management-api/internal/testutil"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

type apiResponse struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

// APITestSuite drives the full router over an in-memory database.
type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	cfg    *config.Config

	admin    *models.User
	manager  *models.User
	ann      *models.User
	bob      *models.User
	project  *models.Project
	sessions map[uint64][]*http.Cookie
}

func (s *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.db = testutil.NewDB(s.T())
	s.cfg = &config.Config{
		SessionName:     "timesheet_session",
		AllowedOrigins:  []string{"http://localhost:3000"},
		BcryptCost:      bcrypt.MinCost,
		UserUploadDir:   s.T().TempDir(),
		ReportUploadDir: s.T().TempDir(),
		AvatarWidth:     32,
		AvatarHeight:    32,
		MaxDocumentSize: 1 << 20,
		OTPTTL:          10 * time.Minute,
	}

	var err error
	s.router, err = NewRouter(Dependencies{
		Config:   s.cfg,
		DB:       s.db,
		Sessions: cookie.NewStore([]byte("secret")),
		Mailer:   services.NewLogMailer(zapNop()),
	})
	s.Require().NoError(err)

	s.admin = testutil.CreateUser(s.T(), s.db, "root", models.RoleAdmin)
	s.manager = testutil.CreateUser(s.T(), s.db, "mona", models.RoleManager)
	s.ann = testutil.CreateUser(s.T(), s.db, "Ann", models.RoleEmployee)
	s.bob = testutil.CreateUser(s.T(), s.db, "Bob", models.RoleHR)
	s.project = testutil.CreateProject(s.T(), s.db, "Alpha", s.manager.ID, s.ann.ID, s.bob.ID)
	s.sessions = map[uint64][]*http.Cookie{}
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) login(u *models.User) []*http.Cookie {
	if cookies, ok := s.sessions[u.ID]; ok {
		return cookies
	}
	w := s.send(http.MethodPost, "/api/login", jsonBody(s.T(), map[string]string{
		"email": u.Email, "password": testutil.Password,
	}), "application/json", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.sessions[u.ID] = w.Result().Cookies()
	return s.sessions[u.ID]
}

func (s *APITestSuite) send(method, url string, body *bytes.Buffer, contentType string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, url, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) as(u *models.User, method, url string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		body = jsonBody(s.T(), payload)
	}
	return s.send(method, url, body, "application/json", s.login(u))
}

func (s *APITestSuite) decode(w *httptest.ResponseRecorder, data any) apiResponse {
	var resp apiResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if data != nil {
		s.Require().NoError(json.Unmarshal(resp.Data, data))
	}
	return resp
}

func jsonBody(t *testing.T, payload any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(b)
}

type upload struct {
	field, filename, contentType string
	content                      []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func pngContent(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x * 5), B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func (s *APITestSuite) submit(u *models.User, records []map[string]any, files ...upload) *httptest.ResponseRecorder {
	raw, err := json.Marshal(records)
	s.Require().NoError(err)
	body, contentType := multipartBody(s.T(), map[string]string{"timesheets": string(raw)}, files...)
	return s.send(http.MethodPost, "/api/timesheets", body, contentType, s.login(u))
}

func (s *APITestSuite) record(u *models.User, hours float64) map[string]any {
	return map[string]any{
		"projectId":   s.project.ID,
		"userId":      u.ID,
		"task":        "Implement login",
		"hoursWorked": hours,
		"workDate":    utils.Today().Format(utils.DateLayout),
	}
}

func (s *APITestSuite) countTimesheets() int64 {
	var n int64
	s.Require().NoError(s.db.Model(&models.Timesheet{}).Count(&n).Error)
	return n
}

func (s *APITestSuite) TestHealth() {
	w := s.send(http.MethodGet, "/health", nil, "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *APITestSuite) TestHealthReportsUnreachableDatabase() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())

	w := s.send(http.MethodGet, "/health", nil, "", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("SERVICE_UNAVAILABLE", s.decode(w, nil).Error.Code)
}

func (s *APITestSuite) TestRequiresSession() {
	w := s.send(http.MethodGet, "/api/projects", nil, "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", s.decode(w, nil).Error.Code)
}

func (s *APITestSuite) TestDeletedUserSessionIsRejected() {
	cookies := s.login(s.bob)
	w := s.as(s.admin, http.MethodDelete, fmt.Sprintf("/api/users/%d", s.bob.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.send(http.MethodGet, "/api/me", nil, "", cookies)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestMeAndLogout() {
	w := s.as(s.ann, http.MethodGet, "/api/me", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var me struct {
		ID   uint64 `json:"userId"`
		Role string `json:"role"`
	}
	s.decode(w, &me)
	s.Equal(s.ann.ID, me.ID)
	s.Equal("employee", me.Role)

	w = s.send(http.MethodGet, "/api/logout", nil, "", s.login(s.ann))
	s.Require().Equal(http.StatusOK, w.Code)
	w = s.send(http.MethodGet, "/api/me", nil, "", w.Result().Cookies())
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestCreateProjectRecordsHistory() {
	w := s.as(s.manager, http.MethodPost, "/api/projects", map[string]any{
		"projectName": "Beta",
		"clientName":  "Globex",
		"managerId":   s.manager.ID,
		"employeeIds": []uint64{s.ann.ID, s.bob.ID},
		"startDate":   "2024-01-01",
		"endDate":     "2024-03-31",
		"status":      "notStarted",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var project struct {
		ID          uint64 `json:"projectId"`
		StatusLabel string `json:"statusLabel"`
		Employees   []struct {
			Name string `json:"name"`
		} `json:"employees"`
	}
	s.decode(w, &project)
	s.Equal("Not Started", project.StatusLabel)
	s.Len(project.Employees, 2)

	w = s.as(s.ann, http.MethodGet, fmt.Sprintf("/api/projects/history?projectId=%d", project.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var history struct {
		History []struct {
			Description   string `json:"description"`
			CreatedByName string `json:"createdByName"`
		} `json:"history"`
		HistoryCount int64 `json:"historyCount"`
	}
	s.decode(w, &history)
	s.Require().EqualValues(1, history.HistoryCount)
	s.Equal("Project 'Beta' created for client 'Globex'. Employees assigned: Ann, Bob", history.History[0].Description)
	s.Equal("mona", history.History[0].CreatedByName)

	w = s.as(s.manager, http.MethodPost, "/api/projects", map[string]any{
		"projectName": "Beta",
		"clientName":  "Initech",
		"managerId":   s.manager.ID,
		"startDate":   "2024-01-01",
		"endDate":     "2024-03-31",
	})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *APITestSuite) TestProjectRoutesRequireManagers() {
	w := s.as(s.ann, http.MethodPost, "/api/projects", map[string]any{"projectName": "Gamma"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.as(s.ann, http.MethodDelete, fmt.Sprintf("/api/projects/%d", s.project.ID), nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.as(s.manager, http.MethodGet, "/api/projects/999", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestUpdateProjectNoChange() {
	url := fmt.Sprintf("/api/projects/%d", s.project.ID)

	w := s.as(s.manager, http.MethodPut, url, map[string]any{"projectName": "Alpha", "clientName": "Acme"})
	s.Equal(http.StatusNoContent, w.Code)
	s.Empty(w.Body.String())

	w = s.as(s.manager, http.MethodPut, url, map[string]any{"endDate": "2025-01-31"})
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestSubmitBatchWithAttachment() {
	w := s.submit(s.ann, []map[string]any{s.record(s.ann, 2), s.record(s.ann, 1.5)},
		upload{field: "file_1", filename: "receipt.png", contentType: "image/png", content: pngContent(s.T())})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		IDs               []uint64 `json:"ids"`
		FailedAttachments []int    `json:"failedAttachments"`
	}
	s.decode(w, &result)
	s.Len(result.IDs, 2)
	s.Empty(result.FailedAttachments)
	s.EqualValues(2, s.countTimesheets())

	w = s.as(s.ann, http.MethodGet, fmt.Sprintf("/api/timesheets/documentimage/%d", result.IDs[1]), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("image/png", w.Header().Get("Content-Type"))
	s.Equal("nosniff", w.Header().Get("X-Content-Type-Options"))

	w = s.as(s.bob, http.MethodGet, fmt.Sprintf("/api/timesheets/documentimage/%d", result.IDs[1]), nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.as(s.ann, http.MethodGet, fmt.Sprintf("/api/timesheets/documentimage/%d", result.IDs[0]), nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestSubmitBatchRejectsWholeBatch() {
	w := s.submit(s.ann, []map[string]any{s.record(s.ann, 2), s.record(s.ann, 1.30)})
	s.Require().Equal(http.StatusBadRequest, w.Code)

	resp := s.decode(w, nil)
	s.Equal("INVALID_INPUT", resp.Error.Code)
	s.Require().NotEmpty(resp.Error.Details)
	s.Contains(resp.Error.Details[0], "Report 2")
	s.Zero(s.countTimesheets())
}

func (s *APITestSuite) TestSubmitBatchAuthorization() {
	w := s.submit(s.manager, []map[string]any{s.record(s.manager, 2)})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.submit(s.bob, []map[string]any{s.record(s.ann, 2)})
	s.Equal(http.StatusForbidden, w.Code)
	s.Zero(s.countTimesheets())
}

func (s *APITestSuite) TestEditTimesheetHistory() {
	ts := testutil.CreateTimesheet(s.T(), s.db, s.project.ID, s.ann.ID, 2, utils.Today())
	url := fmt.Sprintf("/api/timesheets/%d", ts.ID)

	w := s.as(s.ann, http.MethodPut, url, map[string]any{"hoursWorked": 2.25})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.as(s.ann, http.MethodPut, url, map[string]any{"hoursWorked": 2.25})
	s.Equal(http.StatusNoContent, w.Code)

	w = s.as(s.manager, http.MethodGet, fmt.Sprintf("/api/timesheets/history?timesheetId=%d", ts.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var history struct {
		History []struct {
			Description string `json:"description"`
		} `json:"history"`
	}
	s.decode(w, &history)
	s.Require().Len(history.History, 1)
	s.Equal("Hours worked changed from '2 hour(s)' to '2.15 hour(s)'", history.History[0].Description)

	w = s.as(s.bob, http.MethodGet, fmt.Sprintf("/api/timesheets/history?timesheetId=%d", ts.ID), nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.as(s.ann, http.MethodGet, url, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var got struct {
		HoursWorked float64 `json:"hoursWorked"`
	}
	s.decode(w, &got)
	s.InDelta(2.15, got.HoursWorked, 1e-9)
}

func (s *APITestSuite) TestListTimesheetsDateRange() {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	testutil.CreateTimesheet(s.T(), s.db, s.project.ID, s.ann.ID, 1.25, day(1))
	testutil.CreateTimesheet(s.T(), s.db, s.project.ID, s.ann.ID, 1.75, day(5))
	testutil.CreateTimesheet(s.T(), s.db, s.project.ID, s.bob.ID, 2.5, day(5))
	testutil.CreateTimesheet(s.T(), s.db, s.project.ID, s.ann.ID, 3, day(6))

	w := s.as(s.manager, http.MethodGet, "/api/timesheets?fromDate=2024-03-01&toDate=2024-03-05&orderby=hoursWorked&sort=asc", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var list struct {
		Timesheets []struct {
			HoursWorked float64 `json:"hoursWorked"`
			WorkedDate  string  `json:"workedDate"`
			Name        string  `json:"name"`
		} `json:"timesheets"`
		Total      int64                    `json:"totalTimesheetCount"`
		Hours      float64                  `json:"totalAdjustedHoursWorked"`
		Pagination utils.PaginationResponse `json:"pagination"`
	}
	s.decode(w, &list)
	s.EqualValues(3, list.Total)
	s.EqualValues(3, list.Pagination.Total)
	s.Equal(1, list.Pagination.Page)
	// 1.15 + 1.45 + 2.30
	s.InDelta(4.90, list.Hours, 1e-9)
	s.Require().Len(list.Timesheets, 3)
	s.InDelta(1.15, list.Timesheets[0].HoursWorked, 1e-9)
	s.Equal("01-Mar-2024", list.Timesheets[0].WorkedDate)

	w = s.as(s.bob, http.MethodGet, "/api/timesheets?fromDate=2024-03-01&toDate=2024-03-31", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &list)
	s.EqualValues(1, list.Total)
	s.Equal("Bob", list.Timesheets[0].Name)

	w = s.as(s.manager, http.MethodGet, "/api/timesheets?fromDate=yesterday", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestExportTimesheets() {
	testutil.CreateTimesheet(s.T(), s.db, s.project.ID, s.ann.ID, 1.25, utils.Today())

	w := s.as(s.manager, http.MethodGet, "/api/timesheets/export", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Content-Disposition"), ".xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	s.Require().NoError(err)
	defer wb.Close()
	rows, err := wb.GetRows("Timesheets")
	s.Require().NoError(err)
	s.Len(rows, 3)
}

func (s *APITestSuite) TestDeleteTimesheet() {
	ts := testutil.CreateTimesheet(s.T(), s.db, s.project.ID, s.ann.ID, 1, utils.Today())
	url := fmt.Sprintf("/api/timesheets/%d", ts.ID)

	s.Equal(http.StatusForbidden, s.as(s.bob, http.MethodDelete, url, nil).Code)
	s.Equal(http.StatusOK, s.as(s.ann, http.MethodDelete, url, nil).Code)
	s.Equal(http.StatusNotFound, s.as(s.ann, http.MethodGet, url, nil).Code)
}

func (s *APITestSuite) TestCreateUserWithAvatar() {
	body, contentType := multipartBody(s.T(), map[string]string{
		"name":     "Carol",
		"dob":      "1991-02-03",
		"email":    "carol@example.com",
		"password": "secret!1",
		"role":     "hr",
	}, upload{field: "image", filename: "me.png", contentType: "image/png", content: pngContent(s.T())})

	w := s.send(http.MethodPost, "/api/users", body, contentType, s.login(s.admin))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var user struct {
		ID          uint64  `json:"userId"`
		Image       *string `json:"image"`
		ImageFailed bool    `json:"imageFailed"`
	}
	s.decode(w, &user)
	s.Require().NotNil(user.Image)
	s.False(user.ImageFailed)

	w = s.as(s.ann, http.MethodGet, fmt.Sprintf("/api/users/avatar/%d", user.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("image/jpeg", w.Header().Get("Content-Type"))

	body, contentType = multipartBody(s.T(), map[string]string{
		"name": "Dave", "dob": "1991-02-03", "email": "dave@example.com", "password": "secret!1", "role": "hr",
	})
	w = s.send(http.MethodPost, "/api/users", body, contentType, s.login(s.manager))
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *APITestSuite) TestUserListAndUpdate() {
	w := s.as(s.ann, http.MethodGet, "/api/users?search=mon", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Users []struct {
			Name string `json:"name"`
		} `json:"users"`
		UserCount  int64                    `json:"userCount"`
		Pagination utils.PaginationResponse `json:"pagination"`
	}
	s.decode(w, &list)
	s.EqualValues(1, list.UserCount)
	s.Equal(utils.PaginationResponse{Page: 1, Limit: 10, Total: 1}, list.Pagination)
	s.Equal("mona", list.Users[0].Name)

	w = s.as(s.ann, http.MethodPut, fmt.Sprintf("/api/users/%d", s.bob.ID), map[string]any{"name": "Robert"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.as(s.ann, http.MethodPut, fmt.Sprintf("/api/users/%d", s.ann.ID), map[string]any{"name": "Ann Lee"})
	s.Equal(http.StatusOK, w.Code)

	w = s.as(s.ann, http.MethodPut, fmt.Sprintf("/api/users/changepassword/%d", s.ann.ID), map[string]any{
		"oldPassword": testutil.Password, "newPassword": "n3w-pass", "confirmPassword": "n3w-pass",
	})
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestDashboardCounts() {
	w := s.as(s.admin, http.MethodGet, "/api/counts/users?manager=true", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var users struct {
		TotalCount int64 `json:"totalCount"`
	}
	s.decode(w, &users)
	s.EqualValues(2, users.TotalCount)

	w = s.as(s.admin, http.MethodGet, "/api/counts/projects?completed=true", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var projects struct {
		TotalProjectCount int64 `json:"totalProjectCount"`
	}
	s.decode(w, &projects)
	s.Zero(projects.TotalProjectCount)

	w = s.as(s.admin, http.MethodGet, "/api/counts/clients", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var clients struct {
		TotalClientCount int64 `json:"totalClientCount"`
	}
	s.decode(w, &clients)
	s.EqualValues(1, clients.TotalClientCount)

	w = s.as(s.admin, http.MethodGet, "/api/counts/users?active=maybe", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func zapNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
