package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"qatrack/backend/internal/dto"
	"qatrack/backend/internal/model"
	"qatrack/backend/internal/service"
	"qatrack/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testUnitID       = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testAssignmentID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
)

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock UnitService ──

type mockUnitService struct {
	infoResult map[string]dto.UnitInfoResponse
	infoErr    error
	gotIDs     []string
	gotActive  bool
	listResult []model.Unit
	listErr    error
	createRes  *model.Unit
	createErr  error
	gotCaller  string
}

func (m *mockUnitService) GetUnitInfo(_ context.Context, ids []string, activeOnly, _ bool) (map[string]dto.UnitInfoResponse, error) {
	m.gotIDs = ids
	m.gotActive = activeOnly
	return m.infoResult, m.infoErr
}
func (m *mockUnitService) List(_ context.Context, activeOnly bool) ([]model.Unit, error) {
	m.gotActive = activeOnly
	return m.listResult, m.listErr
}
func (m *mockUnitService) CreateUnit(_ context.Context, _ *dto.CreateUnitRequest, callerID string) (*model.Unit, error) {
	m.gotCaller = callerID
	return m.createRes, m.createErr
}

// ── Mock AvailabilityService ──

type mockAvailabilityService struct {
	hours   float64
	err     error
	gotFrom *time.Time
	gotTo   time.Time
}

func (m *mockAvailabilityService) GetPotentialTime(_ context.Context, _ string, from *time.Time, to time.Time) (float64, error) {
	m.gotFrom = from
	m.gotTo = to
	return m.hours, m.err
}

// ── Mock UnitScheduleService ──

type mockScheduleService struct {
	weeklyResult *dto.WeeklyScheduleResponse
	weeklyErr    error
	listResult   []dto.WeeklyScheduleResponse
	onResult     *dto.WeeklyScheduleResponse
	onErr        error
	editResult   *dto.ScheduleEditResponse
	editErr      error
	deleteErr    error
	deleted      int64
	edits        []dto.ScheduleEditResponse
	importResult *dto.HolidayImportResult
	importErr    error
	gotUnitIDs   []string
	gotHours     float64
	gotBody      string
}

func (m *mockScheduleService) SetWeeklySchedule(_ context.Context, _ string, _ *dto.WeeklyScheduleRequest, _ string) (*dto.WeeklyScheduleResponse, error) {
	return m.weeklyResult, m.weeklyErr
}
func (m *mockScheduleService) ListWeeklySchedules(_ context.Context, _ string) ([]dto.WeeklyScheduleResponse, error) {
	return m.listResult, nil
}
func (m *mockScheduleService) GetScheduleOn(_ context.Context, _ string, _ time.Time) (*dto.WeeklyScheduleResponse, error) {
	return m.onResult, m.onErr
}
func (m *mockScheduleService) UpsertEdit(_ context.Context, _ string, _ *dto.ScheduleEditRequest, _ string) (*dto.ScheduleEditResponse, error) {
	return m.editResult, m.editErr
}
func (m *mockScheduleService) DeleteEdit(_ context.Context, _ string, _ time.Time) error {
	return m.deleteErr
}
func (m *mockScheduleService) DeleteEditsInRange(_ context.Context, _ string, _, _ time.Time) (int64, error) {
	return m.deleted, m.deleteErr
}
func (m *mockScheduleService) ListEdits(_ context.Context, _ string, _, _ time.Time) ([]dto.ScheduleEditResponse, error) {
	return m.edits, nil
}
func (m *mockScheduleService) ImportHolidays(_ context.Context, r io.Reader, unitIDs []string, hours float64, _ string) (*dto.HolidayImportResult, error) {
	b, _ := io.ReadAll(r)
	m.gotBody = string(b)
	m.gotUnitIDs = unitIDs
	m.gotHours = hours
	return m.importResult, m.importErr
}

// ── Mock ICSSource ──

type mockICSSource struct {
	body   string
	err    error
	gotURL string
}

func (m *mockICSSource) Fetch(_ context.Context, rawURL string) (io.ReadCloser, error) {
	m.gotURL = rawURL
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.body)), nil
}

// ── Mock DueDateService ──

type mockDueDateService struct {
	calcResult  *time.Time
	calcErr     error
	setErr      error
	gotDue      *time.Time
	setCalled   bool
	getResult   *dto.DueDateResponse
	getErr      error
	completeRes *dto.DueDateResponse
	completeErr error
	refreshRes  *dto.RefreshDueDatesResult
	gotUnitID   string
}

func (m *mockDueDateService) CalcDueDate(_ context.Context, _ string) (*time.Time, error) {
	return m.calcResult, m.calcErr
}
func (m *mockDueDateService) SetDueDate(_ context.Context, _ string, due *time.Time) error {
	m.setCalled = true
	m.gotDue = due
	return m.setErr
}
func (m *mockDueDateService) DueStatus(_ context.Context, _ string) (service.DueStatus, error) {
	return service.DueStatusNotDue, nil
}
func (m *mockDueDateService) GetDueDate(_ context.Context, _ string) (*dto.DueDateResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockDueDateService) CompleteInstance(_ context.Context, _ string, _ time.Time, _ string) (*dto.DueDateResponse, error) {
	return m.completeRes, m.completeErr
}
func (m *mockDueDateService) RefreshDueDates(_ context.Context, unitID string) (*dto.RefreshDueDatesResult, error) {
	m.gotUnitID = unitID
	return m.refreshRes, nil
}

// ── Mock AssignmentService ──

type mockAssignmentService struct {
	freqs       []model.Frequency
	freqRes     *model.Frequency
	freqErr     error
	assignRes   *dto.AssignmentResponse
	assignErr   error
	gotUpdate   *dto.UpdateAssignmentRequest
	instances   []dto.InstanceResponse
	instanceErr error
	gotLimit    int
}

func (m *mockAssignmentService) ListFrequencies(_ context.Context) ([]model.Frequency, error) {
	return m.freqs, nil
}
func (m *mockAssignmentService) CreateFrequency(_ context.Context, _ *dto.CreateFrequencyRequest, _ string) (*model.Frequency, error) {
	return m.freqRes, m.freqErr
}
func (m *mockAssignmentService) CreateAssignment(_ context.Context, _ *dto.CreateAssignmentRequest, _ string) (*dto.AssignmentResponse, error) {
	return m.assignRes, m.assignErr
}
func (m *mockAssignmentService) UpdateAssignment(_ context.Context, _ string, req *dto.UpdateAssignmentRequest, _ string) (*dto.AssignmentResponse, error) {
	m.gotUpdate = req
	return m.assignRes, m.assignErr
}
func (m *mockAssignmentService) ListInstances(_ context.Context, _ string, limit int) ([]dto.InstanceResponse, error) {
	m.gotLimit = limit
	return m.instances, m.instanceErr
}

// ── Mock TokenService ──

type mockTokenService struct {
	gotJTI    string
	gotExp    time.Time
	gotCaller string
	err       error
}

func (m *mockTokenService) Revoke(_ context.Context, jti string, exp time.Time, callerID string) error {
	m.gotJTI, m.gotExp, m.gotCaller = jti, exp, callerID
	return m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportAvailability(_ context.Context, _, _ time.Time) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set("user_id", "test-user-id")
	c.Set("role", "physicist")
}

func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(r *gin.Engine, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Logout(t *testing.T) {
	exp := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	svc := &mockTokenService{}
	h := NewAuthHandler(svc)
	r := gin.New()
	r.POST("/auth/logout", func(c *gin.Context) {
		setAuth(c)
		c.Set("token_jti", "jti-1")
		c.Set("token_exp", exp)
		h.Logout(c)
	})

	w := serve(r, "POST", "/auth/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotJTI != "jti-1" || !svc.gotExp.Equal(exp) || svc.gotCaller != "test-user-id" {
		t.Errorf("吊销参数不符: %+v", svc)
	}

	svc.err = service.ErrBlacklistUnavailable
	w = serve(r, "POST", "/auth/logout", nil)
	if w.Code != http.StatusServiceUnavailable || parseResponse(w).Code != 50001 {
		t.Errorf("期望 503/50001，实际 %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestAuthHandler_Logout_MissingJTI(t *testing.T) {
	svc := &mockTokenService{}
	h := NewAuthHandler(svc)
	r := gin.New()
	r.POST("/auth/logout", withAuth(h.Logout))

	w := serve(r, "POST", "/auth/logout", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("无 jti 期望 400，实际 %d", w.Code)
	}
	if svc.gotJTI != "" {
		t.Error("无 jti 时不应调用吊销")
	}
}

// ═══════════════════════════════════════════════════════════
// UnitHandler Tests
// ═══════════════════════════════════════════════════════════

func TestUnitHandler_GetPotentialTime_Success(t *testing.T) {
	avail := &mockAvailabilityService{hours: 24}
	h := NewUnitHandler(&mockUnitService{}, avail)

	r := gin.New()
	r.GET("/units/:id/potential-time", h.GetPotentialTime)
	w := serve(r, "GET", "/units/"+testUnitID+"/potential-time?date_from=2026-01-05&date_to=2026-01-07", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if avail.gotFrom == nil || avail.gotFrom.Format(dateLayout) != "2026-01-05" {
		t.Errorf("date_from 未正确传递: %v", avail.gotFrom)
	}
	var body struct {
		Data dto.PotentialTimeResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Hours != 24 || body.Data.DateTo != "2026-01-07" {
		t.Errorf("响应不符: %+v", body.Data)
	}
}

func TestUnitHandler_GetPotentialTime_OmitFrom(t *testing.T) {
	avail := &mockAvailabilityService{hours: 8}
	h := NewUnitHandler(&mockUnitService{}, avail)

	r := gin.New()
	r.GET("/units/:id/potential-time", h.GetPotentialTime)
	w := serve(r, "GET", "/units/"+testUnitID+"/potential-time?date_to=2026-01-07", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if avail.gotFrom != nil {
		t.Errorf("省略 date_from 时应传 nil，实际 %v", avail.gotFrom)
	}
}

func TestUnitHandler_GetPotentialTime_BadParams(t *testing.T) {
	h := NewUnitHandler(&mockUnitService{}, &mockAvailabilityService{})
	r := gin.New()
	r.GET("/units/:id/potential-time", h.GetPotentialTime)

	cases := map[string]string{
		"非法 ID":    "/units/not-a-uuid/potential-time?date_to=2026-01-07",
		"缺少 date_to": "/units/" + testUnitID + "/potential-time",
		"日期格式错误":    "/units/" + testUnitID + "/potential-time?date_to=2026/01/07",
	}
	for name, target := range cases {
		w := serve(r, "GET", target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
	}
}

func TestUnitHandler_GetPotentialTime_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{service.ErrUnitNotFound, http.StatusNotFound, 20001},
		{service.ErrInvalidDateRange, http.StatusBadRequest, 20002},
		{context.DeadlineExceeded, http.StatusInternalServerError, 50000},
	}
	for _, tc := range cases {
		h := NewUnitHandler(&mockUnitService{}, &mockAvailabilityService{err: tc.err})
		r := gin.New()
		r.GET("/units/:id/potential-time", h.GetPotentialTime)
		w := serve(r, "GET", "/units/"+testUnitID+"/potential-time?date_to=2026-01-07", nil)

		if w.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, w.Code)
		}
		if resp := parseResponse(w); resp.Code != tc.code {
			t.Errorf("%v: expected code %d, got %d", tc.err, tc.code, resp.Code)
		}
	}
}

func TestUnitHandler_GetUnitInfo_IDs(t *testing.T) {
	other := "9b2b7e36-3a8c-4b8e-9d0b-6b1c2b6f4c11"
	unitSvc := &mockUnitService{infoResult: map[string]dto.UnitInfoResponse{}}
	h := NewUnitHandler(unitSvc, &mockAvailabilityService{})
	r := gin.New()
	r.GET("/units/info", h.GetUnitInfo)

	// 缺省 → nil（全部设备）
	serve(r, "GET", "/units/info?active_only=true", nil)
	if unitSvc.gotIDs != nil {
		t.Errorf("缺省 id 应传 nil，实际 %v", unitSvc.gotIDs)
	}
	if !unitSvc.gotActive {
		t.Error("active_only 未传递")
	}

	// 空参数 → 非 nil 空切片
	serve(r, "GET", "/units/info?id=", nil)
	if unitSvc.gotIDs == nil || len(unitSvc.gotIDs) != 0 {
		t.Errorf("空 id 应传非 nil 空切片，实际 %#v", unitSvc.gotIDs)
	}

	// 重复参数与逗号分隔
	serve(r, "GET", "/units/info?id="+testUnitID+","+other, nil)
	if len(unitSvc.gotIDs) != 2 {
		t.Errorf("期望 2 个 ID，实际 %v", unitSvc.gotIDs)
	}

	w := serve(r, "GET", "/units/info?id=bad", nil)
	if w.Code != http.StatusBadRequest || parseResponse(w).Code != 20003 {
		t.Errorf("非法 ID 期望 400/20003，实际 %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestUnitHandler_ListUnits(t *testing.T) {
	unitSvc := &mockUnitService{listResult: []model.Unit{{
		UnitID:         testUnitID,
		Number:         1,
		Name:           "LINAC 1",
		DateAcceptance: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:         true,
	}}}
	h := NewUnitHandler(unitSvc, &mockAvailabilityService{})
	r := gin.New()
	r.GET("/units", h.ListUnits)

	w := serve(r, "GET", "/units", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !unitSvc.gotActive {
		t.Error("默认应仅查询启用设备")
	}
	var body struct {
		Data []dto.UnitResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Data) != 1 || body.Data[0].DateAcceptance != "2020-01-01" {
		t.Errorf("响应不符: %+v", body.Data)
	}
}

func TestUnitHandler_CreateUnit(t *testing.T) {
	unitSvc := &mockUnitService{createRes: &model.Unit{
		UnitID:         testUnitID,
		Number:         4,
		Name:           "Halcyon",
		DateAcceptance: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Active:         true,
		IsServiceable:  true,
	}}
	h := NewUnitHandler(unitSvc, &mockAvailabilityService{})
	r := gin.New()
	r.POST("/units", withAuth(h.CreateUnit))

	req := dto.CreateUnitRequest{Number: 4, Name: "Halcyon", DateAcceptance: "2024-03-01"}
	w := serve(r, "POST", "/units", jsonBody(req))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if unitSvc.gotCaller != "test-user-id" {
		t.Errorf("调用者未正确传递: %q", unitSvc.gotCaller)
	}

	unitSvc.createErr = service.ErrUnitNumberTaken
	w = serve(r, "POST", "/units", jsonBody(req))
	if w.Code != http.StatusConflict || parseResponse(w).Code != 20004 {
		t.Errorf("期望 409/20004，实际 %d/%d", w.Code, parseResponse(w).Code)
	}

	w = serve(r, "POST", "/units", jsonBody(map[string]interface{}{"number": 5, "name": "x", "date_acceptance": "2024/03/01"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法验收日期期望 400，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ScheduleHandler Tests
// ═══════════════════════════════════════════════════════════

func TestScheduleHandler_SetWeeklySchedule(t *testing.T) {
	svc := &mockScheduleService{weeklyResult: &dto.WeeklyScheduleResponse{ID: "w1", UnitID: testUnitID}}
	h := NewScheduleHandler(svc, &mockICSSource{})
	r := gin.New()
	r.PUT("/units/:id/weekly-schedules", withAuth(h.SetWeeklySchedule))

	w := serve(r, "PUT", "/units/"+testUnitID+"/weekly-schedules", jsonBody(dto.WeeklyScheduleRequest{
		DateChanged: "2026-01-01",
		HoursMonday: 8,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 绑定阶段拒绝超过 24 小时
	w = serve(r, "PUT", "/units/"+testUnitID+"/weekly-schedules", jsonBody(map[string]interface{}{
		"date_changed": "2026-01-01",
		"hours_monday": 25,
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("超过 24 小时期望 400，实际 %d", w.Code)
	}
}

func TestScheduleHandler_SetWeeklySchedule_PastImmutable(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{weeklyErr: service.ErrPastScheduleImmutable}, &mockICSSource{})
	r := gin.New()
	r.PUT("/units/:id/weekly-schedules", withAuth(h.SetWeeklySchedule))

	w := serve(r, "PUT", "/units/"+testUnitID+"/weekly-schedules", jsonBody(dto.WeeklyScheduleRequest{
		DateChanged: "2020-01-01",
	}))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 21005 {
		t.Errorf("expected code 21005, got %d", resp.Code)
	}
}

func TestScheduleHandler_SetWeeklySchedule_Unauthenticated(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{}, &mockICSSource{})
	r := gin.New()
	r.PUT("/units/:id/weekly-schedules", h.SetWeeklySchedule)

	w := serve(r, "PUT", "/units/"+testUnitID+"/weekly-schedules", jsonBody(dto.WeeklyScheduleRequest{DateChanged: "2026-01-01"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestScheduleHandler_GetScheduleOn_None(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{}, &mockICSSource{})
	r := gin.New()
	r.GET("/units/:id/weekly-schedules/on", h.GetScheduleOn)

	w := serve(r, "GET", "/units/"+testUnitID+"/weekly-schedules/on?date=2026-01-01", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("无生效周计划期望 404，实际 %d", w.Code)
	}
}

func TestScheduleHandler_UpsertAndDeleteEdit(t *testing.T) {
	svc := &mockScheduleService{editResult: &dto.ScheduleEditResponse{UnitID: testUnitID, Date: "2026-01-01", Hours: 0, Name: "元旦"}}
	h := NewScheduleHandler(svc, &mockICSSource{})
	r := gin.New()
	r.PUT("/units/:id/schedule-edits", withAuth(h.UpsertEdit))
	r.DELETE("/units/:id/schedule-edits/:date", withAuth(h.DeleteEdit))
	r.DELETE("/units/:id/schedule-edits", withAuth(h.DeleteEditsInRange))

	w := serve(r, "PUT", "/units/"+testUnitID+"/schedule-edits", jsonBody(dto.ScheduleEditRequest{Date: "2026-01-01", Name: "元旦"}))
	if w.Code != http.StatusOK {
		t.Fatalf("UpsertEdit expected 200, got %d", w.Code)
	}

	w = serve(r, "DELETE", "/units/"+testUnitID+"/schedule-edits/2026-01-01", nil)
	if w.Code != http.StatusOK {
		t.Errorf("DeleteEdit expected 200, got %d", w.Code)
	}

	svc.deleteErr = service.ErrEditNotFound
	w = serve(r, "DELETE", "/units/"+testUnitID+"/schedule-edits/2026-01-02", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("不存在的调整期望 404，实际 %d", w.Code)
	}

	svc.deleteErr = nil
	svc.deleted = 3
	w = serve(r, "DELETE", "/units/"+testUnitID+"/schedule-edits?date_from=2026-01-01&date_to=2026-01-31", nil)
	var body struct {
		Data dto.DeleteEditsResult `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if w.Code != http.StatusOK || body.Data.Deleted != 3 {
		t.Errorf("区间删除期望 200/3，实际 %d/%d", w.Code, body.Data.Deleted)
	}

	w = serve(r, "DELETE", "/units/"+testUnitID+"/schedule-edits?date_from=2026-01-01", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少 date_to 期望 400，实际 %d", w.Code)
	}
}

func TestScheduleHandler_ImportHolidays_File(t *testing.T) {
	svc := &mockScheduleService{importResult: &dto.HolidayImportResult{Units: 1, Events: 1, Edits: 1}}
	h := NewScheduleHandler(svc, &mockICSSource{})
	r := gin.New()
	r.POST("/units/holidays/import", withAuth(h.ImportHolidays))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "holidays.ics")
	fw.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	mw.WriteField("unit_id", testUnitID)
	mw.WriteField("hours", "2.5")
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/units/holidays/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.gotUnitIDs) != 1 || svc.gotUnitIDs[0] != testUnitID {
		t.Errorf("unit_id 未正确传递: %v", svc.gotUnitIDs)
	}
	if svc.gotHours != 2.5 {
		t.Errorf("hours 期望 2.5，实际 %v", svc.gotHours)
	}
	if svc.gotBody == "" {
		t.Error("ICS 内容未传递给服务")
	}
}

func TestScheduleHandler_ImportHolidays_MissingSource(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{}, &mockICSSource{})
	r := gin.New()
	r.POST("/units/holidays/import", withAuth(h.ImportHolidays))

	w := serve(r, "POST", "/units/holidays/import", jsonBody(map[string]string{}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 21000 {
		t.Errorf("expected code 21000, got %d", resp.Code)
	}
}

func TestScheduleHandler_ImportHolidays_URL(t *testing.T) {
	svc := &mockScheduleService{importResult: &dto.HolidayImportResult{Events: 1, Units: 1, Edits: 1}}
	src := &mockICSSource{body: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"}
	h := NewScheduleHandler(svc, src)
	r := gin.New()
	r.POST("/units/holidays/import", withAuth(h.ImportHolidays))

	req := dto.HolidayImportRequest{URL: "https://calendar.example.org/holidays.ics", UnitIDs: []string{testUnitID}}
	w := serve(r, "POST", "/units/holidays/import", jsonBody(req))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if src.gotURL != req.URL || !strings.HasPrefix(svc.gotBody, "BEGIN:VCALENDAR") {
		t.Errorf("URL 或日历内容未正确传递: url=%q body=%q", src.gotURL, svc.gotBody)
	}

	src.err = fmt.Errorf("%w: 禁止访问内网地址 10.0.0.8", service.ErrICSURLNotAllowed)
	w = serve(r, "POST", "/units/holidays/import", jsonBody(req))
	if w.Code != http.StatusBadRequest || parseResponse(w).Code != 21008 {
		t.Errorf("被拒绝的地址期望 400/21008，实际 %d/%d", w.Code, parseResponse(w).Code)
	}

	src.err = errors.New("获取 ICS 失败: HTTP 500")
	w = serve(r, "POST", "/units/holidays/import", jsonBody(req))
	if w.Code != http.StatusBadRequest || parseResponse(w).Code != 21001 {
		t.Errorf("拉取失败期望 400/21001，实际 %d/%d", w.Code, parseResponse(w).Code)
	}
}

// ═══════════════════════════════════════════════════════════
// DueDateHandler Tests
// ═══════════════════════════════════════════════════════════

func TestDueDateHandler_SetDueDate_Explicit(t *testing.T) {
	due := "2026-02-01"
	svc := &mockDueDateService{getResult: &dto.DueDateResponse{AssignmentID: testAssignmentID, DueDate: &due, Status: "not_due"}}
	h := NewDueDateHandler(svc)
	r := gin.New()
	r.PUT("/assignments/:id/due-date", withAuth(h.SetDueDate))

	w := serve(r, "PUT", "/assignments/"+testAssignmentID+"/due-date", jsonBody(dto.SetDueDateRequest{DueDate: &due}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotDue == nil || svc.gotDue.Format(dateLayout) != due {
		t.Errorf("到期日未正确传递: %v", svc.gotDue)
	}
}

func TestDueDateHandler_SetDueDate_Recalculate(t *testing.T) {
	svc := &mockDueDateService{getResult: &dto.DueDateResponse{AssignmentID: testAssignmentID, Status: "no_due_date"}}
	h := NewDueDateHandler(svc)
	r := gin.New()
	r.PUT("/assignments/:id/due-date", withAuth(h.SetDueDate))

	w := serve(r, "PUT", "/assignments/"+testAssignmentID+"/due-date", jsonBody(map[string]interface{}{}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !svc.setCalled || svc.gotDue != nil {
		t.Errorf("空 due_date 应以 nil 调用 SetDueDate，实际 called=%v due=%v", svc.setCalled, svc.gotDue)
	}
}

func TestDueDateHandler_ErrorMapping(t *testing.T) {
	h := NewDueDateHandler(&mockDueDateService{getErr: service.ErrAssignmentNotFound, calcErr: service.ErrInvalidFrequency})
	r := gin.New()
	r.GET("/assignments/:id/due-date", h.GetDueDate)
	r.GET("/assignments/:id/due-date/calc", h.CalcDueDate)

	w := serve(r, "GET", "/assignments/"+testAssignmentID+"/due-date", nil)
	if w.Code != http.StatusNotFound || parseResponse(w).Code != 22001 {
		t.Errorf("期望 404/22001，实际 %d/%d", w.Code, parseResponse(w).Code)
	}
	w = serve(r, "GET", "/assignments/"+testAssignmentID+"/due-date/calc", nil)
	if w.Code != http.StatusConflict || parseResponse(w).Code != 22002 {
		t.Errorf("期望 409/22002，实际 %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestDueDateHandler_CompleteInstance(t *testing.T) {
	due := "2026-01-15"
	svc := &mockDueDateService{completeRes: &dto.DueDateResponse{AssignmentID: testAssignmentID, DueDate: &due, Status: "not_due"}}
	h := NewDueDateHandler(svc)
	r := gin.New()
	r.POST("/assignments/:id/complete", withAuth(h.CompleteInstance))

	w := serve(r, "POST", "/assignments/"+testAssignmentID+"/complete", jsonBody(dto.CompleteInstanceRequest{WorkCompleted: "2026-01-08"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(r, "POST", "/assignments/"+testAssignmentID+"/complete", jsonBody(map[string]string{"work_completed": "08/01/2026"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法日期期望 400，实际 %d", w.Code)
	}
}

func TestDueDateHandler_RefreshDueDates(t *testing.T) {
	svc := &mockDueDateService{refreshRes: &dto.RefreshDueDatesResult{Refreshed: 2}}
	h := NewDueDateHandler(svc)
	r := gin.New()
	r.POST("/assignments/refresh-due-dates", withAuth(h.RefreshDueDates))

	w := serve(r, "POST", "/assignments/refresh-due-dates?unit_id="+testUnitID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.gotUnitID != testUnitID {
		t.Errorf("unit_id 未正确传递: %q", svc.gotUnitID)
	}

	w = serve(r, "POST", "/assignments/refresh-due-dates?unit_id=bad", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法 unit_id 期望 400，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AssignmentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAssignmentHandler_CreateFrequency(t *testing.T) {
	svc := &mockAssignmentService{freqRes: &model.Frequency{Name: "每周", Slug: "weekly", NominalInterval: 7}}
	h := NewAssignmentHandler(svc)
	r := gin.New()
	r.POST("/frequencies", withAuth(h.CreateFrequency))

	w := serve(r, "POST", "/frequencies", jsonBody(dto.CreateFrequencyRequest{Name: "每周", Slug: "weekly", NominalInterval: 7}))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(r, "POST", "/frequencies", jsonBody(map[string]interface{}{"name": "x", "slug": "x", "nominal_interval": -3}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("非正名义间隔期望 400，实际 %d", w.Code)
	}

	svc.freqErr = service.ErrFrequencyExists
	w = serve(r, "POST", "/frequencies", jsonBody(dto.CreateFrequencyRequest{Name: "每周", Slug: "weekly", NominalInterval: 7}))
	if w.Code != http.StatusConflict || parseResponse(w).Code != 22004 {
		t.Errorf("期望 409/22004，实际 %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestAssignmentHandler_CreateAssignment(t *testing.T) {
	svc := &mockAssignmentService{assignRes: &dto.AssignmentResponse{ID: testAssignmentID, UnitID: testUnitID, Name: "每周输出"}}
	h := NewAssignmentHandler(svc)
	r := gin.New()
	r.POST("/assignments", withAuth(h.CreateAssignment))

	w := serve(r, "POST", "/assignments", jsonBody(dto.CreateAssignmentRequest{UnitID: testUnitID, Name: "每周输出"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(r, "POST", "/assignments", jsonBody(dto.CreateAssignmentRequest{UnitID: "unit-1", Name: "x"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法 unit_id 期望 400，实际 %d", w.Code)
	}

	svc.assignErr = service.ErrUnitNotFound
	w = serve(r, "POST", "/assignments", jsonBody(dto.CreateAssignmentRequest{UnitID: testUnitID, Name: "x"}))
	if w.Code != http.StatusNotFound || parseResponse(w).Code != 20001 {
		t.Errorf("期望 404/20001，实际 %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestAssignmentHandler_UpdateAssignment(t *testing.T) {
	svc := &mockAssignmentService{assignRes: &dto.AssignmentResponse{ID: testAssignmentID}}
	h := NewAssignmentHandler(svc)
	r := gin.New()
	r.PUT("/assignments/:id", withAuth(h.UpdateAssignment))

	w := serve(r, "PUT", "/assignments/"+testAssignmentID, jsonBody(map[string]string{"frequency": "monthly"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotUpdate == nil || svc.gotUpdate.Frequency == nil || *svc.gotUpdate.Frequency != "monthly" {
		t.Errorf("frequency 未正确传递: %+v", svc.gotUpdate)
	}
	if svc.gotUpdate.Name != nil || svc.gotUpdate.Active != nil {
		t.Errorf("未提供的字段应为 nil: %+v", svc.gotUpdate)
	}

	cases := []struct {
		err  error
		http int
		code int
	}{
		{service.ErrFrequencyNotFound, http.StatusNotFound, 22003},
		{service.ErrAssignmentNotFound, http.StatusNotFound, 22001},
		{service.ErrInvalidFrequency, http.StatusConflict, 22002},
	}
	for _, tc := range cases {
		svc.assignErr = tc.err
		w = serve(r, "PUT", "/assignments/"+testAssignmentID, jsonBody(map[string]string{"frequency": "x"}))
		if w.Code != tc.http || parseResponse(w).Code != tc.code {
			t.Errorf("%v: 期望 %d/%d，实际 %d/%d", tc.err, tc.http, tc.code, w.Code, parseResponse(w).Code)
		}
	}
}

func TestAssignmentHandler_ListInstances(t *testing.T) {
	svc := &mockAssignmentService{instances: []dto.InstanceResponse{{ID: "i-1", WorkCompleted: "2026-01-08"}}}
	h := NewAssignmentHandler(svc)
	r := gin.New()
	r.GET("/assignments/:id/instances", withAuth(h.ListInstances))

	w := serve(r, "GET", "/assignments/"+testAssignmentID+"/instances?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.gotLimit != 5 {
		t.Errorf("limit 未正确传递: %d", svc.gotLimit)
	}

	w = serve(r, "GET", "/assignments/"+testAssignmentID+"/instances?limit=0", nil)
	if w.Code != http.StatusOK || svc.gotLimit != 0 {
		t.Errorf("limit=0 按默认条数处理，实际 %d/%d", w.Code, svc.gotLimit)
	}

	w = serve(r, "GET", "/assignments/"+testAssignmentID+"/instances?limit=1000", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("超出上限期望 400，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportAvailability_Success(t *testing.T) {
	h := NewExportHandler(&mockExportService{
		buf:      bytes.NewBufferString("xlsx-bytes"),
		filename: "设备可用时间_20260101_20260131.xlsx",
	})
	r := gin.New()
	r.GET("/export/availability", h.ExportAvailability)

	w := serve(r, "GET", "/export/availability?date_from=2026-01-01&date_to=2026-01-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type 不符: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Error("缺少 Content-Disposition")
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Errorf("响应体不符: %q", w.Body.String())
	}
}

func TestExportHandler_ExportAvailability_NoUnits(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoUnits})
	r := gin.New()
	r.GET("/export/availability", h.ExportAvailability)

	w := serve(r, "GET", "/export/availability?date_from=2026-01-01&date_to=2026-01-31", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
