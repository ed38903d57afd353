package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/ocuweb/classpoints/apps/api/echo"
	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/attendance"
	"github.com/ocuweb/classpoints/core/student"
	"github.com/ocuweb/classpoints/storage/memory"
	testutil "github.com/ocuweb/classpoints/tests"
)

type env struct {
	server echoapi.Server
	conf   *core.Config
	svc    *student.Service
	gw     *memory.StudentGateway
}

func setup(t *testing.T) *env {
	conf := testutil.TestConfig()
	conf.Debug = false // keep error payloads in their prod shape
	conf.AdminPassword = "hunter2"

	logger := testutil.NopLogger{T: t}
	gw := memory.NewStudentGateway("4242")
	svc := student.NewServiceMock(gw, student.DefaultCatalog(), logger, conf, testutil.Weekday10AM)

	termStart, _ := time.Parse("2006-01-02", conf.TermStart)
	termEnd, _ := time.Parse("2006-01-02", conf.TermEnd)
	attSvc := attendance.NewService(
		memory.NewAttendanceRepository(),
		attendance.NewSchedule(termStart, termEnd, conf.Holidays),
		logger,
	)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	return &env{
		server: echoapi.NewServer(echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			StudentSvc:     svc,
			AttendanceSvc:  attSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		}),
		conf: conf,
		svc:  svc,
		gw:   gw,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func (e *env) login(t *testing.T, studentID, pin string) echoapi.LoginResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"studentId": studentID, "pin": pin})
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	return resp
}

func (e *env) adminToken(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/admin/login", "", map[string]string{"password": e.conf.AdminPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.TokenResponse
	decode(t, rec, &resp)
	return resp.Token
}

func Test_login(t *testing.T) {
	e := setup(t)

	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"studentId": "jordan.lee", "pin": "0000"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad pin: code = %d, want 400", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"studentId": "x", "pin": "4242"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid student id: code = %d, want 400", rec.Code)
	}

	resp := e.login(t, "jordan.lee", "4242")
	if resp.Token == "" {
		t.Error("no token returned")
	}
	if !resp.IsNew || resp.Student == nil || resp.Student.Points != 10 {
		t.Errorf("login response = %+v, want new student with join bonus", resp)
	}

	// second login is a returning session
	again := e.login(t, "jordan.lee", "4242")
	if again.IsNew {
		t.Error("returning student flagged as new")
	}
	if again.Granted == nil || len(again.Granted) != 0 {
		t.Errorf("granted = %+v, want an empty list on a quiet login", again.Granted)
	}
}

func Test_login_announcesStreakBadge(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.login(t, "jordan.lee", "4242")

	// backdate the record to one day short of the consistent badge
	cfg, err := e.gw.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	handle := cfg.Students["jordan.lee"]
	p, err := e.gw.LoadRecord(ctx, handle)
	if err != nil {
		t.Fatalf("LoadRecord() failed: %v", err)
	}
	p.Streak = 2
	p.LastActive = testutil.Weekday10AM.Add(-30 * time.Hour)
	if err := e.gw.SaveRecord(ctx, handle, p); err != nil {
		t.Fatalf("SaveRecord() failed: %v", err)
	}

	resp := e.login(t, "jordan.lee", "4242")
	if resp.Student.Streak != 3 {
		t.Fatalf("streak = %d, want 3", resp.Student.Streak)
	}
	if len(resp.Granted) != 1 || resp.Granted[0].ID != "consistent" {
		t.Errorf("granted = %+v, want the consistent badge announced", resp.Granted)
	}
}

func Test_me(t *testing.T) {
	e := setup(t)

	rec := e.do(t, http.MethodGet, "/v1/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: code = %d, want 401", rec.Code)
	}

	token := e.login(t, "jordan.lee", "4242").Token
	rec = e.do(t, http.MethodGet, "/v1/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var p student.Progress
	decode(t, rec, &p)
	if p.StudentID != "jordan.lee" || p.Points != 10 {
		t.Errorf("record = %+v", p)
	}
}

func Test_trackLectureView(t *testing.T) {
	e := setup(t)
	token := e.login(t, "jordan.lee", "4242").Token

	rec := e.do(t, http.MethodPost, "/v1/me/lectures/1/view", token, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing title: code = %d, want 400", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/v1/me/lectures/1/view", token, map[string]string{"title": "Intro"})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.TrackResponse
	decode(t, rec, &resp)
	if resp.PointsDelta != 10 || !resp.FirstView || !resp.Completed {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Granted) != 1 || resp.Granted[0].ID != "first_steps" {
		t.Errorf("granted = %v, want first_steps", resp.Granted)
	}
	if resp.Student.Points != 30 { // 10 join + 10 view + 10 badge
		t.Errorf("points = %d, want 30", resp.Student.Points)
	}
}

func Test_trackSocialActivity(t *testing.T) {
	e := setup(t)
	token := e.login(t, "jordan.lee", "4242").Token

	rec := e.do(t, http.MethodPost, "/v1/me/social/update_showcase", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.TrackResponse
	decode(t, rec, &resp)
	if resp.Student.SocialActivities["showcaseUpdates"] != 1 {
		t.Errorf("social counters = %v", resp.Student.SocialActivities)
	}

	rec = e.do(t, http.MethodPost, "/v1/me/social/poke", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind: code = %d, want 400", rec.Code)
	}
}

func Test_leaderboard(t *testing.T) {
	e := setup(t)
	amy := e.login(t, "amy", "4242").Token
	e.login(t, "ben", "4242")

	rec := e.do(t, http.MethodGet, "/v1/leaderboard", amy, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var entries []student.LeaderboardEntry
	decode(t, rec, &entries)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	// viewing the board counted as a social action for amy
	rec = e.do(t, http.MethodGet, "/v1/me", amy, nil)
	var p student.Progress
	decode(t, rec, &p)
	if p.SocialActivities["leaderboardViews"] != 1 {
		t.Errorf("leaderboardViews = %d, want 1", p.SocialActivities["leaderboardViews"])
	}
}

func Test_adminLogin(t *testing.T) {
	e := setup(t)

	rec := e.do(t, http.MethodPost, "/v1/admin/login", "", map[string]string{"password": "wrong"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong password: code = %d, want 400", rec.Code)
	}
	if token := e.adminToken(t); token == "" {
		t.Error("no admin token returned")
	}
}

func Test_adminEndpointsRequireAdmin(t *testing.T) {
	e := setup(t)
	studentToken := e.login(t, "amy", "4242").Token

	rec := e.do(t, http.MethodGet, "/v1/admin/students", studentToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student token on admin route: code = %d, want 403", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/v1/admin/students", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token on admin route: code = %d, want 401", rec.Code)
	}
}

func Test_adminAward(t *testing.T) {
	e := setup(t)
	e.login(t, "amy", "4242")
	admin := e.adminToken(t)

	rec := e.do(t, http.MethodPost, "/v1/admin/students/amy/award", admin,
		map[string]interface{}{"points": 50, "reason": "great project"})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.TrackResponse
	decode(t, rec, &resp)
	if resp.PointsDelta != 50 {
		t.Errorf("pointsDelta = %d, want 50", resp.PointsDelta)
	}
	// 10 join + 50 award + 200 recognition badge bonus
	if resp.Student.Points != 260 {
		t.Errorf("points = %d, want 260", resp.Student.Points)
	}
	if resp.Student.SocialActivities["instructorAwards"] != 1 {
		t.Errorf("instructorAwards = %d, want 1", resp.Student.SocialActivities["instructorAwards"])
	}
	if !resp.Student.HasAchievement("ocu_hero") {
		t.Errorf("achievements = %v, want ocu_hero", resp.Student.Achievements)
	}

	rec = e.do(t, http.MethodPost, "/v1/admin/students/ghost/award", admin,
		map[string]interface{}{"points": 5, "reason": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown student: code = %d, want 404", rec.Code)
	}
}

func Test_adminRegister(t *testing.T) {
	e := setup(t)
	admin := e.adminToken(t)

	rec := e.do(t, http.MethodPost, "/v1/admin/students", admin, map[string]string{"studentId": "Casey.Kim"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.RegisterResponse
	decode(t, rec, &resp)
	if !resp.IsNew || resp.Student.StudentID != "casey.kim" || resp.Student.Points != 10 {
		t.Errorf("response = %+v, want a fresh lowercased record with the join bonus", resp)
	}

	// re-registering returns the existing record untouched
	rec = e.do(t, http.MethodPost, "/v1/admin/students", admin, map[string]string{"studentId": "casey.kim"})
	if rec.Code != http.StatusOK {
		t.Fatalf("re-register: code = %d: %s", rec.Code, rec.Body.String())
	}
	resp = echoapi.RegisterResponse{} // omitempty drops isNew:false, so reset before decoding
	decode(t, rec, &resp)
	if resp.IsNew || resp.Student.Points != 10 {
		t.Errorf("re-register response = %+v", resp)
	}

	// the pre-registered student can log in without being flagged new
	if login := e.login(t, "casey.kim", "4242"); login.IsNew {
		t.Error("pre-registered student flagged as new on first login")
	}
}

func Test_adminAttendance(t *testing.T) {
	e := setup(t)
	e.login(t, "amy", "4242")
	admin := e.adminToken(t)

	rec := e.do(t, http.MethodPost, "/v1/admin/attendance", admin,
		map[string]interface{}{"studentId": "amy", "date": "2025-09-04"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark: code = %d: %s", rec.Code, rec.Body.String())
	}

	// Wednesday is not a class day
	rec = e.do(t, http.MethodPost, "/v1/admin/attendance", admin,
		map[string]interface{}{"studentId": "amy", "date": "2025-09-03"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("off-schedule mark: code = %d, want 400", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/v1/admin/attendance", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview: code = %d: %s", rec.Code, rec.Body.String())
	}
	var ov attendance.Overview
	decode(t, rec, &ov)
	if len(ov.Students) != 1 || ov.Students[0].StudentID != "amy" {
		t.Errorf("overview = %+v", ov)
	}

	rec = e.do(t, http.MethodGet, "/v1/admin/attendance/amy/history", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: code = %d: %s", rec.Code, rec.Body.String())
	}
	var history []attendance.Record
	decode(t, rec, &history)
	if len(history) != 1 || history[0].Date != "2025-09-04" {
		t.Errorf("history = %+v", history)
	}

	rec = e.do(t, http.MethodDelete, "/v1/admin/attendance/amy/2025-09-04", admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("unmark: code = %d, want 204", rec.Code)
	}
	rec = e.do(t, http.MethodDelete, "/v1/admin/attendance/amy/2025-09-04", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second unmark: code = %d, want 404", rec.Code)
	}
}

func Test_adminDeleteStudent(t *testing.T) {
	e := setup(t)
	token := e.login(t, "amy", "4242").Token
	admin := e.adminToken(t)

	rec := e.do(t, http.MethodDelete, "/v1/admin/students/amy", admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: code = %d: %s", rec.Code, rec.Body.String())
	}

	// the old token no longer resolves to a record
	rec = e.do(t, http.MethodGet, "/v1/me", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("me after delete: code = %d, want 404", rec.Code)
	}

	// logging back in starts a fresh record
	resp := e.login(t, "amy", "4242")
	if !resp.IsNew || resp.Student.Points != 10 {
		t.Errorf("relogin = %+v, want a fresh record", resp)
	}
}
