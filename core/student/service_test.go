package student

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core"
)

type fakeGateway struct {
	cfg     ClassConfig
	records map[string]*Progress // by handle

	cfgErr  error
	loadErr error
	saveErr error

	saves int
}

var _ Gateway = (*fakeGateway)(nil)

func newFakeGateway(pin string) *fakeGateway {
	return &fakeGateway{
		cfg:     ClassConfig{ClassPin: pin, Students: make(map[string]string)},
		records: make(map[string]*Progress),
	}
}

func (gw *fakeGateway) LoadConfig(ctx context.Context) (ClassConfig, error) {
	if gw.cfgErr != nil {
		return ClassConfig{}, gw.cfgErr
	}
	return gw.cfg, nil
}

func (gw *fakeGateway) LoadRecord(ctx context.Context, handle string) (*Progress, error) {
	if gw.loadErr != nil {
		return nil, gw.loadErr
	}
	p, ok := gw.records[handle]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (gw *fakeGateway) CreateRecord(ctx context.Context, studentID string, p *Progress) (string, error) {
	handle := "h-" + studentID
	gw.records[handle] = p
	gw.cfg.Students[studentID] = handle
	return handle, nil
}

func (gw *fakeGateway) SaveRecord(ctx context.Context, handle string, p *Progress) error {
	gw.saves++
	if gw.saveErr != nil {
		return gw.saveErr
	}
	gw.records[handle] = p
	return nil
}

func (gw *fakeGateway) DeleteRecord(ctx context.Context, studentID string) error {
	handle, ok := gw.cfg.Students[studentID]
	if !ok {
		return ErrNotFound
	}
	delete(gw.records, handle)
	delete(gw.cfg.Students, studentID)
	return nil
}

func (gw *fakeGateway) ListAllRecords(ctx context.Context) (map[string]*Progress, error) {
	all := make(map[string]*Progress, len(gw.records))
	for id, handle := range gw.cfg.Students {
		if p, ok := gw.records[handle]; ok {
			all[id] = p
		}
	}
	return all, nil
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func newTestService(gw Gateway) *Service {
	conf := &core.Config{JoinBonus: 10, PointsFirstView: 10, PointsCompletion: 5, MinViewTime: 30}
	svc := NewService(gw, DefaultCatalog(), nopLogger{}, conf)
	svc.nowFunc = func() time.Time { return weekday10AM }
	return svc
}

func Test_Service_Authenticate_newStudent(t *testing.T) {
	gw := newFakeGateway("4242")
	svc := newTestService(gw)
	ctx := context.Background()

	sess, err := svc.Authenticate(ctx, "Jordan.Lee", "4242")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if !sess.IsNew {
		t.Error("expected a new session")
	}
	if sess.StudentID != "jordan.lee" {
		t.Errorf("studentID = %q, want lowercased jordan.lee", sess.StudentID)
	}

	p := sess.Progress
	if p.Points != 10 || p.Streak != 1 {
		t.Errorf("points = %d, streak = %d; want join bonus 10, streak 1", p.Points, p.Streak)
	}
	if len(p.Activities) == 0 || p.Activities[len(p.Activities)-1].Type != ActivityJoined {
		t.Errorf("missing joined_class activity: %+v", p.Activities)
	}
	if _, ok := gw.cfg.Students["jordan.lee"]; !ok {
		t.Error("student not added to the class index")
	}
}

func Test_Service_Authenticate_badPin(t *testing.T) {
	svc := newTestService(newFakeGateway("4242"))

	if _, err := svc.Authenticate(context.Background(), "jordan.lee", "0000"); errors.Cause(err) != ErrInvalidPin {
		t.Errorf("Authenticate() error = %v, want ErrInvalidPin", err)
	}
}

func Test_Service_Authenticate_gatewayDown(t *testing.T) {
	gw := newFakeGateway("4242")
	gw.cfgErr = errors.New("remote unreachable")
	svc := newTestService(gw)

	if _, err := svc.Authenticate(context.Background(), "jordan.lee", "4242"); errors.Cause(err) != ErrGatewayUnavailable {
		t.Errorf("Authenticate() error = %v, want ErrGatewayUnavailable", err)
	}
}

func Test_Service_Authenticate_returningStudent(t *testing.T) {
	gw := newFakeGateway("4242")
	svc := newTestService(gw)
	ctx := context.Background()

	first, err := svc.Authenticate(ctx, "jordan.lee", "4242")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}

	// same-day return: streak unchanged
	again, err := svc.Authenticate(ctx, "jordan.lee", "4242")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if again.IsNew {
		t.Error("returning student flagged as new")
	}
	if again.Progress.Streak != first.Progress.Streak {
		t.Errorf("streak = %d after same-day reload, want %d", again.Progress.Streak, first.Progress.Streak)
	}

	// next-day return within 48h: streak increments
	rec := gw.records[gw.cfg.Students["jordan.lee"]]
	rec.LastActive = weekday10AM.Add(-30 * time.Hour)
	next, err := svc.Authenticate(ctx, "jordan.lee", "4242")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if next.Progress.Streak != first.Progress.Streak+1 {
		t.Errorf("streak = %d after 30h gap, want %d", next.Progress.Streak, first.Progress.Streak+1)
	}
}

func Test_Service_Authenticate_streakBadgeAnnounced(t *testing.T) {
	gw := newFakeGateway("4242")
	svc := newTestService(gw)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "jordan.lee", "4242"); err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}

	// one day short of the consistent badge, last seen yesterday
	rec := gw.records[gw.cfg.Students["jordan.lee"]]
	rec.Streak = 2
	rec.LastActive = weekday10AM.Add(-30 * time.Hour)

	sess, err := svc.Authenticate(ctx, "jordan.lee", "4242")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if sess.Progress.Streak != 3 {
		t.Fatalf("streak = %d, want 3", sess.Progress.Streak)
	}
	// the login-time unlock is announced on the session, not just recorded
	assertIDs(t, sess.Granted, "consistent")
	if sess.Progress.Points != 40 { // 10 join + 30 badge bonus
		t.Errorf("points = %d, want 40", sess.Progress.Points)
	}
}

func Test_Service_Authenticate_staleIndexEntry(t *testing.T) {
	gw := newFakeGateway("4242")
	gw.cfg.Students["jordan.lee"] = "h-gone" // handle with no record behind it
	svc := newTestService(gw)

	sess, err := svc.Authenticate(context.Background(), "jordan.lee", "4242")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if !sess.IsNew {
		t.Error("expected record re-creation for a stale index entry")
	}
}

func Test_Service_TrackLectureView_saveFailureIsLocal(t *testing.T) {
	gw := newFakeGateway("4242")
	svc := newTestService(gw)
	ctx := context.Background()

	sess, err := svc.Authenticate(ctx, "jordan.lee", "4242")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}

	gw.saveErr = errors.New("remote write failed")
	eff, err := svc.TrackLectureView(ctx, sess, "1", "Intro", nil)
	if err != nil {
		t.Fatalf("TrackLectureView() failed: %v", err)
	}

	// in-memory state advanced despite the failed save
	if eff.PointsDelta != 10 {
		t.Errorf("PointsDelta = %d, want 10", eff.PointsDelta)
	}
	if sess.Progress.Points != 30 { // 10 join + 10 view + 10 first_steps
		t.Errorf("points = %d, want 30", sess.Progress.Points)
	}
	if !sess.Progress.ViewedLectures["1"].Completed {
		t.Error("lecture not marked completed")
	}
}

func Test_Service_AwardPoints_milestones(t *testing.T) {
	gw := newFakeGateway("4242")
	svc := newTestService(gw)
	ctx := context.Background()

	sess, err := svc.Authenticate(ctx, "jordan.lee", "4242")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}

	eff, err := svc.AwardPoints(ctx, sess, 95, "project demo")
	if err != nil {
		t.Fatalf("AwardPoints() failed: %v", err)
	}
	if eff.PointsDelta != 95 {
		t.Errorf("PointsDelta = %d, want 95", eff.PointsDelta)
	}
	// 10 join + 95 = 105 crosses the 100-point milestone
	assertIDs(t, eff.Granted, "rising_star")
	if sess.Progress.Points != 105 {
		t.Errorf("points = %d, want 105 (milestone bonus is 0)", sess.Progress.Points)
	}
}

func Test_Service_Leaderboard(t *testing.T) {
	gw := newFakeGateway("4242")
	svc := newTestService(gw)
	ctx := context.Background()

	a, _ := svc.Authenticate(ctx, "amy", "4242")
	b, _ := svc.Authenticate(ctx, "ben", "4242")
	if _, err := svc.AwardPoints(ctx, b, 50, "quiz"); err != nil {
		t.Fatalf("AwardPoints() failed: %v", err)
	}
	_ = a

	entries, err := svc.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("leaderboard has %d entries, want 2", len(entries))
	}
	if entries[0].StudentID != "ben" || entries[0].Rank != 1 {
		t.Errorf("entries[0] = %+v, want ben at rank 1", entries[0])
	}
	if entries[1].StudentID != "amy" || entries[1].Rank != 2 {
		t.Errorf("entries[1] = %+v, want amy at rank 2", entries[1])
	}
}
