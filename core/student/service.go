package student

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core"
)

var (
	// ErrNotFound means the store has no record for the student. Callers
	// treat it as "create a new record", not as a user-facing failure.
	ErrNotFound = errors.New("student record not found")
	// ErrInvalidPin is a user-correctable credential mismatch.
	ErrInvalidPin = errors.New("invalid PIN")
	// ErrGatewayUnavailable is a transient remote failure with no usable
	// local fallback.
	ErrGatewayUnavailable = errors.New("student record store unavailable")
)

type (
	// ClassConfig is the class-wide configuration record held by the store:
	// the shared PIN and the student index mapping ids to record handles.
	ClassConfig struct {
		ClassPin    string            `json:"classPin"`
		Students    map[string]string `json:"students"`
		LastUpdated time.Time         `json:"lastUpdated"`
	}

	// Gateway is the persistence boundary to the student-record store.
	// Implementations: the Gist adapter, the Postgres adapter, and the
	// two-tier cache wrapper around either.
	Gateway interface {
		LoadConfig(ctx context.Context) (ClassConfig, error)
		LoadRecord(ctx context.Context, handle string) (*Progress, error)
		CreateRecord(ctx context.Context, studentID string, p *Progress) (string, error)
		SaveRecord(ctx context.Context, handle string, p *Progress) error
		DeleteRecord(ctx context.Context, studentID string) error
		ListAllRecords(ctx context.Context) (map[string]*Progress, error)
	}

	// Session is an authenticated student context; its Progress is the
	// locally authoritative copy of the record. Granted holds any badges
	// unlocked while establishing the session so the login response can
	// announce them.
	Session struct {
		StudentID string
		Handle    string
		Progress  *Progress
		IsNew     bool
		Granted   []Achievement
	}

	LeaderboardEntry struct {
		Rank           int    `json:"rank"`
		StudentID      string `json:"studentId"`
		Name           string `json:"name"`
		Points         int    `json:"points"`
		Streak         int    `json:"streak"`
		Achievements   int    `json:"achievements"`
		LecturesViewed int    `json:"lecturesViewed"`
	}

	Service struct {
		gw        Gateway
		evaluator *Evaluator
		updater   *Updater
		logger    core.Logger
		joinBonus int
		viewOpts  ViewOptions

		nowFunc func() time.Time // mockable
	}
)

func NewService(gw Gateway, catalog Catalog, logger core.Logger, conf *core.Config) *Service {
	evaluator := NewEvaluator(catalog)
	return &Service{
		gw:        gw,
		evaluator: evaluator,
		updater:   NewUpdater(evaluator),
		logger:    logger,
		joinBonus: conf.JoinBonus,
		viewOpts: ViewOptions{
			MinViewTime:      conf.MinViewTime,
			PointsFirstView:  conf.PointsFirstView,
			PointsCompletion: conf.PointsCompletion,
		},
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// NewServiceMock returns a Service with a fixed clock, for tests.
func NewServiceMock(gw Gateway, catalog Catalog, logger core.Logger, conf *core.Config, now time.Time) *Service {
	svc := NewService(gw, catalog, logger, conf)
	svc.nowFunc = func() time.Time { return now }
	return svc
}

func (svc *Service) Catalog() Catalog {
	return svc.evaluator.Catalog()
}

// Authenticate checks the submitted PIN against the class-wide shared secret
// and loads (or creates) the student's record. A returning student gets
// their streak recomputed and the refreshed record saved best-effort.
func (svc *Service) Authenticate(ctx context.Context, studentID, pin string) (*Session, error) {
	studentID = core.CleanString(studentID, true /* lower */)

	cfg, err := svc.gw.LoadConfig(ctx)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("loading class config: %v", err), err)
		return nil, ErrGatewayUnavailable
	}
	if cfg.ClassPin == "" || cfg.ClassPin != pin {
		return nil, ErrInvalidPin
	}

	now := svc.nowFunc()
	if handle, ok := cfg.Students[studentID]; ok {
		p, err := svc.gw.LoadRecord(ctx, handle)
		switch errors.Cause(err) {
		case nil:
			p.RefreshStreak(now)
			sess := &Session{StudentID: studentID, Handle: handle, Progress: p}
			// streak change may unlock streak badges right away
			if eff, aerr := svc.applyAndSave(ctx, sess, AchievementsGranted{svc.evaluator.Evaluate(p, now)}); aerr == nil {
				sess.Granted = eff.Granted
			}
			return sess, nil
		case ErrNotFound:
			// stale index entry; recover by re-creating the record
		default:
			svc.logger.Error(fmt.Sprintf("loading record %q: %v", handle, err), err)
			return nil, ErrGatewayUnavailable
		}
	}
	return svc.register(ctx, studentID, now)
}

func (svc *Service) register(ctx context.Context, studentID string, now time.Time) (*Session, error) {
	p := NewProgress(studentID, svc.joinBonus, now)
	handle, err := svc.gw.CreateRecord(ctx, studentID, p)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("creating record for %q: %v", studentID, err), err)
		return nil, ErrGatewayUnavailable
	}
	sess := &Session{StudentID: studentID, Handle: handle, Progress: p, IsNew: true}

	// a brand-new record can already qualify for time-based badges
	if granted := svc.evaluator.Evaluate(p, now); len(granted) > 0 {
		if eff, aerr := svc.applyAndSave(ctx, sess, AchievementsGranted{granted}); aerr == nil {
			sess.Granted = eff.Granted
		}
	}
	return sess, nil
}

// Register creates a record for a student without credentials; admin
// surfaces only. Registering an already-enrolled student returns the
// existing record unchanged.
func (svc *Service) Register(ctx context.Context, studentID string) (*Session, error) {
	studentID = core.CleanString(studentID, true /* lower */)

	cfg, err := svc.gw.LoadConfig(ctx)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("loading class config: %v", err), err)
		return nil, ErrGatewayUnavailable
	}
	if handle, ok := cfg.Students[studentID]; ok {
		p, err := svc.gw.LoadRecord(ctx, handle)
		switch errors.Cause(err) {
		case nil:
			return &Session{StudentID: studentID, Handle: handle, Progress: p}, nil
		case ErrNotFound:
			// stale index entry; recover by re-creating the record
		default:
			svc.logger.Error(fmt.Sprintf("loading record %q: %v", handle, err), err)
			return nil, ErrGatewayUnavailable
		}
	}
	return svc.register(ctx, studentID, svc.nowFunc())
}

// TrackLectureView applies a completed lecture viewing. Passing nil options
// uses the configured defaults.
func (svc *Service) TrackLectureView(ctx context.Context, sess *Session, number, title string, opts *ViewOptions) (Effects, error) {
	o := svc.viewOpts
	if opts != nil {
		o = *opts
	}
	return svc.applyAndSave(ctx, sess, LectureViewed{Number: number, Title: core.CleanString(title), Options: o})
}

// AwardPoints applies a manual point grant, then runs a full achievement
// check so milestone badges unlock immediately.
func (svc *Service) AwardPoints(ctx context.Context, sess *Session, amount int, reason string) (Effects, error) {
	now := svc.nowFunc()
	eff, err := svc.updater.Apply(sess.Progress, PointsAwarded{Amount: amount, Reason: reason}, now)
	if err != nil {
		return eff, err
	}
	geff, err := svc.updater.Apply(sess.Progress, AchievementsGranted{svc.evaluator.Evaluate(sess.Progress, now)}, now)
	if err != nil {
		return eff, err
	}
	eff.Granted = geff.Granted
	svc.save(ctx, sess)
	return eff, nil
}

func (svc *Service) TrackSocialActivity(ctx context.Context, sess *Session, kind string) (Effects, error) {
	return svc.applyAndSave(ctx, sess, SocialAction{Kind: kind})
}

// Leaderboard is a bulk read of all records sorted by points descending.
func (svc *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	records, err := svc.gw.ListAllRecords(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}

	entries := make([]LeaderboardEntry, 0, len(records))
	for id, p := range records {
		entries = append(entries, LeaderboardEntry{
			StudentID:      id,
			Name:           p.Name,
			Points:         p.Points,
			Streak:         p.Streak,
			Achievements:   len(p.Achievements),
			LecturesViewed: len(p.ViewedLectures),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].StudentID < entries[j].StudentID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (svc *Service) ListAll(ctx context.Context) (map[string]*Progress, error) {
	return svc.gw.ListAllRecords(ctx)
}

// Lookup finds a student by id without credentials; admin surfaces only.
func (svc *Service) Lookup(ctx context.Context, studentID string) (*Session, error) {
	studentID = core.CleanString(studentID, true /* lower */)
	cfg, err := svc.gw.LoadConfig(ctx)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("loading class config: %v", err), err)
		return nil, ErrGatewayUnavailable
	}
	handle, ok := cfg.Students[studentID]
	if !ok {
		return nil, ErrNotFound
	}
	p, err := svc.gw.LoadRecord(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &Session{StudentID: studentID, Handle: handle, Progress: p}, nil
}

// Resume rebuilds a session for an already-authenticated student (token
// bearer) without re-checking the PIN.
func (svc *Service) Resume(ctx context.Context, studentID, handle string) (*Session, error) {
	p, err := svc.gw.LoadRecord(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &Session{StudentID: studentID, Handle: handle, Progress: p}, nil
}

func (svc *Service) Delete(ctx context.Context, studentID string) error {
	return svc.gw.DeleteRecord(ctx, core.CleanString(studentID, true /* lower */))
}

// applyAndSave applies the event in memory then persists best-effort: a
// failed save is logged and the in-memory state stays authoritative.
func (svc *Service) applyAndSave(ctx context.Context, sess *Session, ev Event) (Effects, error) {
	eff, err := svc.updater.Apply(sess.Progress, ev, svc.nowFunc())
	if err != nil {
		return eff, err
	}
	svc.save(ctx, sess)
	return eff, nil
}

func (svc *Service) save(ctx context.Context, sess *Session) {
	sess.Progress.LastActive = svc.nowFunc()
	if err := svc.gw.SaveRecord(ctx, sess.Handle, sess.Progress); err != nil {
		svc.logger.Warn(fmt.Sprintf("saving record %q failed; continuing with local state: %v", sess.Handle, err), err)
	}
}
