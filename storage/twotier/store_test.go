package twotier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core/student"
	"github.com/ocuweb/classpoints/storage/cache"
	testutil "github.com/ocuweb/classpoints/tests"
)

type fakeRemote struct {
	mu      sync.Mutex
	cfg     student.ClassConfig
	records map[string]*student.Progress
	down    bool
	saves   int
}

var _ student.Gateway = (*fakeRemote)(nil)

var errRemoteDown = errors.New("remote down")

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		cfg:     student.ClassConfig{ClassPin: "4242", Students: make(map[string]string)},
		records: make(map[string]*student.Progress),
	}
}

func (r *fakeRemote) LoadConfig(ctx context.Context) (student.ClassConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return student.ClassConfig{}, errRemoteDown
	}
	return r.cfg, nil
}

func (r *fakeRemote) LoadRecord(ctx context.Context, handle string) (*student.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errRemoteDown
	}
	p, ok := r.records[handle]
	if !ok {
		return nil, student.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRemote) CreateRecord(ctx context.Context, studentID string, p *student.Progress) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return "", errRemoteDown
	}
	handle := "h-" + studentID
	r.records[handle] = p
	r.cfg.Students[studentID] = handle
	return handle, nil
}

func (r *fakeRemote) SaveRecord(ctx context.Context, handle string, p *student.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errRemoteDown
	}
	r.records[handle] = p
	r.saves++
	return nil
}

func (r *fakeRemote) DeleteRecord(ctx context.Context, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errRemoteDown
	}
	handle, ok := r.cfg.Students[studentID]
	if !ok {
		return student.ErrNotFound
	}
	delete(r.records, handle)
	delete(r.cfg.Students, studentID)
	return nil
}

func (r *fakeRemote) ListAllRecords(ctx context.Context) (map[string]*student.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errRemoteDown
	}
	all := make(map[string]*student.Progress, len(r.records))
	for id, handle := range r.cfg.Students {
		if p, ok := r.records[handle]; ok {
			all[id] = p
		}
	}
	return all, nil
}

func (r *fakeRemote) setDown(down bool) {
	r.mu.Lock()
	r.down = down
	r.mu.Unlock()
}

func (r *fakeRemote) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func newTestStore(t *testing.T, remote student.Gateway) *Store {
	conf := testutil.TestConfig()
	conf.SyncDebounce = time.Hour // flush manually unless a test says otherwise
	return NewStore(remote, cache.NewMemoryCache(), testutil.NopLogger{T: t}, conf)
}

func Test_Store_SaveRecord_isLocalFirst(t *testing.T) {
	remote := newFakeRemote()
	st := newTestStore(t, remote)
	ctx := context.Background()

	p := testutil.CreateProgress(t, "amy", testutil.Weekday10AM)
	handle, err := st.CreateRecord(ctx, "amy", p)
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}

	remote.setDown(true)
	p.Points = 42
	if err := st.SaveRecord(ctx, handle, p); err != nil {
		t.Fatalf("SaveRecord() with remote down failed: %v", err)
	}

	// the pending write is what reads see, even with the remote down
	got, err := st.LoadRecord(ctx, handle)
	if err != nil {
		t.Fatalf("LoadRecord() failed: %v", err)
	}
	if got.Points != 42 {
		t.Errorf("points = %d, want the pending 42", got.Points)
	}

	// remote recovers: Flush pushes the write out
	remote.setDown(false)
	if err := st.Flush(ctx); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if remote.records[handle].Points != 42 {
		t.Errorf("remote points = %d after flush, want 42", remote.records[handle].Points)
	}
}

func Test_Store_Flush_keepsFailedWritesDirty(t *testing.T) {
	remote := newFakeRemote()
	st := newTestStore(t, remote)
	ctx := context.Background()

	p := testutil.CreateProgress(t, "amy", testutil.Weekday10AM)
	handle, _ := st.CreateRecord(ctx, "amy", p)

	remote.setDown(true)
	p.Points = 7
	_ = st.SaveRecord(ctx, handle, p)
	if err := st.Flush(ctx); err == nil {
		t.Fatal("Flush() with remote down should fail")
	}

	remote.setDown(false)
	if err := st.Flush(ctx); err != nil {
		t.Fatalf("Flush() after recovery failed: %v", err)
	}
	if remote.records[handle].Points != 7 {
		t.Errorf("remote points = %d, want 7", remote.records[handle].Points)
	}
}

func Test_Store_debounceCollapsesSaves(t *testing.T) {
	remote := newFakeRemote()
	conf := testutil.TestConfig()
	conf.SyncDebounce = 10 * time.Millisecond
	st := NewStore(remote, cache.NewMemoryCache(), testutil.NopLogger{T: t}, conf)
	ctx := context.Background()

	p := testutil.CreateProgress(t, "amy", testutil.Weekday10AM)
	handle, _ := st.CreateRecord(ctx, "amy", p)

	for i := 1; i <= 5; i++ {
		p.Points = i
		_ = st.SaveRecord(ctx, handle, p)
	}

	deadline := time.Now().Add(time.Second)
	for remote.saveCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := remote.saveCount(); n != 1 {
		t.Errorf("remote saves = %d, want the 5 writes collapsed into 1", n)
	}
	if remote.records[handle].Points != 5 {
		t.Errorf("remote points = %d, want the last write 5", remote.records[handle].Points)
	}
}

func Test_Store_LoadConfig_cacheFallback(t *testing.T) {
	remote := newFakeRemote()
	st := newTestStore(t, remote)
	ctx := context.Background()

	// a successful load primes the cache
	if _, err := st.LoadConfig(ctx); err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	remote.setDown(true)
	cfg, err := st.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("LoadConfig() with remote down failed: %v", err)
	}
	if cfg.ClassPin != "4242" {
		t.Errorf("classPin = %q from cache, want 4242", cfg.ClassPin)
	}
}

func Test_Store_LoadConfig_coldCache(t *testing.T) {
	remote := newFakeRemote()
	remote.setDown(true)
	st := newTestStore(t, remote)

	if _, err := st.LoadConfig(context.Background()); errors.Cause(err) != errRemoteDown {
		t.Errorf("LoadConfig() error = %v, want the remote failure surfaced", err)
	}
}

func Test_Store_LoadRecord_cacheFallback(t *testing.T) {
	remote := newFakeRemote()
	st := newTestStore(t, remote)
	ctx := context.Background()

	p := testutil.CreateProgress(t, "amy", testutil.Weekday10AM)
	p.Points = 30
	handle, _ := st.CreateRecord(ctx, "amy", p)
	if err := st.Flush(ctx); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	remote.setDown(true)
	got, err := st.LoadRecord(ctx, handle)
	if err != nil {
		t.Fatalf("LoadRecord() with remote down failed: %v", err)
	}
	if got.Points != 30 {
		t.Errorf("points = %d from cache, want 30", got.Points)
	}
}

func Test_Store_ListAllRecords_cacheFallback(t *testing.T) {
	remote := newFakeRemote()
	st := newTestStore(t, remote)
	ctx := context.Background()

	p := testutil.CreateProgress(t, "amy", testutil.Weekday10AM)
	if _, err := st.CreateRecord(ctx, "amy", p); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	if _, err := st.LoadConfig(ctx); err != nil { // prime the config cache
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	remote.setDown(true)
	all, err := st.ListAllRecords(ctx)
	if err != nil {
		t.Fatalf("ListAllRecords() with remote down failed: %v", err)
	}
	if len(all) != 1 || all["amy"] == nil {
		t.Errorf("records = %v, want amy from cache", all)
	}
}

func Test_Store_LoadRecord_notFoundEvictsCache(t *testing.T) {
	remote := newFakeRemote()
	st := newTestStore(t, remote)
	ctx := context.Background()

	p := testutil.CreateProgress(t, "amy", testutil.Weekday10AM)
	handle, _ := st.CreateRecord(ctx, "amy", p)
	if err := remote.DeleteRecord(ctx, "amy"); err != nil {
		t.Fatalf("DeleteRecord() failed: %v", err)
	}

	if _, err := st.LoadRecord(ctx, handle); errors.Cause(err) != student.ErrNotFound {
		t.Fatalf("LoadRecord() error = %v, want ErrNotFound", err)
	}

	// the stale cached copy must not resurrect the record
	remote.setDown(true)
	if _, err := st.LoadRecord(ctx, handle); errors.Cause(err) != errRemoteDown {
		t.Errorf("LoadRecord() error = %v, want the remote failure (no cached copy)", err)
	}
}
