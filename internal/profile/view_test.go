package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/profile-view/internal/fetch"
	"github.com/isdelr/profile-view/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type result[T any] struct {
	val T
	err error
}

// gatedSource blocks every call until the test releases a result for that id.
type gatedSource struct {
	mu        sync.Mutex
	userCalls map[string]int
	postCalls map[string]int
	userGates map[string]chan result[models.User]
	postGates map[string]chan result[[]models.Post]
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		userCalls: map[string]int{},
		postCalls: map[string]int{},
		userGates: map[string]chan result[models.User]{},
		postGates: map[string]chan result[[]models.Post]{},
	}
}

func (g *gatedSource) users(id string) chan result[models.User] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.userGates[id] == nil {
		g.userGates[id] = make(chan result[models.User])
	}
	return g.userGates[id]
}

func (g *gatedSource) posts(id string) chan result[[]models.Post] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.postGates[id] == nil {
		g.postGates[id] = make(chan result[[]models.Post])
	}
	return g.postGates[id]
}

func (g *gatedSource) GetUser(ctx context.Context, id string) (models.User, error) {
	g.mu.Lock()
	g.userCalls[id]++
	g.mu.Unlock()
	select {
	case r := <-g.users(id):
		return r.val, r.err
	case <-ctx.Done():
		return models.User{}, ctx.Err()
	}
}

func (g *gatedSource) GetPostsByUser(ctx context.Context, id string) ([]models.Post, error) {
	g.mu.Lock()
	g.postCalls[id]++
	g.mu.Unlock()
	select {
	case r := <-g.posts(id):
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedSource) calls(id string) (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.userCalls[id], g.postCalls[id]
}

func waitFor(t *testing.T, v *View, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		snap, changed := v.Watch()
		if cond(snap) {
			return snap
		}
		select {
		case <-changed:
		case <-ctx.Done():
			t.Fatalf("condition not reached, last snapshot: %+v", snap)
		}
	}
}

var leanne = models.User{ID: 1, Name: "Leanne Graham", Username: "Bret"}

func TestMount_StartsPendingAndIssuesOneRequestEach(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.Mount(context.Background(), "1")
	v.Mount(context.Background(), "1") // same id, no new fetches

	snap := v.Snapshot()
	assert.True(t, snap.Mounted)
	assert.Equal(t, "1", snap.ID)
	assert.True(t, snap.User.Pending())
	assert.True(t, snap.Posts.Pending())

	src.users("1") <- result[models.User]{val: leanne}
	src.posts("1") <- result[[]models.Post]{val: []models.Post{}}
	snap = waitFor(t, v, Snapshot.Settled)

	users, posts := src.calls("1")
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, posts)
	assert.True(t, snap.User.Ok())
	assert.Equal(t, "Bret", snap.User.Data.Username)
	assert.True(t, snap.Posts.Ok())
	assert.Empty(t, snap.Posts.Data)
}

func TestMount_PartialReadiness(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.Mount(context.Background(), "1")
	src.users("1") <- result[models.User]{val: leanne}

	snap := waitFor(t, v, func(s Snapshot) bool { return !s.User.Pending() })
	assert.True(t, snap.User.Ok())
	assert.True(t, snap.Posts.Pending(), "posts must not wait on the user fetch")
}

func TestMount_FailuresAreIndependent(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.Mount(context.Background(), "1")
	src.posts("1") <- result[[]models.Post]{err: errors.New("Failed to fetch posts")}
	src.users("1") <- result[models.User]{val: leanne}

	snap := waitFor(t, v, Snapshot.Settled)
	assert.True(t, snap.User.Ok())
	assert.True(t, snap.Posts.Failed())
	assert.Equal(t, "Failed to fetch posts", snap.Posts.Err)
}

func TestMount_UserFailureMessage(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.Mount(context.Background(), "404")
	src.users("404") <- result[models.User]{err: errors.New("Failed to fetch user")}
	src.posts("404") <- result[[]models.Post]{val: []models.Post{}}

	snap := waitFor(t, v, Snapshot.Settled)
	assert.Equal(t, "Failed to fetch user", snap.User.Err)
}

type panickingSource struct{}

func (panickingSource) GetUser(context.Context, string) (models.User, error) { panic("nope") }
func (panickingSource) GetPostsByUser(context.Context, string) ([]models.Post, error) {
	return []models.Post{}, nil
}

func TestMount_PlainPanicBecomesUnknownError(t *testing.T) {
	v := NewView(panickingSource{})
	defer v.Unmount()

	v.Mount(context.Background(), "1")
	snap := waitFor(t, v, Snapshot.Settled)
	assert.Equal(t, fetch.UnknownError, snap.User.Err)
	assert.True(t, snap.Posts.Ok())
}

func TestRemount_DiscardsStaleResults(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.Mount(context.Background(), "1")
	v.Mount(context.Background(), "2")

	// The first mount's loads were cancelled; only id 2 is live.
	src.users("2") <- result[models.User]{val: models.User{ID: 2, Username: "Antonette"}}
	src.posts("2") <- result[[]models.Post]{val: []models.Post{{ID: 11, UserID: 2}}}

	snap := waitFor(t, v, Snapshot.Settled)
	assert.Equal(t, "2", snap.ID)
	assert.Equal(t, "Antonette", snap.User.Data.Username)
	require.Len(t, snap.Posts.Data, 1)
	assert.Equal(t, 11, snap.Posts.Data[0].ID)
}

func TestApply_IgnoresOldGeneration(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.Mount(context.Background(), "1")
	before := v.Snapshot()
	v.mu.Lock()
	gen := v.gen
	v.mu.Unlock()
	v.apply(gen-1, func() { t.Fatal("stale result applied") })
	v.apply(gen+1, func() { t.Fatal("future result applied") })
	assert.Equal(t, before.Version, v.Snapshot().Version)
}

func TestUnmount_CancelsInFlight(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)

	v.Mount(context.Background(), "1")
	v.Unmount()

	snap := v.Snapshot()
	assert.False(t, snap.Mounted)
	assert.True(t, snap.User.Pending(), "cancelled loads must not be applied")
	assert.True(t, snap.Posts.Pending())

	v.Unmount() // idempotent
}

func TestMountFrom_ResolverError(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.MountFrom(context.Background(), func(context.Context) (Params, error) {
		return Params{}, errors.New("navigation failed")
	})

	snap := v.Snapshot()
	assert.True(t, snap.Settled())
	assert.Equal(t, "navigation failed", snap.User.Err)
	assert.Equal(t, "navigation failed", snap.Posts.Err)
	users, posts := src.calls("")
	assert.Zero(t, users)
	assert.Zero(t, posts)
}

func TestMountFrom_EmptyID(t *testing.T) {
	v := NewView(newGatedSource())
	defer v.Unmount()

	v.MountFrom(context.Background(), func(context.Context) (Params, error) { return Params{}, nil })
	assert.Equal(t, ErrMissingID.Error(), v.Snapshot().User.Err)
}

func TestMountFrom_Resolved(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.MountFrom(context.Background(), func(context.Context) (Params, error) { return Params{ID: "3"}, nil })
	assert.Equal(t, "3", v.Snapshot().ID)
	src.users("3") <- result[models.User]{val: models.User{ID: 3}}
	src.posts("3") <- result[[]models.Post]{val: nil}
	waitFor(t, v, Snapshot.Settled)
}

func TestWait(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.Mount(context.Background(), "1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := v.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		src.users("1") <- result[models.User]{val: leanne}
		src.posts("1") <- result[[]models.Post]{val: []models.Post{{ID: 1}}}
	}()
	snap, err := v.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Settled())
}

func TestSnapshot_StableWithoutChanges(t *testing.T) {
	src := newGatedSource()
	v := NewView(src)
	defer v.Unmount()

	v.Mount(context.Background(), "1")
	assert.Equal(t, v.Snapshot(), v.Snapshot())
}
