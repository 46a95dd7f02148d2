package profile

import (
	"context"
	"errors"
	"sync"

	"github.com/isdelr/profile-view/internal/fetch"
	"github.com/isdelr/profile-view/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrMissingID is reported when navigation yields no identifier.
var ErrMissingID = errors.New("Missing user id")

// Source is the remote API the view loads from.
type Source interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	GetPostsByUser(ctx context.Context, id string) ([]models.Post, error)
}

// Params is what navigation hands to the view.
type Params struct {
	ID string
}

// Resolver yields navigation params, possibly after blocking.
type Resolver func(ctx context.Context) (Params, error)

// Snapshot is an immutable copy of the view state at one version.
type Snapshot struct {
	ID      string
	Version uint64
	Mounted bool
	User    fetch.State[models.User]
	Posts   fetch.State[[]models.Post]
}

// Settled reports whether neither resource is still pending.
func (s Snapshot) Settled() bool {
	return !s.User.Pending() && !s.Posts.Pending()
}

// View owns the user and posts state for one mounted profile page.
type View struct {
	src Source

	mu      sync.Mutex
	id      string
	gen     uint64 // bumped on every mount and unmount; stale loads compare against it
	version uint64
	mounted bool
	cancel  context.CancelFunc
	user    fetch.State[models.User]
	posts   fetch.State[[]models.Post]
	changed chan struct{}

	wg sync.WaitGroup
}

// NewView creates an unmounted view backed by src.
func NewView(src Source) *View {
	return &View{src: src, changed: make(chan struct{})}
}

// MountFrom waits for the resolver and mounts with the resolved id. A failed
// or empty resolution fails both resources without issuing any request.
func (v *View) MountFrom(ctx context.Context, resolve Resolver) {
	p, err := resolve(ctx)
	if err == nil && p.ID == "" {
		err = ErrMissingID
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve profile id")
		v.fail(p.ID, fetch.Message(err))
		return
	}
	v.Mount(ctx, p.ID)
}

// Mount starts loading the user and posts for id, both at once. Mounting the
// id that is already mounted is a no-op, so each resource is requested once
// per mount. Mounting a different id abandons the loads of the previous one.
// Loads are not bound to ctx cancellation; they run until they settle or the
// view is unmounted.
func (v *View) Mount(ctx context.Context, id string) {
	if id == "" {
		v.fail(id, ErrMissingID.Error())
		return
	}

	v.mu.Lock()
	if v.mounted && v.id == id {
		v.mu.Unlock()
		return
	}
	if v.cancel != nil {
		v.cancel()
	}
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v.gen++
	gen := v.gen
	v.id = id
	v.mounted = true
	v.cancel = cancel
	v.user = fetch.State[models.User]{}
	v.posts = fetch.State[[]models.Post]{}
	v.notifyLocked()
	v.mu.Unlock()

	log.Debug().Str("user_id", id).Uint64("generation", gen).Msg("Mounting profile view")

	v.wg.Add(2)
	go v.loadUser(loadCtx, gen, id)
	go v.loadPosts(loadCtx, gen, id)
}

func (v *View) loadUser(ctx context.Context, gen uint64, id string) {
	defer v.wg.Done()
	fetch.Run(ctx, func(ctx context.Context) (models.User, error) {
		return v.src.GetUser(ctx, id)
	}, func(s fetch.State[models.User], err error) {
		if err != nil {
			log.Warn().Err(err).Str("user_id", id).Msg("Failed to load user")
		}
		v.apply(gen, func() { v.user = s })
	})
}

func (v *View) loadPosts(ctx context.Context, gen uint64, id string) {
	defer v.wg.Done()
	fetch.Run(ctx, func(ctx context.Context) ([]models.Post, error) {
		return v.src.GetPostsByUser(ctx, id)
	}, func(s fetch.State[[]models.Post], err error) {
		if err != nil {
			log.Warn().Err(err).Str("user_id", id).Msg("Failed to load posts")
		}
		v.apply(gen, func() { v.posts = s })
	})
}

// apply runs set only if gen is still the live mount.
func (v *View) apply(gen uint64, set func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || !v.mounted {
		log.Debug().Str("user_id", v.id).Uint64("generation", gen).Msg("Discarding stale fetch result")
		return
	}
	set()
	v.notifyLocked()
}

func (v *View) fail(id, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.gen++
	v.id = id
	v.mounted = true
	v.user = fetch.FailedWith[models.User](msg)
	v.posts = fetch.FailedWith[[]models.Post](msg)
	v.notifyLocked()
}

// Unmount cancels in-flight loads and waits for them to return. Results that
// arrive afterwards are discarded.
func (v *View) Unmount() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.gen++
	v.mounted = false
	id := v.id
	v.notifyLocked()
	v.mu.Unlock()

	v.wg.Wait()
	log.Debug().Str("user_id", id).Msg("Profile view unmounted")
}

func (v *View) notifyLocked() {
	v.version++
	close(v.changed)
	v.changed = make(chan struct{})
}

// Snapshot returns the current state.
func (v *View) Snapshot() Snapshot {
	snap, _ := v.Watch()
	return snap
}

// Watch returns the current state and a channel closed on the next change.
func (v *View) Watch() (Snapshot, <-chan struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		ID:      v.id,
		Version: v.version,
		Mounted: v.mounted,
		User:    v.user,
		Posts:   v.posts,
	}, v.changed
}

// Wait blocks until both resources have settled, the view is unmounted or
// ctx is done, and returns the last snapshot seen.
func (v *View) Wait(ctx context.Context) (Snapshot, error) {
	for {
		snap, changed := v.Watch()
		if snap.Settled() || !snap.Mounted {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}
