package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var referenceDay = time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// makePosts returns n displayable library posts with ids prefix-0..prefix-n-1.
func makePosts(prefix string, n int) []Post {
	posts := make([]Post, n)
	for i := range posts {
		posts[i] = Post{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Title:     fmt.Sprintf("%s item %d", prefix, i),
			ImageURL:  fmt.Sprintf("https://images.example/%s/%d.jpg", prefix, i),
			Date:      "2024-03-07",
			MediaType: MediaImage,
			Source:    SourceLibrary,
		}
	}
	return posts
}

type fakeLibrary struct {
	mu      sync.Mutex
	calls   []SearchParams
	respond func(p SearchParams) ([]Post, error)
	posts   map[string]*Post

	lookupErrs  map[string]error
	lookupDelay time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeLibrary) Search(_ context.Context, p SearchParams) ([]Post, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(p)
}

func (f *fakeLibrary) Lookup(ctx context.Context, nasaID string) (*Post, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.lookupDelay > 0 {
		select {
		case <-time.After(f.lookupDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.lookupErrs[nasaID]; ok {
		return nil, err
	}
	if p, ok := f.posts[nasaID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrPostNotFound
}

func (f *fakeLibrary) callsFor(query string) []SearchParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SearchParams
	for _, c := range f.calls {
		if c.Query == query {
			out = append(out, c)
		}
	}
	return out
}

type fakePictureOfDay struct {
	post  *Post
	err   error
	dates []string
}

func (f *fakePictureOfDay) PictureOfDay(_ context.Context, date string) (*Post, error) {
	f.dates = append(f.dates, date)
	if f.err != nil {
		return nil, f.err
	}
	if f.post == nil {
		return nil, ErrPostNotFound
	}
	cp := *f.post
	if date != "" {
		cp.ID = pictureOfDayIDPrefix + date
		cp.Date = date
	}
	return &cp, nil
}

type fakeNearEarth struct {
	objects []NearEarthObject
	err     error
	dates   []string
}

func (f *fakeNearEarth) NearEarthObjects(_ context.Context, date string) ([]NearEarthObject, error) {
	f.dates = append(f.dates, date)
	return f.objects, f.err
}

type likeKey struct{ user, post string }

type fakeStore struct {
	mu        sync.Mutex
	counts    map[string]int
	likes     map[likeKey]bool
	likeOrder []likeKey
	profiles  map[string]Profile

	countErr    error
	countCalls  int
	countIDs    [][]string
	likedIDsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:   make(map[string]int),
		likes:    make(map[likeKey]bool),
		profiles: make(map[string]Profile),
	}
}

func (f *fakeStore) GetLikeCounts(_ context.Context, ids []string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	f.countIDs = append(f.countIDs, append([]string(nil), ids...))
	if f.countErr != nil {
		return nil, f.countErr
	}
	out := make(map[string]int)
	for _, id := range ids {
		if n, ok := f.counts[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (f *fakeStore) GetLikeCount(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[id], nil
}

func (f *fakeStore) UpsertLikeCount(_ context.Context, id string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[id] = n
	return nil
}

func (f *fakeStore) HasLiked(_ context.Context, user, post string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.likes[likeKey{user, post}], nil
}

func (f *fakeStore) AddLike(_ context.Context, user, post string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := likeKey{user, post}
	f.likes[k] = true
	f.likeOrder = append([]likeKey{k}, f.likeOrder...)
	return nil
}

func (f *fakeStore) RemoveLike(_ context.Context, user, post string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := likeKey{user, post}
	delete(f.likes, k)
	for i, o := range f.likeOrder {
		if o == k {
			f.likeOrder = append(f.likeOrder[:i], f.likeOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) LikedPostIDs(_ context.Context, user string, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likedIDsErr != nil {
		return nil, f.likedIDsErr
	}
	var out []string
	if ids == nil {
		for _, k := range f.likeOrder {
			if k.user == user {
				out = append(out, k.post)
			}
		}
		return out, nil
	}
	for _, id := range ids {
		if f.likes[likeKey{user, id}] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStore) GetProfile(_ context.Context, user string) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[user]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, p *Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.UserID] = *p
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []LikeEvent
}

func (n *recordingNotifier) PublishLike(e LikeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

type serviceFixture struct {
	service  *FeedService
	library  *fakeLibrary
	apod     *fakePictureOfDay
	neo      *fakeNearEarth
	store    *fakeStore
	notifier *recordingNotifier
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		library:  &fakeLibrary{posts: make(map[string]*Post)},
		apod:     &fakePictureOfDay{},
		neo:      &fakeNearEarth{},
		store:    newFakeStore(),
		notifier: &recordingNotifier{},
	}
	svc, err := NewFeedService(
		DefaultLanes(),
		Sources{Library: f.library, PictureOfDay: f.apod, NearEarth: f.neo},
		f.store,
		Options{
			Location:    time.UTC,
			CallTimeout: time.Second,
			Notifier:    f.notifier,
			Now:         func() time.Time { return referenceDay },
		},
		discardLogger(),
	)
	require.NoError(t, err)
	f.service = svc
	return f
}

var errUpstream = errors.New("boom")
