package favorites

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/atinyakov/nexus/internal/client/clienterr"
	"github.com/atinyakov/nexus/internal/client/session"
	"github.com/atinyakov/nexus/internal/client/storage"
	"github.com/atinyakov/nexus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote dispatches to per-test functions and counts calls.
type fakeRemote struct {
	calls atomic.Int32

	list func() ([]models.FavoriteRecord, error)
	add  func(ownerID, currencyID string) (models.FavoriteRecord, error)
	del  func(ownerID, favoriteID string) error
}

func (f *fakeRemote) ListFavorites(_ context.Context, token string) ([]models.FavoriteRecord, error) {
	f.calls.Add(1)
	return f.list()
}

func (f *fakeRemote) AddFavorite(_ context.Context, token, ownerID, currencyID string) (models.FavoriteRecord, error) {
	f.calls.Add(1)
	return f.add(ownerID, currencyID)
}

func (f *fakeRemote) DeleteFavorite(_ context.Context, token, ownerID, favoriteID string) error {
	f.calls.Add(1)
	return f.del(ownerID, favoriteID)
}

// hold parks a remote call until released.
type hold struct {
	started chan struct{}
	release chan struct{}
}

func newHold() *hold {
	return &hold{started: make(chan struct{}), release: make(chan struct{})}
}

func (h *hold) wait() {
	close(h.started)
	<-h.release
}

func loggedIn(t *testing.T) *session.Store {
	t.Helper()
	s := session.New(storage.NewMemory(), nil)
	s.Login(models.Session{Token: "tok", OwnerID: "u1"})
	return s
}

func fav(id, currency string) models.FavoriteRecord {
	return models.FavoriteRecord{ID: id, CurrencyID: currency, OwnerID: "u1"}
}

func TestUnauthenticated_NoNetworkNoMutation(t *testing.T) {
	remote := &fakeRemote{}
	s := New(session.New(storage.NewMemory(), nil), remote, nil)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, clienterr.ErrUnauthenticated)

	_, err = s.Add(context.Background(), "btc")
	assert.ErrorIs(t, err, clienterr.ErrUnauthenticated)

	err = s.Remove(context.Background(), "btc")
	assert.ErrorIs(t, err, clienterr.ErrUnauthenticated)

	assert.Zero(t, remote.calls.Load())
	assert.Empty(t, s.List())
}

func TestMutations_RequireOwnerID(t *testing.T) {
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) {
			return []models.FavoriteRecord{fav("f1", "btc")}, nil
		},
	}
	sessions := session.New(storage.NewMemory(), nil)
	sessions.Login(models.Session{Token: "tok"})
	s := New(sessions, remote, nil)
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), remote.calls.Load())

	_, err = s.Add(ctx, "eth")
	assert.ErrorIs(t, err, clienterr.ErrNoOwner)

	err = s.Remove(ctx, "btc")
	assert.ErrorIs(t, err, clienterr.ErrNoOwner)

	assert.Equal(t, int32(1), remote.calls.Load(), "no mutation reaches the service")
	assert.Equal(t, []models.FavoriteRecord{fav("f1", "btc")}, s.List())
}

func TestAddRemoveRoundTrip(t *testing.T) {
	var deleted []string
	remote := &fakeRemote{
		add: func(ownerID, currencyID string) (models.FavoriteRecord, error) {
			assert.Equal(t, "u1", ownerID)
			return fav("f-"+currencyID, currencyID), nil
		},
		del: func(ownerID, favoriteID string) error {
			assert.Equal(t, "u1", ownerID)
			deleted = append(deleted, favoriteID)
			return nil
		},
	}
	s := New(loggedIn(t), remote, nil)
	ctx := context.Background()

	rec, err := s.Add(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, "f-btc", rec.ID)
	assert.True(t, s.IsFavorite("btc"))

	require.NoError(t, s.Remove(ctx, "btc"))
	assert.False(t, s.IsFavorite("btc"))
	assert.Equal(t, []string{"f-btc"}, deleted)
}

func TestLoad_ReplacesMirror(t *testing.T) {
	result := []models.FavoriteRecord{fav("f1", "btc"), fav("f2", "eth")}
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) { return result, nil },
		add: func(_, currencyID string) (models.FavoriteRecord, error) {
			return fav("f3", currencyID), nil
		},
	}
	s := New(loggedIn(t), remote, nil)
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.NoError(t, err)
	_, err = s.Add(ctx, "doge")
	require.NoError(t, err)
	assert.Len(t, s.List(), 3)

	// authoritative: the locally added record is gone if the server says so
	_, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, result, s.List())
	assert.False(t, s.IsFavorite("doge"))
}

func TestFailures_LeaveMirrorUnchanged(t *testing.T) {
	boom := &clienterr.RemoteError{Op: "favorites", StatusCode: 500}
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) { return []models.FavoriteRecord{fav("f1", "btc")}, nil },
		add:  func(string, string) (models.FavoriteRecord, error) { return models.FavoriteRecord{}, boom },
		del:  func(string, string) error { return boom },
	}
	s := New(loggedIn(t), remote, nil)
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.NoError(t, err)

	_, err = s.Add(ctx, "eth")
	assert.ErrorIs(t, err, clienterr.ErrRemote)
	err = s.Remove(ctx, "btc")
	assert.ErrorIs(t, err, clienterr.ErrRemote)

	assert.Equal(t, []models.FavoriteRecord{fav("f1", "btc")}, s.List())

	remote.list = func() ([]models.FavoriteRecord, error) { return nil, boom }
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, clienterr.ErrRemote)
	assert.Equal(t, []models.FavoriteRecord{fav("f1", "btc")}, s.List())
}

func TestRemove_NotInMirror(t *testing.T) {
	remote := &fakeRemote{}
	s := New(loggedIn(t), remote, nil)

	err := s.Remove(context.Background(), "btc")
	assert.ErrorIs(t, err, clienterr.ErrNotFound)
	assert.Zero(t, remote.calls.Load())
}

func TestAdd_EmptyCurrency(t *testing.T) {
	remote := &fakeRemote{}
	s := New(loggedIn(t), remote, nil)

	_, err := s.Add(context.Background(), "")
	assert.ErrorIs(t, err, clienterr.ErrInvalidInput)
	assert.Zero(t, remote.calls.Load())
}

func TestOlderMutationCompletingLastIsDiscarded(t *testing.T) {
	h := newHold()
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) { return []models.FavoriteRecord{fav("f1", "btc")}, nil },
		del: func(string, string) error {
			h.wait()
			return nil
		},
		add: func(_, currencyID string) (models.FavoriteRecord, error) {
			return fav("f2", currencyID), nil
		},
	}
	s := New(loggedIn(t), remote, nil)
	ctx := context.Background()
	_, err := s.Load(ctx)
	require.NoError(t, err)

	done := make(chan error)
	go func() { done <- s.Remove(ctx, "btc") }()
	<-h.started

	_, err = s.Add(ctx, "btc")
	require.NoError(t, err)

	close(h.release)
	require.NoError(t, <-done)

	// the newer add was applied first; the older remove must not undo it
	assert.True(t, s.IsFavorite("btc"))
	assert.Equal(t, []models.FavoriteRecord{fav("f1", "btc"), fav("f2", "btc")}, s.List())
}

func TestMutationsOnDifferentCurrenciesAreIndependent(t *testing.T) {
	h := newHold()
	remote := &fakeRemote{
		add: func(_, currencyID string) (models.FavoriteRecord, error) {
			if currencyID == "btc" {
				h.wait()
			}
			return fav("f-"+currencyID, currencyID), nil
		},
	}
	s := New(loggedIn(t), remote, nil)
	ctx := context.Background()

	done := make(chan error)
	go func() {
		_, err := s.Add(ctx, "btc")
		done <- err
	}()
	<-h.started

	_, err := s.Add(ctx, "eth")
	require.NoError(t, err)
	close(h.release)
	require.NoError(t, <-done)

	assert.True(t, s.IsFavorite("btc"))
	assert.True(t, s.IsFavorite("eth"))
}

func TestOlderLoadCompletingLastIsDiscarded(t *testing.T) {
	h := newHold()
	var n atomic.Int32
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) {
			if n.Add(1) == 1 {
				h.wait()
				return []models.FavoriteRecord{fav("f1", "btc")}, nil
			}
			return []models.FavoriteRecord{fav("f2", "eth")}, nil
		},
	}
	s := New(loggedIn(t), remote, nil)
	ctx := context.Background()

	done := make(chan error)
	go func() {
		_, err := s.Load(ctx)
		done <- err
	}()
	<-h.started

	_, err := s.Load(ctx)
	require.NoError(t, err)
	close(h.release)
	require.NoError(t, <-done)

	assert.Equal(t, []models.FavoriteRecord{fav("f2", "eth")}, s.List())
}

func TestNewerMutationSurvivesOlderLoad(t *testing.T) {
	h := newHold()
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) {
			h.wait()
			return []models.FavoriteRecord{fav("f1", "btc")}, nil
		},
		add: func(_, currencyID string) (models.FavoriteRecord, error) {
			return fav("f2", currencyID), nil
		},
	}
	s := New(loggedIn(t), remote, nil)
	ctx := context.Background()

	done := make(chan error)
	go func() {
		_, err := s.Load(ctx)
		done <- err
	}()
	<-h.started

	_, err := s.Add(ctx, "eth")
	require.NoError(t, err)
	close(h.release)
	require.NoError(t, <-done)

	assert.Equal(t, []models.FavoriteRecord{fav("f1", "btc"), fav("f2", "eth")}, s.List())
}

func TestMutationOlderThanAppliedLoadIsDiscarded(t *testing.T) {
	h := newHold()
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) { return []models.FavoriteRecord{fav("f9", "ltc")}, nil },
		add: func(_, currencyID string) (models.FavoriteRecord, error) {
			h.wait()
			return fav("f2", currencyID), nil
		},
	}
	s := New(loggedIn(t), remote, nil)
	ctx := context.Background()

	done := make(chan error)
	go func() {
		_, err := s.Add(ctx, "eth")
		done <- err
	}()
	<-h.started

	_, err := s.Load(ctx)
	require.NoError(t, err)
	close(h.release)
	require.NoError(t, <-done)

	assert.Equal(t, []models.FavoriteRecord{fav("f9", "ltc")}, s.List())
}

func TestClose_DiscardsLateCompletion(t *testing.T) {
	h := newHold()
	remote := &fakeRemote{
		add: func(_, currencyID string) (models.FavoriteRecord, error) {
			h.wait()
			return fav("f1", currencyID), nil
		},
	}
	store := loggedIn(t)
	s := New(store, remote, nil)

	var (
		wg  sync.WaitGroup
		rec models.FavoriteRecord
		err error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec, err = s.Add(context.Background(), "btc")
	}()
	<-h.started

	s.Close()
	s.Close()
	close(h.release)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, "f1", rec.ID)
	assert.False(t, s.IsFavorite("btc"))

	// detached: session changes no longer reach it
	store.Logout()
	assert.Empty(t, s.List())
}

func TestLogout_ClearsMirrorAndFencesInFlight(t *testing.T) {
	h := newHold()
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) { return []models.FavoriteRecord{fav("f1", "btc")}, nil },
		add: func(_, currencyID string) (models.FavoriteRecord, error) {
			h.wait()
			return fav("f2", currencyID), nil
		},
	}
	store := loggedIn(t)
	s := New(store, remote, nil)
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, s.IsFavorite("btc"))

	done := make(chan error)
	go func() {
		_, err := s.Add(ctx, "eth")
		done <- err
	}()
	<-h.started

	store.Logout()
	assert.Empty(t, s.List())

	close(h.release)
	require.NoError(t, <-done)
	assert.False(t, s.IsFavorite("eth"))
}

func TestList_ReturnsCopy(t *testing.T) {
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) { return []models.FavoriteRecord{fav("f1", "btc")}, nil },
	}
	s := New(loggedIn(t), remote, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	list := s.List()
	list[0].CurrencyID = "changed"
	assert.True(t, s.IsFavorite("btc"))
}

func TestLoad_WrapsRemoteError(t *testing.T) {
	cause := errors.New("connection reset")
	remote := &fakeRemote{
		list: func() ([]models.FavoriteRecord, error) {
			return nil, &clienterr.RemoteError{Op: "favorites", Err: cause}
		},
	}
	s := New(loggedIn(t), remote, nil)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not connect to the server", clienterr.Message(err, "failed"))
}
