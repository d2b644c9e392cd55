// Package favorites keeps a local mirror of the user's remote favorites.
//
// Mutations are confirmed by the service before the mirror changes. Every
// request carries a token; a completion is applied only if no newer request
// touching the same currency has been applied before it. A Load touches every
// currency.
package favorites

import (
	"context"
	"fmt"
	"sync"

	"github.com/atinyakov/nexus/internal/client/clienterr"
	"github.com/atinyakov/nexus/internal/client/session"
	"github.com/atinyakov/nexus/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Remote is the favorites part of the service API.
type Remote interface {
	ListFavorites(ctx context.Context, token string) ([]models.FavoriteRecord, error)
	AddFavorite(ctx context.Context, token, ownerID, currencyID string) (models.FavoriteRecord, error)
	DeleteFavorite(ctx context.Context, token, ownerID, favoriteID string) error
}

// SessionSource supplies the credential and session change notifications.
type SessionSource interface {
	Current() models.Session
	Subscribe(fn func(session.State)) (unsubscribe func())
}

// token identifies one request.
type token struct {
	id    uuid.UUID
	seq   uint64
	epoch uint64
}

type opKind int

const (
	opAdd opKind = iota
	opRemove
)

// outcome is an applied mutation, kept while older loads are in flight so it
// can be replayed over their results.
type outcome struct {
	seq    uint64
	kind   opKind
	record models.FavoriteRecord
}

// Synchronizer owns the mirror. Safe for concurrent use.
type Synchronizer struct {
	sessions SessionSource
	remote   Remote
	log      *zap.Logger
	stop     func()

	mu       sync.Mutex
	mirror   []models.FavoriteRecord
	seq      uint64
	epoch    uint64
	closed   bool
	loadSeq  uint64            // seq of the last applied load
	touched  map[string]uint64 // seq of the last applied mutation per currency
	inflight map[uint64]struct{}
	journal  []outcome
}

// New returns a synchronizer subscribed to sessions. Any session change
// clears the mirror and fences the requests in flight.
func New(sessions SessionSource, remote Remote, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Synchronizer{
		sessions: sessions,
		remote:   remote,
		log:      log,
		touched:  make(map[string]uint64),
		inflight: make(map[uint64]struct{}),
	}
	s.stop = sessions.Subscribe(func(session.State) { s.reset() })
	return s
}

// Load replaces the mirror with the remote set.
func (s *Synchronizer) Load(ctx context.Context) ([]models.FavoriteRecord, error) {
	sess := s.sessions.Current()
	if !sess.Authenticated() {
		return nil, clienterr.ErrUnauthenticated
	}

	tok := s.issue(true)
	records, err := s.remote.ListFavorites(ctx, sess.Token)
	if err != nil {
		s.finishLoad(tok, nil, false)
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	s.finishLoad(tok, records, true)
	return records, nil
}

// IsFavorite reports whether currencyID is in the mirror.
func (s *Synchronizer) IsFavorite(currencyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOfCurrency(s.mirror, currencyID) >= 0
}

// List returns a copy of the mirror in server order.
func (s *Synchronizer) List() []models.FavoriteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FavoriteRecord, len(s.mirror))
	copy(out, s.mirror)
	return out
}

// Add creates a favorite remotely and, once confirmed, appends it.
func (s *Synchronizer) Add(ctx context.Context, currencyID string) (models.FavoriteRecord, error) {
	sess := s.sessions.Current()
	if !sess.Authenticated() {
		return models.FavoriteRecord{}, clienterr.ErrUnauthenticated
	}
	if currencyID == "" {
		return models.FavoriteRecord{}, clienterr.Invalid("currency", "must not be empty")
	}
	if sess.OwnerID == "" {
		return models.FavoriteRecord{}, fmt.Errorf("add favorite %s: %w", currencyID, clienterr.ErrNoOwner)
	}

	tok := s.issue(false)
	rec, err := s.remote.AddFavorite(ctx, sess.Token, sess.OwnerID, currencyID)
	if err != nil {
		return models.FavoriteRecord{}, fmt.Errorf("add favorite %s: %w", currencyID, err)
	}
	if rec.CurrencyID == "" {
		rec.CurrencyID = currencyID
	}
	if rec.OwnerID == "" {
		rec.OwnerID = sess.OwnerID
	}
	s.finishMutation(tok, currencyID, outcome{seq: tok.seq, kind: opAdd, record: rec})
	return rec, nil
}

// Remove deletes the mirrored favorite for currencyID remotely and, once
// confirmed, drops it from the mirror.
func (s *Synchronizer) Remove(ctx context.Context, currencyID string) error {
	sess := s.sessions.Current()
	if !sess.Authenticated() {
		return clienterr.ErrUnauthenticated
	}
	if sess.OwnerID == "" {
		return fmt.Errorf("remove favorite %s: %w", currencyID, clienterr.ErrNoOwner)
	}

	s.mu.Lock()
	i := indexOfCurrency(s.mirror, currencyID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("remove favorite %s: %w", currencyID, clienterr.ErrNotFound)
	}
	rec := s.mirror[i]
	s.mu.Unlock()

	tok := s.issue(false)
	if err := s.remote.DeleteFavorite(ctx, sess.Token, sess.OwnerID, rec.ID); err != nil {
		return fmt.Errorf("remove favorite %s: %w", currencyID, err)
	}
	s.finishMutation(tok, currencyID, outcome{seq: tok.seq, kind: opRemove, record: rec})
	return nil
}

// Close detaches the synchronizer from the session. Requests completing
// afterwards still return their results but leave the mirror alone.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	s.mu.Unlock()
	s.stop()
}

func (s *Synchronizer) issue(load bool) token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	tok := token{id: uuid.New(), seq: s.seq, epoch: s.epoch}
	if load {
		s.inflight[tok.seq] = struct{}{}
	}
	return tok
}

// current reports whether tok still belongs to the live epoch. Callers hold mu.
func (s *Synchronizer) current(tok token) bool {
	return !s.closed && tok.epoch == s.epoch
}

func (s *Synchronizer) finishLoad(tok token, records []models.FavoriteRecord, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(tok) {
		s.log.Debug("discarding favorites load", zap.Stringer("request_id", tok.id))
		return
	}
	delete(s.inflight, tok.seq)
	defer s.prune()

	if !ok {
		return
	}
	if tok.seq < s.loadSeq {
		s.log.Debug("discarding superseded favorites load", zap.Stringer("request_id", tok.id))
		return
	}

	mirror := make([]models.FavoriteRecord, len(records))
	copy(mirror, records)
	for _, o := range s.journal {
		if o.seq > tok.seq {
			mirror = apply(mirror, o)
		}
	}
	s.mirror = mirror
	s.loadSeq = tok.seq
}

func (s *Synchronizer) finishMutation(tok token, currencyID string, o outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(tok) {
		s.log.Debug("discarding favorites mutation", zap.Stringer("request_id", tok.id))
		return
	}
	if tok.seq < s.loadSeq || tok.seq < s.touched[currencyID] {
		s.log.Debug("discarding superseded favorites mutation",
			zap.Stringer("request_id", tok.id),
			zap.String("currency", currencyID),
		)
		return
	}

	s.mirror = apply(s.mirror, o)
	s.touched[currencyID] = tok.seq
	if len(s.inflight) > 0 {
		s.journal = append(s.journal, o)
	}
}

// prune drops journal entries no in-flight load can still need. Callers hold mu.
func (s *Synchronizer) prune() {
	if len(s.inflight) == 0 {
		s.journal = nil
		return
	}
	oldest := ^uint64(0)
	for seq := range s.inflight {
		if seq < oldest {
			oldest = seq
		}
	}
	kept := s.journal[:0]
	for _, o := range s.journal {
		if o.seq > oldest {
			kept = append(kept, o)
		}
	}
	s.journal = kept
}

func (s *Synchronizer) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.mirror = nil
	s.loadSeq = 0
	s.touched = make(map[string]uint64)
	s.inflight = make(map[uint64]struct{})
	s.journal = nil
}

func apply(mirror []models.FavoriteRecord, o outcome) []models.FavoriteRecord {
	switch o.kind {
	case opAdd:
		if o.record.ID != "" && indexOfID(mirror, o.record.ID) >= 0 {
			return mirror
		}
		return append(mirror, o.record)
	case opRemove:
		if i := indexOfID(mirror, o.record.ID); i >= 0 {
			return append(mirror[:i:i], mirror[i+1:]...)
		}
	}
	return mirror
}

func indexOfCurrency(records []models.FavoriteRecord, currencyID string) int {
	for i, r := range records {
		if r.CurrencyID == currencyID {
			return i
		}
	}
	return -1
}

func indexOfID(records []models.FavoriteRecord, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
