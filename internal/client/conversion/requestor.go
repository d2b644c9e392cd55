// Package conversion validates and submits currency conversion requests.
package conversion

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/atinyakov/nexus/internal/client/clienterr"
	"github.com/atinyakov/nexus/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// State of the requestor.
type State int32

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Remote is the conversion part of the service API.
type Remote interface {
	Convert(ctx context.Context, token string, req models.ConversionRequest) (models.ConversionResult, error)
	History(ctx context.Context, token string) ([]models.ConversionRecord, error)
}

// SessionSource supplies the optional credential.
type SessionSource interface {
	Current() models.Session
}

// Catalog answers whether a currency id is known.
type Catalog interface {
	Contains(ctx context.Context, id string) (bool, error)
}

// Requestor allows one conversion in flight at a time.
type Requestor struct {
	remote   Remote
	sessions SessionSource
	catalog  Catalog
	log      *zap.Logger

	state atomic.Int32
}

// New returns an idle requestor. catalog may be nil, in which case currency
// ids are only checked for emptiness.
func New(remote Remote, sessions SessionSource, catalog Catalog, log *zap.Logger) *Requestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Requestor{remote: remote, sessions: sessions, catalog: catalog, log: log}
}

// State returns the current state.
func (r *Requestor) State() State {
	return State(r.state.Load())
}

// Convert validates currencyID and rawAmount and prices the amount. Invalid
// input never reaches the network and is reported even while another call
// is submitting. A well-formed call made while a previous one is still
// submitting fails with clienterr.ErrBusy.
func (r *Requestor) Convert(ctx context.Context, currencyID, rawAmount string) (models.ConversionResult, error) {
	req, err := parseRequest(currencyID, rawAmount)
	if err != nil {
		return models.ConversionResult{}, err
	}

	if !r.state.CompareAndSwap(int32(Idle), int32(Submitting)) {
		return models.ConversionResult{}, clienterr.ErrBusy
	}
	defer r.state.Store(int32(Idle))

	if err := r.checkKnown(ctx, req.CurrencyID); err != nil {
		return models.ConversionResult{}, err
	}

	res, err := r.remote.Convert(ctx, r.sessions.Current().Token, req)
	if err != nil {
		return models.ConversionResult{}, fmt.Errorf("convert %s: %w", req.CurrencyID, err)
	}
	if res.CurrencyID == "" {
		res.CurrencyID = req.CurrencyID
	}
	return res, nil
}

// History returns the past conversions of the logged in user.
func (r *Requestor) History(ctx context.Context) ([]models.ConversionRecord, error) {
	sess := r.sessions.Current()
	if !sess.Authenticated() {
		return nil, clienterr.ErrUnauthenticated
	}
	records, err := r.remote.History(ctx, sess.Token)
	if err != nil {
		return nil, fmt.Errorf("conversion history: %w", err)
	}
	return records, nil
}

func parseRequest(currencyID, rawAmount string) (models.ConversionRequest, error) {
	currencyID = strings.TrimSpace(currencyID)
	if currencyID == "" {
		return models.ConversionRequest{}, clienterr.Invalid("currency", "must not be empty")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil {
		return models.ConversionRequest{}, clienterr.Invalid("amount", "must be a number")
	}
	if !amount.IsPositive() {
		return models.ConversionRequest{}, clienterr.Invalid("amount", "must be greater than zero")
	}
	return models.ConversionRequest{CurrencyID: currencyID, Amount: amount}, nil
}

// checkKnown rejects ids missing from the catalog. An unreadable catalog
// skips the check.
func (r *Requestor) checkKnown(ctx context.Context, currencyID string) error {
	if r.catalog == nil {
		return nil
	}
	known, err := r.catalog.Contains(ctx, currencyID)
	switch {
	case err != nil:
		r.log.Warn("catalog unavailable, skipping currency check",
			zap.String("currency", currencyID),
			zap.Error(err),
		)
	case !known:
		return clienterr.Invalid("currency", fmt.Sprintf("unknown currency %q", currencyID))
	}
	return nil
}
