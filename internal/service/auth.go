// Package service provides the authentication exchange, delegating the
// remote calls to an AuthRemote and the resulting credential to a
// SessionStore.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/atinyakov/nexus/internal/client/api"
	"github.com/atinyakov/nexus/internal/client/clienterr"
	"github.com/atinyakov/nexus/internal/models"
	"go.uber.org/zap"
)

var errMissingSession = errors.New("response carries no token")

// AuthRemote defines the remote operations required by the authentication
// service.
type AuthRemote interface {
	// Login exchanges credentials for a token and the id of its owner.
	Login(ctx context.Context, creds models.Credentials) (api.LoginResponse, error)
	// Register creates an account. It does not log the user in.
	Register(ctx context.Context, reg models.Registration) error
}

// SessionStore receives the credential produced by a login.
type SessionStore interface {
	Login(sess models.Session)
	Logout()
}

// Service implements authentication operations by delegating to an
// AuthRemote.
type Service struct {
	// remote performs the network exchanges.
	remote AuthRemote
	// store owns the resulting session.
	store SessionStore
	log   *zap.Logger
}

// NewAuthService constructs a new Service using the provided remote and
// session store.
func NewAuthService(remote AuthRemote, store SessionStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{remote: remote, store: store, log: log}
}

// Login validates creds locally, performs the login exchange and stores the
// resulting session. Empty fields fail with an InvalidInputError before any
// network call. A response without a token is a DecodeError; the owner id is
// kept when the service sends one.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" {
		return models.Session{}, clienterr.Invalid("email", "must not be empty")
	}
	if creds.Password == "" {
		return models.Session{}, clienterr.Invalid("password", "must not be empty")
	}

	resp, err := s.remote.Login(ctx, creds)
	if err != nil {
		return models.Session{}, err
	}
	if resp.Token == "" {
		return models.Session{}, &clienterr.DecodeError{Op: "users/login", Err: errMissingSession}
	}

	sess := models.Session{Token: resp.Token, OwnerID: resp.OwnerID}
	s.store.Login(sess)
	if sess.OwnerID == "" {
		s.log.Warn("login response carries no user id")
	}
	s.log.Info("logged in", zap.String("user_id", sess.OwnerID))
	return sess, nil
}

// Register validates reg locally and creates the account.
func (s *Service) Register(ctx context.Context, reg models.Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	switch {
	case reg.Name == "":
		return clienterr.Invalid("name", "must not be empty")
	case reg.Email == "":
		return clienterr.Invalid("email", "must not be empty")
	case reg.Password == "":
		return clienterr.Invalid("password", "must not be empty")
	case reg.Password != reg.ConfirmPassword:
		return clienterr.Invalid("confirmPassword", "passwords do not match")
	}
	return s.remote.Register(ctx, reg)
}

// Logout clears the session.
func (s *Service) Logout() {
	s.store.Logout()
}
