package auth

import (
	"context"
)

// Flow identifies one of the three public auth flows.
type Flow string

const (
	FlowLogin   Flow = "login"
	FlowRefresh Flow = "refresh"
	FlowLogout  Flow = "logout"
)

// Outcome describes a finished flow.  Subject is empty for a failed login.
type Outcome struct {
	Flow    Flow
	Subject string
	Err     error
}

// Recorder observes flow outcomes (metrics, audit).  It must not block
// and cannot change the result of the flow.
type Recorder interface {
	Record(ctx context.Context, o Outcome)
}

// Service composes verifier, issuer and refresh store into login,
// refresh and logout.  It keeps no state of its own.
type Service struct {
	password  Verifier
	refresh   Verifier
	issuer    *Issuer
	store     *RefreshStore
	recorders []Recorder
}

// NewService wires the orchestrator.
func NewService(authn *Authenticator, issuer *Issuer, store *RefreshStore, recorders ...Recorder) *Service {
	return &Service{
		password:  authn.Password(),
		refresh:   authn.Refresh(),
		issuer:    issuer,
		store:     store,
		recorders: recorders,
	}
}

// Login verifies email and password, issues a pair and stores the hash of
// the new refresh token, replacing any previous one.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	sess, err := s.password.Verify(ctx, Credential{ID: email, Secret: password})
	if err != nil {
		s.record(ctx, FlowLogin, "", err)
		return TokenPair{}, err
	}
	pair, err := s.rotate(ctx, sess)
	s.record(ctx, FlowLogin, sess.Subject, err)
	return pair, err
}

// Refresh checks token against the slot of subject and rotates the pair.
// The old refresh token stops matching as soon as the slot is written.
func (s *Service) Refresh(ctx context.Context, subject, token string) (TokenPair, error) {
	sess, err := s.refresh.Verify(ctx, Credential{ID: subject, Secret: token})
	if err != nil {
		s.record(ctx, FlowRefresh, subject, err)
		return TokenPair{}, err
	}
	pair, err := s.rotate(ctx, sess)
	s.record(ctx, FlowRefresh, subject, err)
	return pair, err
}

// Logout clears the refresh slot of subject.  Logging out twice is fine.
func (s *Service) Logout(ctx context.Context, subject string) error {
	err := s.store.SetRefreshToken(ctx, subject, "")
	s.record(ctx, FlowLogout, subject, err)
	return err
}

func (s *Service) rotate(ctx context.Context, sess Session) (TokenPair, error) {
	pair, err := s.issuer.Issue(sess.Subject, sess.Role)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.SetRefreshToken(ctx, sess.Subject, pair.RefreshToken); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

func (s *Service) record(ctx context.Context, flow Flow, subject string, err error) {
	for _, r := range s.recorders {
		r.Record(ctx, Outcome{Flow: flow, Subject: subject, Err: err})
	}
}
