package auth

import (
	"context"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
)

// State is the position of one login attempt.
type State string

const (
	StateUnauthenticated      State = "Unauthenticated"
	StateCredentialsSubmitted State = "CredentialsSubmitted"
	StateMfaPending           State = "MfaPending"
	StateAuthenticated        State = "Authenticated"
	StateFailed               State = "Failed"
)

var allowedTransitions = map[State][]State{
	StateUnauthenticated:      {StateCredentialsSubmitted},
	StateCredentialsSubmitted: {StateAuthenticated, StateMfaPending, StateFailed},
	StateMfaPending:           {StateAuthenticated, StateFailed},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MfaBackend is the backend specific half of the login flow.
//
// PasswordGrant reports a required second factor by returning a bundle that
// carries only MfaToken.
type MfaBackend interface {
	PasswordGrant(ctx context.Context, creds oauthmodel.Credentials) (oauthmodel.AccessTokenBundle, error)
	InitiateChallenge(ctx context.Context, mfaToken string) (challengeID string, err error)
	EnrollChannel(ctx context.Context, mfaToken, phone string) (challengeID string, err error)
	ExchangeChallenge(ctx context.Context, challenge oauthmodel.MfaChallenge) (oauthmodel.AccessTokenBundle, error)
}

// Outcome is where a call left the login attempt.
type Outcome struct {
	State  State
	Bundle oauthmodel.AccessTokenBundle
}

// MfaOrchestrator drives a login attempt through its states. It keeps no
// state between calls; a verify call starts from MfaPending using the
// challenge the client sends back.
type MfaOrchestrator struct {
	backend MfaBackend
}

func NewMfaOrchestrator(backend MfaBackend) *MfaOrchestrator {
	return &MfaOrchestrator{backend: backend}
}

// SignIn submits credentials and, when the backend asks for a second
// factor, issues a challenge to the existing channel.
func (o *MfaOrchestrator) SignIn(ctx context.Context, creds oauthmodel.Credentials) (Outcome, error) {
	return o.submit(ctx, creds, func(ctx context.Context, mfaToken string) (string, error) {
		return o.backend.InitiateChallenge(ctx, mfaToken)
	})
}

// SignInEnrolling is SignIn for a freshly created account: a required second
// factor enrolls phone as the channel instead of reusing one.
func (o *MfaOrchestrator) SignInEnrolling(ctx context.Context, creds oauthmodel.Credentials, phone string) (Outcome, error) {
	return o.submit(ctx, creds, func(ctx context.Context, mfaToken string) (string, error) {
		return o.backend.EnrollChannel(ctx, mfaToken, phone)
	})
}

func (o *MfaOrchestrator) submit(ctx context.Context, creds oauthmodel.Credentials, challenge func(ctx context.Context, mfaToken string) (string, error)) (Outcome, error) {
	a := attempt{state: StateUnauthenticated}
	if err := a.move(StateCredentialsSubmitted); err != nil {
		return a.outcome(), err
	}

	bundle, err := o.backend.PasswordGrant(ctx, creds)
	if err != nil {
		return a.fail(err)
	}

	if bundle.Authenticated() {
		bundle.NeedsMFA = false
		bundle.MfaToken = ""
		return a.succeed(bundle)
	}
	if bundle.MfaToken == "" {
		return a.fail(apperrors.Internalf("[MfaOrchestrator.submit] backend returned neither tokens nor an mfa token"))
	}

	if err := a.move(StateMfaPending); err != nil {
		return a.outcome(), err
	}
	challengeID, err := challenge(ctx, bundle.MfaToken)
	if err != nil {
		return a.fail(err)
	}
	pending := oauthmodel.AccessTokenBundle{
		NeedsMFA:    true,
		MfaToken:    bundle.MfaToken,
		ChallengeID: challengeID,
	}
	if err := pending.Validate(); err != nil {
		return a.fail(apperrors.Internalf("[MfaOrchestrator.submit] %v", err))
	}
	a.bundle = pending
	logger.From(ctx).Debug().Msg("mfa challenge issued")
	return a.outcome(), nil
}

// Verify exchanges the one time code. A rejected code fails with
// InvalidMfaCode; the same challenge can be verified again.
func (o *MfaOrchestrator) Verify(ctx context.Context, challenge oauthmodel.MfaChallenge) (Outcome, error) {
	a := attempt{state: StateMfaPending}
	if err := challenge.Validate(); err != nil {
		return a.fail(err)
	}

	bundle, err := o.backend.ExchangeChallenge(ctx, challenge)
	if err != nil {
		return a.fail(asMfaCodeError(err))
	}
	bundle.NeedsMFA = false
	bundle.MfaToken = ""
	return a.succeed(bundle)
}

// asMfaCodeError reports grant rejections during verification as a bad code.
// Transport and rate limit failures keep their kind.
func asMfaCodeError(err error) error {
	env := apperrors.From(err)
	if apperrors.Is(env, apperrors.ErrInvalidGrant) || apperrors.Is(env, apperrors.ErrBadCredentials) || apperrors.Is(env, apperrors.ErrInvalidClient) {
		return apperrors.ErrInvalidMfaCode.WithDetail(env.Detail).WithCause(env.Err)
	}
	return err
}

type attempt struct {
	state  State
	bundle oauthmodel.AccessTokenBundle
}

func (a *attempt) move(to State) error {
	if !CanTransition(a.state, to) {
		return apperrors.Internalf("[attempt.move] illegal login transition %s -> %s", a.state, to)
	}
	a.state = to
	return nil
}

func (a *attempt) outcome() Outcome {
	return Outcome{State: a.state, Bundle: a.bundle}
}

func (a *attempt) fail(err error) (Outcome, error) {
	if moveErr := a.move(StateFailed); moveErr != nil {
		return a.outcome(), moveErr
	}
	return a.outcome(), err
}

func (a *attempt) succeed(bundle oauthmodel.AccessTokenBundle) (Outcome, error) {
	if err := a.move(StateAuthenticated); err != nil {
		return a.outcome(), err
	}
	if err := bundle.Validate(); err != nil {
		a.state = StateFailed
		return a.outcome(), apperrors.Internalf("[attempt.succeed] %v", err)
	}
	a.bundle = bundle
	return a.outcome(), nil
}
