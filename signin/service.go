package signin

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/pvpauth/auth/provider"
	"github.com/kbukum/pvpauth/auth/session"
	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/identity"
	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/observability"
	"github.com/kbukum/pvpauth/validation"
)

// Outcome is the result kind of a sign-in or sign-up.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNotRegistered Outcome = "not-registered"
)

// Result is returned by SignIn and SignUp. Token and User are set on
// success, UsernameSuggestion when not registered.
type Result struct {
	Outcome            Outcome        `json:"result"`
	Token              string         `json:"token,omitempty"`
	User               *identity.User `json:"user,omitempty"`
	UsernameSuggestion string         `json:"usernameSuggestion,omitempty"`
}

// Resolver verifies provider credentials.
type Resolver interface {
	Resolve(ctx context.Context, data provider.OAuthData) (*provider.VerifiedClaims, error)
}

// Linker persists provider identities.
type Linker interface {
	FindLinkedUser(ctx context.Context, p provider.Provider, externalID string) (*identity.User, error)
	LinkNewUser(ctx context.Context, claims *provider.VerifiedClaims, userName string) (*identity.User, error)
	RefreshLinkedUser(ctx context.Context, userID uuid.UUID, claims *provider.VerifiedClaims) (*identity.User, error)
	SuggestUsername(ctx context.Context, claims *provider.VerifiedClaims) (string, error)
}

// Issuer mints session tokens.
type Issuer interface {
	Issue(userID uuid.UUID) (string, error)
}

var (
	_ Resolver = (*provider.Resolver)(nil)
	_ Linker   = (*identity.Linker)(nil)
	_ Issuer   = (*session.Issuer)(nil)
)

// Service runs the sign-in and sign-up flows.
type Service struct {
	resolver Resolver
	linker   Linker
	issuer   Issuer
	log      *logger.Logger
	metrics  *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log.WithComponent("signin")
		}
	}
}

// WithMetrics records every flow by provider and outcome.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates the orchestrator. All three collaborators are required.
func NewService(resolver Resolver, linker Linker, issuer Issuer, opts ...Option) (*Service, error) {
	if resolver == nil || linker == nil || issuer == nil {
		return nil, fmt.Errorf("signin: resolver, linker and issuer are required")
	}
	s := &Service{
		resolver: resolver,
		linker:   linker,
		issuer:   issuer,
		log:      logger.WithComponent("signin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignIn verifies data and, when the identity is linked, refreshes the user
// from the claims and issues a session. An unlinked identity yields
// OutcomeNotRegistered with a username suggestion and creates nothing.
func (s *Service) SignIn(ctx context.Context, data provider.OAuthData) (res *Result, err error) {
	ctx, done := s.begin(ctx, "signin", data)
	defer func() { done(res, err) }()

	claims, err := s.resolver.Resolve(ctx, data)
	if err != nil {
		return nil, s.fail(ctx, "signin", requested(data), err)
	}

	user, err := s.linker.FindLinkedUser(ctx, claims.Provider, claims.ExternalID)
	if err != nil {
		return nil, s.fail(ctx, "signin", claims, err)
	}
	if user == nil {
		return s.notRegistered(ctx, "signin", claims)
	}

	user, err = s.linker.RefreshLinkedUser(ctx, user.ID, claims)
	if err != nil {
		return nil, s.fail(ctx, "signin", claims, err)
	}
	return s.success(ctx, "signin", claims, user)
}

// SignUp verifies data and creates a user named username linked to the
// identity. A taken username yields OutcomeNotRegistered with a suggestion
// derived from the claims; no rows are written in that case.
func (s *Service) SignUp(ctx context.Context, username string, data provider.OAuthData) (res *Result, err error) {
	ctx, done := s.begin(ctx, "signup", data)
	defer func() { done(res, err) }()

	if verr := validation.New().Username("username", username).Err(); verr != nil {
		return nil, verr
	}

	claims, err := s.resolver.Resolve(ctx, data)
	if err != nil {
		return nil, s.fail(ctx, "signup", requested(data), err)
	}

	user, err := s.linker.LinkNewUser(ctx, claims, username)
	switch {
	case err == nil:
	case stderrors.Is(err, identity.ErrUsernameConflict):
		s.log.WithContext(ctx).Info("Username taken", logger.Fields(
			logger.FieldProvider, string(claims.Provider),
			"user_name", username,
		))
		return s.notRegistered(ctx, "signup", claims)
	default:
		return nil, s.fail(ctx, "signup", claims, err)
	}
	return s.success(ctx, "signup", claims, user)
}

func (s *Service) success(ctx context.Context, op string, claims *provider.VerifiedClaims, user *identity.User) (*Result, error) {
	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, s.fail(ctx, op, claims, err)
	}
	s.log.WithContext(ctx).Info("Session issued", logger.Fields(
		logger.FieldOperation, op,
		logger.FieldProvider, string(claims.Provider),
		logger.FieldUserID, user.ID.String(),
	))
	return &Result{Outcome: OutcomeSuccess, Token: token, User: user}, nil
}

func (s *Service) notRegistered(ctx context.Context, op string, claims *provider.VerifiedClaims) (*Result, error) {
	suggestion, err := s.linker.SuggestUsername(ctx, claims)
	if err != nil {
		return nil, s.fail(ctx, op, claims, err)
	}
	return &Result{Outcome: OutcomeNotRegistered, UsernameSuggestion: suggestion}, nil
}

// requested names the provider of unverified data for logs and errors.
func requested(data provider.OAuthData) *provider.VerifiedClaims {
	if data == nil {
		return nil
	}
	return &provider.VerifiedClaims{Provider: data.Provider()}
}

// begin opens the operation span. The returned func closes it and records
// the outcome.
func (s *Service) begin(ctx context.Context, op string, data provider.OAuthData) (context.Context, func(*Result, error)) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "signin."+op)
	if data != nil {
		span.SetAttributes(attribute.String(observability.AttrProvider, string(data.Provider())))
	}

	return ctx, func(res *Result, err error) {
		outcome := "error"
		if res != nil {
			outcome = string(res.Outcome)
		}
		span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
		observability.SetSpanError(ctx, err)
		span.End()

		var providerName string
		if data != nil {
			providerName = string(data.Provider())
		}
		s.metrics.SignIn(ctx, op, providerName, outcome, time.Since(start))
		if appErr, ok := errors.AsAppError(err); ok {
			s.metrics.Error(ctx, string(appErr.Code), "signin")
		}
	}
}

// fail converts err into the *errors.AppError returned to callers and logs
// the detail that the response hides.
func (s *Service) fail(ctx context.Context, op string, claims *provider.VerifiedClaims, err error) error {
	appErr := toAppError(claims, err)

	fields := logger.ErrorFields(op, err)
	if claims != nil {
		fields[logger.FieldProvider] = string(claims.Provider)
		fields[logger.FieldExternalID] = claims.ExternalID
	}
	log := s.log.WithContext(ctx)
	if appErr.HTTPStatus >= 500 {
		log.Error("Sign-in flow failed", fields)
	} else {
		log.Info("Sign-in flow rejected", fields)
	}
	return appErr
}

func toAppError(claims *provider.VerifiedClaims, err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case stderrors.Is(err, provider.ErrAuthentication):
		return errors.AuthenticationFailed().WithCause(err)
	case stderrors.Is(err, provider.ErrCommunication):
		service := "identity provider"
		if claims != nil {
			service = string(claims.Provider)
		}
		return errors.ExternalServiceError(service, err)
	case stderrors.Is(err, provider.ErrInvalidData), stderrors.Is(err, identity.ErrUnknownProvider):
		return errors.InvalidInput("oauthData", "the oauth data cannot be used for sign-in").WithCause(err)
	case stderrors.Is(err, identity.ErrIdentityLinked):
		return errors.AlreadyExists("account").WithCause(err)
	case stderrors.Is(err, identity.ErrUserNotFound):
		return errors.NotFound("user", "").WithCause(err)
	default:
		return database.FromDatabase(err, "user")
	}
}
