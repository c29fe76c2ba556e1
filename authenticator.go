package authentic

import (
	"context"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
)

// Response messages mirror the reference API.
const (
	MsgUserCreated           = "User created. Check email for confirmation link."
	MsgUserConfirmed         = "User confirmed."
	MsgLoginSuccessful       = "Login successful."
	MsgChangeRequestReceived = "Change password request received. Check email for confirmation link."
	MsgPasswordChanged       = "Password changed."
)

// SignupRequest carries the signup payload. Fields holds caller
// supplied passthrough values forwarded to the mailer; password is
// always stripped.
type SignupRequest struct {
	Email      string
	Password   string
	ConfirmURL string
	Fields     map[string]string
}

type ConfirmRequest struct {
	Email        string
	ConfirmToken string
}

type LoginRequest struct {
	Email    string
	Password string
}

// ChangeRequest starts a password reset for Email. The address does
// not need to belong to an existing account.
type ChangeRequest struct {
	Email     string
	ChangeURL string
	Fields    map[string]string
}

type ChangePasswordRequest struct {
	Email       string
	Password    string
	ChangeToken string
}

type SignupResponse struct {
	Email       string `json:"email"`
	CreatedDate string `json:"createdDate"`
}

type TokenResponse struct {
	AuthToken string `json:"authToken"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Auther composes the credential store, token service, and mailer
// into the five auth flows. Each flow is a fixed sequential pipeline
// that short-circuits on the first failure.
type Auther struct {
	creds  CredentialStore
	tokens TokenIssuer
	mailer Mailer
	logger Logger
}

var _ Authenticator = (*Auther)(nil)

type AutherOption func(*Auther)

// WithMailer overrides the mail collaborator. Defaults to LogMailer.
func WithMailer(mailer Mailer) AutherOption {
	return func(a *Auther) {
		if mailer != nil {
			a.mailer = mailer
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger Logger) AutherOption {
	return func(a *Auther) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator returns a new Auther.
func NewAuthenticator(creds CredentialStore, tokens TokenIssuer, opts ...AutherOption) *Auther {
	a := &Auther{
		creds:  creds,
		tokens: tokens,
		logger: defLogger{},
	}
	a.mailer = NewLogMailer(a.logger)

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Signup registers the user and delivers the confirmation email. A
// mail delivery failure aborts the operation and surfaces to the
// caller; the record itself has already been created at that point.
func (a *Auther) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	user, err := a.creds.CreateUser(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	confirmURL := req.ConfirmURL
	if confirmURL != "" {
		confirmURL, err = appendQuery(confirmURL, map[string]string{
			"confirmToken": user.ConfirmToken,
			"email":        user.Email,
		})
		if err != nil {
			return nil, err
		}
	}

	msg := passthrough(req.Fields)
	msg["type"] = MessageTypeSignup
	msg["email"] = user.Email
	msg["confirmToken"] = user.ConfirmToken
	if confirmURL != "" {
		msg["confirmUrl"] = confirmURL
	}

	if err := a.deliver(ctx, msg); err != nil {
		return nil, err
	}

	return &SignupResponse{
		Email:       user.Email,
		CreatedDate: user.CreatedDate(),
	}, nil
}

// Confirm consumes the confirm token and mints a bearer token.
func (a *Auther) Confirm(ctx context.Context, req ConfirmRequest) (*TokenResponse, error) {
	user, err := a.creds.ConfirmUser(ctx, req.Email, req.ConfirmToken)
	if err != nil {
		return nil, err
	}

	return a.mint(user.Email)
}

// Login verifies the password and mints a bearer token. Unconfirmed
// accounts are rejected.
func (a *Auther) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := a.creds.CheckPassword(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if !user.EmailConfirmed {
		return nil, ErrUserNotConfirmed
	}

	return a.mint(user.Email)
}

// ChangePasswordRequest issues a change token and delivers the reset
// email. The response is the same whether or not the address was
// registered, so callers cannot enumerate accounts.
func (a *Auther) ChangePasswordRequest(ctx context.Context, req ChangeRequest) (*MessageResponse, error) {
	user, err := a.creds.CreateChangeToken(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	changeURL := req.ChangeURL
	if changeURL != "" {
		changeURL, err = appendQuery(changeURL, map[string]string{
			"changeToken": user.ChangeToken,
			"email":       user.Email,
		})
		if err != nil {
			return nil, err
		}
	}

	msg := passthrough(req.Fields)
	msg["type"] = MessageTypeChangePasswordRequest
	msg["email"] = user.Email
	msg["changeToken"] = user.ChangeToken
	if changeURL != "" {
		msg["changeUrl"] = changeURL
	}

	if err := a.deliver(ctx, msg); err != nil {
		return nil, err
	}

	return &MessageResponse{Message: MsgChangeRequestReceived}, nil
}

// ChangePassword consumes the change token, re-verifies the new
// password, and mints a bearer token.
func (a *Auther) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*TokenResponse, error) {
	user, err := a.creds.ChangePassword(ctx, req.Email, req.Password, req.ChangeToken)
	if err != nil {
		return nil, err
	}

	if _, err := a.creds.CheckPassword(ctx, user.Email, req.Password); err != nil {
		return nil, err
	}

	return a.mint(user.Email)
}

func (a *Auther) mint(email string) (*TokenResponse, error) {
	token, err := a.tokens.Issue(email)
	if err != nil {
		a.logger.Error("failed to issue bearer token", "error", err)
		return nil, err
	}

	return &TokenResponse{AuthToken: token}, nil
}

func (a *Auther) deliver(ctx context.Context, msg Message) error {
	if err := a.mailer.Send(ctx, msg); err != nil {
		a.logger.Error("email delivery failed", "type", msg["type"], "error", err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "email delivery failed")
	}
	return nil
}

// passthrough copies caller supplied fields, dropping the password.
func passthrough(fields map[string]string) Message {
	msg := make(Message, len(fields)+4)
	for k, v := range fields {
		if k == "password" {
			continue
		}
		msg[k] = v
	}
	return msg
}

func appendQuery(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid callback URL").
			WithCode(goerrors.CodeBadRequest)
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
