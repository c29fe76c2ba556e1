package authentic

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

const defaultPhoneRegion = "US"

type HTTPControllerRoutes struct {
	Signup                string
	Confirm               string
	Login                 string
	ChangePasswordRequest string
	ChangePassword        string
	PublicKey             string
}

type HTTPController struct {
	Debug       bool
	Logger      Logger
	Auther      Authenticator
	Tokens      TokenIssuer
	Routes      *HTTPControllerRoutes
	Prefix      string
	PhoneRegion string
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func WithControllerAuther(auther Authenticator) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Auther = auther
		return c
	}
}

func WithControllerTokens(tokens TokenIssuer) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithRoutePrefix mounts all endpoints under prefix, e.g. "/auth".
func WithRoutePrefix(prefix string) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Prefix = prefix
		return c
	}
}

func WithControllerDebug(debug bool) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Debug = debug
		return c
	}
}

// WithPhoneRegion sets the default region used to parse phone numbers
// that carry no country prefix. Defaults to US.
func WithPhoneRegion(region string) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.PhoneRegion = region
		return c
	}
}

func NewHTTPController(opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger:      defLogger{},
		PhoneRegion: defaultPhoneRegion,
		Routes: &HTTPControllerRoutes{
			Signup:                "/signup",
			Confirm:               "/confirm",
			Login:                 "/login",
			ChangePasswordRequest: "/change-password-request",
			ChangePassword:        "/change-password",
			PublicKey:             "/public-key",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...HTTPControllerOption) *HTTPController {
	controller := NewHTTPController(opts...)

	app.Post(controller.route(controller.Routes.Signup), controller.Signup).
		SetName("auth.signup")
	app.Post(controller.route(controller.Routes.Confirm), controller.Confirm).
		SetName("auth.confirm")
	app.Post(controller.route(controller.Routes.Login), controller.Login).
		SetName("auth.login")
	app.Post(controller.route(controller.Routes.ChangePasswordRequest), controller.ChangePasswordRequest).
		SetName("auth.pwd-change-request")
	app.Post(controller.route(controller.Routes.ChangePassword), controller.ChangePassword).
		SetName("auth.pwd-change")
	app.Get(controller.route(controller.Routes.PublicKey), controller.PublicKey).
		SetName("auth.public-key")

	return controller
}

func (c *HTTPController) route(path string) string {
	return c.Prefix + path
}

// SignupPayload is the signup body. Unknown body fields ride along to
// the mailer, minus the password.
type SignupPayload struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	ConfirmURL string `json:"confirmUrl"`
	Phone      string `json:"phone"`
}

// Validate will run validation rules
func (p SignupPayload) Validate() error {
	return p.validateWithRegion(defaultPhoneRegion)
}

// validateWithRegion runs the rules with the phone field parsed
// against the given region instead of the package default.
func (p SignupPayload) validateWithRegion(region string) error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
		validation.Field(&p.ConfirmURL, validation.Required),
		validation.Field(&p.Phone, validation.By(phoneRule(region))),
	)
}

func (c *HTTPController) Signup(ctx router.Context) error {
	fields, err := decodeFields(ctx.Body())
	if err != nil {
		return c.fail(ctx, badPayload(err))
	}

	payload := SignupPayload{
		Email:      fields["email"],
		Password:   fields["password"],
		ConfirmURL: fields["confirmUrl"],
		Phone:      fields["phone"],
	}

	if err := payload.validateWithRegion(c.PhoneRegion); err != nil {
		return c.invalid(ctx, err)
	}

	if c.Debug {
		fmt.Println("======= AUTH SIGNUP =======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	c.normalizePhone(fields)

	res, err := c.Auther.Signup(ctx.Context(), SignupRequest{
		Email:      payload.Email,
		Password:   payload.Password,
		ConfirmURL: payload.ConfirmURL,
		Fields:     fields,
	})
	if err != nil {
		return c.fail(ctx, err)
	}

	return c.respond(ctx, fiber.StatusCreated, MsgUserCreated, res)
}

// ConfirmPayload is the email confirmation body.
type ConfirmPayload struct {
	Email        string `json:"email"`
	ConfirmToken string `json:"confirmToken"`
}

// Validate will run validation rules
func (p ConfirmPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.ConfirmToken, validation.Required),
	)
}

func (c *HTTPController) Confirm(ctx router.Context) error {
	payload := new(ConfirmPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.fail(ctx, badPayload(err))
	}

	if err := payload.Validate(); err != nil {
		return c.invalid(ctx, err)
	}

	res, err := c.Auther.Confirm(ctx.Context(), ConfirmRequest{
		Email:        payload.Email,
		ConfirmToken: payload.ConfirmToken,
	})
	if err != nil {
		return c.fail(ctx, err)
	}

	return c.respond(ctx, fiber.StatusAccepted, MsgUserConfirmed, res)
}

// LoginPayload is the login body.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

func (c *HTTPController) Login(ctx router.Context) error {
	payload := new(LoginPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.fail(ctx, badPayload(err))
	}

	if err := payload.Validate(); err != nil {
		return c.invalid(ctx, err)
	}

	if c.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	res, err := c.Auther.Login(ctx.Context(), LoginRequest{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return c.fail(ctx, err)
	}

	return c.respond(ctx, fiber.StatusAccepted, MsgLoginSuccessful, res)
}

// ChangeRequestPayload starts the password reset flow.
type ChangeRequestPayload struct {
	Email     string `json:"email"`
	ChangeURL string `json:"changeUrl"`
}

// Validate will run validation rules
func (p ChangeRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.ChangeURL, validation.Required),
	)
}

func (c *HTTPController) ChangePasswordRequest(ctx router.Context) error {
	fields, err := decodeFields(ctx.Body())
	if err != nil {
		return c.fail(ctx, badPayload(err))
	}

	payload := ChangeRequestPayload{
		Email:     fields["email"],
		ChangeURL: fields["changeUrl"],
	}

	if err := payload.Validate(); err != nil {
		return c.invalid(ctx, err)
	}

	res, err := c.Auther.ChangePasswordRequest(ctx.Context(), ChangeRequest{
		Email:     payload.Email,
		ChangeURL: payload.ChangeURL,
		Fields:    fields,
	})
	if err != nil {
		return c.fail(ctx, err)
	}

	return c.respond(ctx, fiber.StatusOK, res.Message, nil)
}

// ChangePasswordPayload completes the password reset flow.
type ChangePasswordPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	ChangeToken string `json:"changeToken"`
}

// Validate will run validation rules
func (p ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
		validation.Field(&p.ChangeToken, validation.Required),
	)
}

func (c *HTTPController) ChangePassword(ctx router.Context) error {
	payload := new(ChangePasswordPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.fail(ctx, badPayload(err))
	}

	if err := payload.Validate(); err != nil {
		return c.invalid(ctx, err)
	}

	res, err := c.Auther.ChangePassword(ctx.Context(), ChangePasswordRequest{
		Email:       payload.Email,
		Password:    payload.Password,
		ChangeToken: payload.ChangeToken,
	})
	if err != nil {
		return c.fail(ctx, err)
	}

	return c.respond(ctx, fiber.StatusOK, MsgPasswordChanged, res)
}

// PublicKey serves the PEM encoded verification key so other services
// can validate bearer tokens locally.
func (c *HTTPController) PublicKey(ctx router.Context) error {
	if c.Tokens == nil {
		return c.fail(ctx, goerrors.New("public key not available", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal))
	}

	return c.respond(ctx, fiber.StatusOK, "", map[string]string{
		"publicKey": string(c.Tokens.PublicKeyPEM()),
	})
}

func (c *HTTPController) respond(ctx router.Context, status int, message string, data any) error {
	return ctx.JSON(status, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (c *HTTPController) fail(ctx router.Context, err error) error {
	status := StatusFromError(err)
	message := err.Error()

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		message = richErr.Message
	}

	c.Logger.Error("auth request failed", "status", status, "error", err)

	return ctx.JSON(status, APIResponse{
		Success: false,
		Error:   message,
	})
}

func (c *HTTPController) invalid(ctx router.Context, err error) error {
	return ctx.JSON(fiber.StatusBadRequest, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

func badPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithCode(goerrors.CodeBadRequest)
}

// normalizePhone rewrites an optional phone field to E164 so the value
// the mailer sees is canonical. Validation already ran at this point.
func (c *HTTPController) normalizePhone(fields map[string]string) {
	phone, ok := fields["phone"]
	if !ok || phone == "" {
		return
	}

	num, err := phonenumbers.Parse(phone, c.PhoneRegion)
	if err != nil {
		return
	}

	fields["phone"] = phonenumbers.Format(num, phonenumbers.E164)
}

func phoneRule(region string) validation.RuleFunc {
	return func(value any) error {
		phone, _ := value.(string)
		if phone == "" {
			return nil
		}

		num, err := phonenumbers.Parse(phone, region)
		if err != nil {
			return fmt.Errorf("must be a valid phone number")
		}

		if !phonenumbers.IsValidNumber(num) {
			return fmt.Errorf("must be a valid phone number")
		}

		return nil
	}
}

// decodeFields flattens a JSON object body into string fields. Scalar
// values are stringified, nested objects and arrays are dropped.
func decodeFields(body []byte) (map[string]string, error) {
	fields := map[string]string{}
	if len(body) == 0 {
		return fields, nil
	}

	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case float64, bool:
			fields[k] = fmt.Sprintf("%v", val)
		}
	}

	return fields, nil
}
