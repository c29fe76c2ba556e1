package authentic_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goliatone/go-authentic"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type controllerFixture struct {
	controller *authentic.HTTPController
	auther     *authentic.Auther
	mailer     *captureMailer
	tokens     *authentic.TokenService
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	mailer := &captureMailer{}
	creds := authentic.NewCredentials(authentic.NewMemoryStore())
	tokens := newTokenService(t)
	auther := authentic.NewAuthenticator(creds, tokens, authentic.WithMailer(mailer))

	controller := authentic.NewHTTPController(
		authentic.WithControllerAuther(auther),
		authentic.WithControllerTokens(tokens),
	)

	return &controllerFixture{
		controller: controller,
		auther:     auther,
		mailer:     mailer,
		tokens:     tokens,
	}
}

func jsonContext(t *testing.T, body string) (*router.MockContext, *int, *authentic.APIResponse) {
	t.Helper()

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Body").Return([]byte(body))
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		require.NoError(t, json.Unmarshal([]byte(body), args.Get(0)))
	}).Return(nil)

	code := new(int)
	res := new(authentic.APIResponse)
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		*code = args.Int(0)
		*res = args.Get(1).(authentic.APIResponse)
	}).Return(nil)

	return ctx, code, res
}

func TestControllerSignup(t *testing.T) {
	fix := newControllerFixture(t)

	ctx, code, res := jsonContext(t, `{
		"email": "user@example.com",
		"password": "password1",
		"confirmUrl": "https://app.example.com/confirm",
		"first_name": "Ada"
	}`)

	require.NoError(t, fix.controller.Signup(ctx))

	assert.Equal(t, 201, *code)
	assert.True(t, res.Success)
	assert.Equal(t, authentic.MsgUserCreated, res.Message)
	assert.Empty(t, res.Error)

	data, ok := res.Data.(*authentic.SignupResponse)
	require.True(t, ok)
	assert.Equal(t, "user@example.com", data.Email)

	// the passthrough field reached the mailer
	assert.Equal(t, "Ada", fix.mailer.last(t)["first_name"])
}

func TestControllerSignupMissingConfirmURL(t *testing.T) {
	fix := newControllerFixture(t)

	ctx, code, res := jsonContext(t, `{
		"email": "user@example.com",
		"password": "password1"
	}`)

	require.NoError(t, fix.controller.Signup(ctx))

	assert.Equal(t, 400, *code)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, fix.mailer.messages)
}

func TestControllerSignupInvalidPhone(t *testing.T) {
	fix := newControllerFixture(t)

	ctx, code, res := jsonContext(t, `{
		"email": "user@example.com",
		"password": "password1",
		"confirmUrl": "https://app.example.com/confirm",
		"phone": "not-a-phone"
	}`)

	require.NoError(t, fix.controller.Signup(ctx))

	assert.Equal(t, 400, *code)
	assert.False(t, res.Success)
}

func TestControllerSignupNormalizesPhone(t *testing.T) {
	fix := newControllerFixture(t)

	ctx, code, _ := jsonContext(t, `{
		"email": "user@example.com",
		"password": "password1",
		"confirmUrl": "https://app.example.com/confirm",
		"phone": "(415) 555-2671"
	}`)

	require.NoError(t, fix.controller.Signup(ctx))
	require.Equal(t, 201, *code)

	assert.Equal(t, "+14155552671", fix.mailer.last(t)["phone"])
}

func TestControllerSignupPhoneRegion(t *testing.T) {
	fix := newControllerFixture(t)
	fix.controller = authentic.NewHTTPController(
		authentic.WithControllerAuther(fix.auther),
		authentic.WithControllerTokens(fix.tokens),
		authentic.WithPhoneRegion("GB"),
	)

	// a valid London number that US parsing would reject
	ctx, code, _ := jsonContext(t, `{
		"email": "user@example.com",
		"password": "password1",
		"confirmUrl": "https://app.example.com/confirm",
		"phone": "020 7946 0958"
	}`)

	require.NoError(t, fix.controller.Signup(ctx))
	require.Equal(t, 201, *code)

	assert.Equal(t, "+442079460958", fix.mailer.last(t)["phone"])
}

func TestControllerSignupDuplicateEmail(t *testing.T) {
	fix := newControllerFixture(t)

	body := `{
		"email": "user@example.com",
		"password": "password1",
		"confirmUrl": "https://app.example.com/confirm"
	}`

	ctx, code, _ := jsonContext(t, body)
	require.NoError(t, fix.controller.Signup(ctx))
	require.Equal(t, 201, *code)

	ctx, code, res := jsonContext(t, body)
	require.NoError(t, fix.controller.Signup(ctx))

	assert.Equal(t, 400, *code)
	assert.False(t, res.Success)
	assert.Equal(t, "user exists", res.Error)
}

func TestControllerSignupMalformedBody(t *testing.T) {
	fix := newControllerFixture(t)

	ctx, code, res := jsonContext(t, `{"email": `)

	require.NoError(t, fix.controller.Signup(ctx))

	assert.Equal(t, 400, *code)
	assert.False(t, res.Success)
}

func TestControllerConfirmAndLogin(t *testing.T) {
	fix := newControllerFixture(t)

	_, err := fix.auther.Signup(context.Background(), authentic.SignupRequest{
		Email:      "user@example.com",
		Password:   "password1",
		ConfirmURL: "https://app.example.com/confirm",
	})
	require.NoError(t, err)

	confirmToken := fix.mailer.last(t)["confirmToken"]

	ctx, code, res := jsonContext(t, `{
		"email": "user@example.com",
		"confirmToken": "`+confirmToken+`"
	}`)

	require.NoError(t, fix.controller.Confirm(ctx))
	assert.Equal(t, 202, *code)
	assert.True(t, res.Success)
	assert.Equal(t, authentic.MsgUserConfirmed, res.Message)

	token, ok := res.Data.(*authentic.TokenResponse)
	require.True(t, ok)
	assert.NotEmpty(t, token.AuthToken)

	ctx, code, res = jsonContext(t, `{
		"email": "user@example.com",
		"password": "password1"
	}`)

	require.NoError(t, fix.controller.Login(ctx))
	assert.Equal(t, 202, *code)
	assert.True(t, res.Success)
	assert.Equal(t, authentic.MsgLoginSuccessful, res.Message)
}

func TestControllerLoginUnconfirmed(t *testing.T) {
	fix := newControllerFixture(t)

	_, err := fix.auther.Signup(context.Background(), authentic.SignupRequest{
		Email:      "user@example.com",
		Password:   "password1",
		ConfirmURL: "https://app.example.com/confirm",
	})
	require.NoError(t, err)

	ctx, code, res := jsonContext(t, `{
		"email": "user@example.com",
		"password": "password1"
	}`)

	require.NoError(t, fix.controller.Login(ctx))
	assert.Equal(t, 401, *code)
	assert.False(t, res.Success)
	assert.Equal(t, "user not confirmed", res.Error)
}

func TestControllerLoginWrongPassword(t *testing.T) {
	fix := newControllerFixture(t)

	_, err := fix.auther.Signup(context.Background(), authentic.SignupRequest{
		Email:      "user@example.com",
		Password:   "password1",
		ConfirmURL: "https://app.example.com/confirm",
	})
	require.NoError(t, err)

	ctx, code, res := jsonContext(t, `{
		"email": "user@example.com",
		"password": "wrong-password"
	}`)

	require.NoError(t, fix.controller.Login(ctx))
	assert.Equal(t, 401, *code)
	assert.False(t, res.Success)
}

func TestControllerChangePasswordFlow(t *testing.T) {
	fix := newControllerFixture(t)

	ctx, code, res := jsonContext(t, `{
		"email": "user@example.com",
		"changeUrl": "https://app.example.com/change"
	}`)

	require.NoError(t, fix.controller.ChangePasswordRequest(ctx))
	assert.Equal(t, 200, *code)
	assert.True(t, res.Success)
	assert.Equal(t, authentic.MsgChangeRequestReceived, res.Message)

	changeToken := fix.mailer.last(t)["changeToken"]

	ctx, code, res = jsonContext(t, `{
		"email": "user@example.com",
		"password": "password2",
		"changeToken": "`+changeToken+`"
	}`)

	require.NoError(t, fix.controller.ChangePassword(ctx))
	assert.Equal(t, 200, *code)
	assert.True(t, res.Success)
	assert.Equal(t, authentic.MsgPasswordChanged, res.Message)

	token, ok := res.Data.(*authentic.TokenResponse)
	require.True(t, ok)

	claims, err := fix.tokens.Validate(token.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email())
}

func TestControllerChangePasswordBadToken(t *testing.T) {
	fix := newControllerFixture(t)

	ctx, _, _ := jsonContext(t, `{
		"email": "user@example.com",
		"changeUrl": "https://app.example.com/change"
	}`)
	require.NoError(t, fix.controller.ChangePasswordRequest(ctx))

	ctx, code, res := jsonContext(t, `{
		"email": "user@example.com",
		"password": "password2",
		"changeToken": "bogus"
	}`)

	require.NoError(t, fix.controller.ChangePassword(ctx))
	assert.Equal(t, 401, *code)
	assert.False(t, res.Success)
}

func TestControllerPublicKey(t *testing.T) {
	fix := newControllerFixture(t)

	ctx, code, res := jsonContext(t, "")

	require.NoError(t, fix.controller.PublicKey(ctx))
	assert.Equal(t, 200, *code)
	assert.True(t, res.Success)

	data, ok := res.Data.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, fix.tokens.PublicKeyPEM(), data["publicKey"])
}

func TestNewHTTPControllerRequiresAuther(t *testing.T) {
	assert.Panics(t, func() {
		authentic.NewHTTPController()
	})
}
