package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=128"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(credentials{Email: "alice@example.com", Password: "correct-horse"})
	assert.NoError(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	err := Validate(credentials{Email: "alice@example.com"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["Password"])
}

func TestValidate_InvalidEmail(t *testing.T) {
	err := Validate(credentials{Email: "not-an-email", Password: "correct-horse"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid email address", valErr.Fields()["Email"])
	assert.Equal(t, "Email must be a valid email address", valErr.First())
}

func TestValidate_PasswordTooShort(t *testing.T) {
	err := Validate(credentials{Email: "alice@example.com", Password: "short"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Password"], "at least 8")
}

func TestValidate_MultipleErrors(t *testing.T) {
	err := Validate(credentials{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")
	assert.Contains(t, err.Error(), "field 'Email'")
}

type priced struct {
	Currency string `validate:"required,iso4217"`
	Amount   int64  `validate:"gte=0"`
}

func TestValidate_Currency(t *testing.T) {
	err := Validate(priced{Currency: "XXZ", Amount: 100})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be an ISO 4217 currency code", valErr.Fields()["Currency"])

	assert.NoError(t, Validate(priced{Currency: "USD", Amount: 0}))
}

func TestValidationError_FirstEmpty(t *testing.T) {
	assert.Equal(t, "", (&ValidationError{}).First())
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"Email":"alice@example.com","Password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var c credentials
	require.NoError(t, DecodeAndValidate(req, &c))
	assert.Equal(t, "alice@example.com", c.Email)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var c credentials
	err := DecodeAndValidate(req, &c)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
