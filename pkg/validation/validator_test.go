package validation

import (
	"mime/multipart"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type signUpForm struct {
	Username string `form:"username" validate:"required,username"`
	Password string `form:"password" validate:"required,strongpwd"`
}

type contactForm struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phoneNumber" validate:"required,phone"`
	City  string `json:"city" validate:"omitempty,nowhitespace"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	register(v)
	return v
}

func TestStrongPassword(t *testing.T) {
	v := newValidator()
	cases := map[string]bool{
		"Aa1!aaaa":  true,
		"Zz9&zzzzz": true,
		"Aa1!aaa":   false, // too short
		"aa1!aaaa":  false, // no upper
		"AA1!AAAA":  false, // no lower
		"Aaa!aaaa":  false, // no digit
		"Aa1aaaaa":  false, // no symbol
		"Aa1!aa#a":  false, // symbol outside the set
		"Aa1! aaaa": false,
	}
	for pwd, ok := range cases {
		err := v.Struct(signUpForm{Username: "alice1", Password: pwd})
		if ok {
			assert.NoError(t, err, pwd)
		} else {
			assert.Error(t, err, pwd)
		}
	}
}

func TestUsernameRules(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Struct(signUpForm{Username: "alice1", Password: "Aa1!aaaa"}))

	err := v.Struct(signUpForm{Username: "alice", Password: "Aa1!aaaa"})
	details := ToDetails(err)
	assert.Contains(t, details, "username")

	assert.Error(t, v.Struct(signUpForm{Username: "ali ce1", Password: "Aa1!aaaa"}))
}

func TestContactRules(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Struct(contactForm{Email: "a@b.lt", Phone: "+37060000000", City: "Vilnius"}))
	assert.NoError(t, v.Struct(contactForm{Email: "a@b.lt", Phone: "+37060000000"}))

	details := ToDetails(v.Struct(contactForm{Email: "nope", Phone: "12ab", City: "New York"}))
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be a valid phone number", details["phoneNumber"])
	assert.Equal(t, "cannot contain whitespace", details["city"])
}

func TestCheckFile(t *testing.T) {
	assert.Equal(t, map[string]string{"image": "is required"}, CheckFile("image", nil, 10))
	assert.Nil(t, CheckFile("image", &multipart.FileHeader{Size: 10}, 10))
	assert.Contains(t, CheckFile("image", &multipart.FileHeader{Size: 11}, 10), "image")
}

func TestVarDetails(t *testing.T) {
	v := newValidator()
	assert.Nil(t, varDetails(v, "email", "a@b.lt", "required,email"))
	assert.Equal(t, map[string]string{"email": "must be a valid email"}, varDetails(v, "email", "nope", "required,email"))
	assert.Equal(t, map[string]string{"city": "cannot contain whitespace"}, varDetails(v, "city", "New York", "required,nowhitespace"))
	assert.Equal(t, map[string]string{"city": "is required"}, varDetails(v, "city", "", "required,nowhitespace"))
}
