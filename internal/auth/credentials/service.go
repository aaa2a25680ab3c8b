package credentials

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MsgPasswordMismatch is shown when the two signup passwords differ.
const MsgPasswordMismatch = "Passwords do not match"

// ErrPasswordMismatch is returned by CheckPasswords.
var ErrPasswordMismatch = errors.New("credentials: passwords do not match")

// CheckPasswords runs before any provider call on signup.
func (f *Form) CheckPasswords() error {
	if f.Signup() && f.Password != f.PasswordConfirm {
		return ErrPasswordMismatch
	}
	return nil
}

var fieldNames = map[string]string{
	"Mode":            "mode",
	"Name":            "name",
	"Email":           "email",
	"Password":        "password",
	"PasswordConfirm": "password_confirm",
}

var fieldLabels = map[string]string{
	"mode":             "Mode",
	"name":             "Name",
	"email":            "Email",
	"password":         "Password",
	"password_confirm": "Password confirmation",
}

// FieldErrors turns a binding error into per-field messages keyed by form
// field name. ok is false when err is not a validation failure (e.g. a
// malformed body).
func FieldErrors(err error) (map[string]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name, ok := fieldNames[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.StructField())
		}
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = message(name, fe)
	}
	return out, true
}

func message(name string, fe validator.FieldError) string {
	label := fieldLabels[name]
	if label == "" {
		label = name
	}
	switch fe.Tag() {
	case "required", "required_if":
		return label + " is required"
	case "email":
		return "Enter a valid email address"
	case "max":
		return label + " is too long"
	case "oneof":
		return "Unknown form mode"
	}
	return label + " is invalid"
}

// Summary is the single alert line for a set of field errors.
func Summary(fields map[string]string) string {
	for _, name := range []string{"name", "email", "password", "password_confirm", "mode"} {
		if msg, ok := fields[name]; ok {
			return msg
		}
	}
	return "Please check the form and try again"
}
