package credentials

import "strings"

const (
	ModeLogin  = "login"
	ModeSignup = "signup"
)

// Form is the login/signup form as posted by the browser. Validation tags
// are enforced by gin's binding validator.
type Form struct {
	Mode            string `form:"mode" binding:"omitempty,oneof=login signup"`
	Name            string `form:"name" binding:"required_if=Mode signup,max=100"`
	Email           string `form:"email" binding:"required,email,max=254"`
	Password        string `form:"password" binding:"required,max=72"`
	PasswordConfirm string `form:"password_confirm" binding:"required_if=Mode signup"`
	CSRFToken       string `form:"csrf_token"`
	Next            string `form:"next"`
}

// Normalize trims what the user typed. Passwords are left untouched.
func (f *Form) Normalize() {
	f.Mode = strings.ToLower(strings.TrimSpace(f.Mode))
	if f.Mode == "" {
		f.Mode = ModeLogin
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
}

func (f *Form) Signup() bool { return f.Mode == ModeSignup }
