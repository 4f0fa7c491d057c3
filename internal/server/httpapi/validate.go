package httpapi

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleOAuthRequest struct {
	IDToken string `json:"id_token"`
}

// validate checks the request; maxPasswordBytes > 0 additionally caps the
// encoded password length the configured hash accepts.
func (r *registerRequest) validate(maxPasswordBytes int) error {
	if n := utf8.RuneCountInString(r.Name); n < 1 || n > 255 {
		return fmt.Errorf("name must be 1 to 255 characters")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if !phonePattern.MatchString(r.Phone) {
		return fmt.Errorf("phone must be exactly 10 digits")
	}
	if n := utf8.RuneCountInString(r.Password); n < 8 || n > 128 {
		return fmt.Errorf("password must be 8 to 128 characters")
	}
	if maxPasswordBytes > 0 && len(r.Password) > maxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

func (r *loginRequest) validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (r *googleOAuthRequest) validate() error {
	if strings.TrimSpace(r.IDToken) == "" {
		return fmt.Errorf("id_token is required")
	}
	return nil
}

// validateEmail accepts a bare addr-spec with a dotted domain.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("email is not a valid address")
	}
	at := strings.LastIndexByte(email, '@')
	if at < 1 || !strings.Contains(email[at+1:], ".") {
		return fmt.Errorf("email is not a valid address")
	}
	return nil
}
