package domain

import "testing"

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  string
	}{
		{"ok", Credentials{Email: "a@b.c", Password: "x"}, ""},
		{"blank email", Credentials{Email: "  ", Password: "x"}, "Please enter your email"},
		{"no password", Credentials{Email: "a@b.c"}, "Please enter your password"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if UserMessage(err) != tt.want {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCredentials_ValidateSignup(t *testing.T) {
	c := Credentials{Email: "a@b.c", Password: "secret1"}
	if err := c.ValidateSignup("secret1"); err != nil {
		t.Errorf("ValidateSignup: %v", err)
	}
	if err := c.ValidateSignup("secret2"); UserMessage(err) != "Passwords do not match" {
		t.Errorf("mismatch err = %v", err)
	}
	short := Credentials{Email: "a@b.c", Password: "abc"}
	if err := short.ValidateSignup("abc"); UserMessage(err) != "Password must be at least 6 characters" {
		t.Errorf("short err = %v", err)
	}
}

func TestTokenPair_Valid(t *testing.T) {
	if (TokenPair{AccessToken: "a"}).Valid() {
		t.Error("pair without refresh token should be invalid")
	}
	s := &Session{AccessToken: "a", RefreshToken: "r"}
	if !s.Tokens().Valid() {
		t.Error("session tokens should be valid")
	}
}
