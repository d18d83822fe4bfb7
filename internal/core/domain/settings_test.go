package domain

import "testing"

func TestSettings_Defaults(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if s.DailyGoal != DefaultDailyGoal || s.Theme != ThemeDark || s.Notifications || s.BackendURL != "" {
		t.Errorf("defaults = %+v", s)
	}
}

func TestSettings_Set(t *testing.T) {
	tests := []struct {
		key, value string
		want       string
		wantErr    bool
	}{
		{"daily_goal", "12", "12", false},
		{"daily_goal", "0", "", true},
		{"daily_goal", "51", "", true},
		{"daily_goal", "many", "", true},
		{"theme", "LIGHT", "light", false},
		{"theme", "blue", "", true},
		{"notifications", "true", "true", false},
		{"notifications", "maybe", "", true},
		{"backend_url", "http://localhost:8000/", "http://localhost:8000", false},
		{"backend_url", "", "", false},
		{"backend_url", "localhost:8000", "", true},
		{"color", "red", "", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			s := DefaultSettings()
			err := s.Set(tt.key, tt.value)
			if tt.wantErr {
				if KindOf(err) != KindValidation {
					t.Fatalf("err = %v, want validation error", err)
				}
				if s != DefaultSettings() {
					t.Errorf("failed Set modified settings: %+v", s)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(tt.key)
			if err != nil || got != tt.want {
				t.Errorf("Get = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestSettings_GetUnknown(t *testing.T) {
	if _, err := DefaultSettings().Get("nope"); UserMessage(err) != "unknown setting: nope" {
		t.Errorf("err = %v", err)
	}
}

func TestSettings_KeysRoundTrip(t *testing.T) {
	s := DefaultSettings()
	for _, k := range SettingKeys {
		if _, err := s.Get(k); err != nil {
			t.Errorf("Get(%q): %v", k, err)
		}
	}
}
