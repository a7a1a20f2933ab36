package xtream

import (
	"encoding/json"
	"testing"
)

func TestFlexIntUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"integer", `123`, 123},
		{"string number", `"456"`, 456},
		{"empty string", `""`, 0},
		{"negative", `-100`, -100},
		{"string negative", `"-200"`, -200},
		{"garbage string", `"abc"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexInt
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.input, err)
			}
			if f.Int() != tt.want {
				t.Errorf("got %d, want %d", f.Int(), tt.want)
			}
		})
	}
}

func TestFlexFloatUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"float", `4.5`, 4.5},
		{"string float", `"3.7"`, 3.7},
		{"integer", `4`, 4},
		{"empty string", `""`, 0},
		{"garbage", `"n/a"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexFloat
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.input, err)
			}
			if f.Float() != tt.want {
				t.Errorf("got %v, want %v", f.Float(), tt.want)
			}
		})
	}
}

func TestFlexStringUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string", `"hello"`, "hello"},
		{"number", `42`, "42"},
		{"float", `4.5`, "4.5"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.input, err)
			}
			if f.String() != tt.want {
				t.Errorf("got %q, want %q", f.String(), tt.want)
			}
		})
	}
}

func TestUserInfoIsAuthenticated(t *testing.T) {
	tests := []struct {
		name string
		user UserInfo
		want bool
	}{
		{"auth flag only", UserInfo{Auth: 1}, true},
		{"active status only", UserInfo{Status: "Active"}, true},
		{"both", UserInfo{Auth: 1, Status: "Active"}, true},
		{"neither", UserInfo{Auth: 0, Status: "Expired"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.IsAuthenticated(); got != tt.want {
				t.Errorf("IsAuthenticated() = %v, want %v", got, tt.want)
			}
		})
	}
}
