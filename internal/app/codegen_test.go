package app

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerateCode_ShapeAndAlphabet(t *testing.T) {
	never := func(context.Context, string) (bool, error) { return false, nil }
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(context.Background(), never)
		if err != nil {
			t.Fatalf("GenerateCode returned error: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("expected %d-character code, got %q", CodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(CodeAlphabet, r) {
				t.Fatalf("code %q contains character %q outside the alphabet", code, r)
			}
		}
	}
}

func TestGenerateCode_AvoidsExistingCodes(t *testing.T) {
	existing := make(map[string]struct{})
	exists := func(_ context.Context, code string) (bool, error) {
		_, ok := existing[code]
		return ok, nil
	}
	for i := 0; i < 200; i++ {
		code, err := GenerateCode(context.Background(), exists)
		if err != nil {
			t.Fatalf("GenerateCode returned error: %v", err)
		}
		if _, clash := existing[code]; clash {
			t.Fatalf("generated code %q collides with existing set", code)
		}
		existing[code] = struct{}{}
	}
}

func TestGenerateCode_ExhaustionIsAnExplicitError(t *testing.T) {
	always := func(context.Context, string) (bool, error) { return true, nil }
	_, err := GenerateCode(context.Background(), always)
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
}

func TestGenerateCode_PropagatesLookupFailure(t *testing.T) {
	boom := errors.New("store offline")
	failing := func(context.Context, string) (bool, error) { return false, boom }
	_, err := GenerateCode(context.Background(), failing)
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error to propagate, got %v", err)
	}
}

func TestValidCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"ABC234", true},
		{"abc234", true}, // case-insensitive
		{"ABC23", false},
		{"ABC2345", false},
		{"ABC2O4", false}, // O excluded as ambiguous
		{"ABC2-4", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ValidCode(c.code); got != c.want {
			t.Errorf("ValidCode(%q) = %v, want %v", c.code, got, c.want)
		}
	}
}
