package numeric

import (
	"reflect"
	"testing"
)

func TestNormalizeDigitWords(t *testing.T) {
	got := Normalize("zwo null eins")
	if got.Normalized != "2 0 1" {
		t.Errorf("Normalized = %q, want %q", got.Normalized, "2 0 1")
	}
}

func TestNormalizeDoppel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"drei doppel eins", "3 3 1"},
		{"doppel eins", "1"},
		{"hallo doppel eins", "hallo 1"},
		{"drei doppel", "3 3"},
	}
	for _, tc := range cases {
		got := Normalize(tc.in)
		if got.Normalized != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got.Normalized, tc.want)
		}
	}
}

func TestNormalizePlusAndLetters(t *testing.T) {
	got := Normalize("plus vier neun")
	if got.Normalized != "+ 4 9" {
		t.Errorf("Normalized = %q, want %q", got.Normalized, "+ 4 9")
	}

	got = Normalize("ä wie anton ß")
	if got.Normalized != "AE wie anton SS" {
		t.Errorf("Normalized = %q, want %q", got.Normalized, "AE wie anton SS")
	}
}

func TestNormalizePassthrough(t *testing.T) {
	got := Normalize("meine nummer lautet")
	if got.Normalized != "meine nummer lautet" {
		t.Errorf("Normalized = %q, want passthrough", got.Normalized)
	}
	if len(got.PhoneCandidates) != 0 {
		t.Errorf("PhoneCandidates = %v, want none", got.PhoneCandidates)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	got := Normalize("")
	if got.Normalized != "" {
		t.Errorf("Normalized = %q, want empty", got.Normalized)
	}
	if got.PhoneCandidates == nil || len(got.PhoneCandidates) != 0 {
		t.Errorf("PhoneCandidates = %v, want empty slice", got.PhoneCandidates)
	}
}

func TestPhoneCandidateExtraction(t *testing.T) {
	got := Normalize("meine nummer ist null eins fünf eins zwei drei vier fünf sechs sieben")
	want := []string{"0151234567"}
	if !reflect.DeepEqual(got.PhoneCandidates, want) {
		t.Errorf("PhoneCandidates = %v, want %v", got.PhoneCandidates, want)
	}
}

func TestPhoneCandidateMinimumDigits(t *testing.T) {
	got := Normalize("eins zwei drei vier fünf")
	if len(got.PhoneCandidates) != 0 {
		t.Errorf("five digits should not produce a candidate, got %v", got.PhoneCandidates)
	}
}

func TestPhoneCandidateDeduplication(t *testing.T) {
	got := Normalize("null eins fünf null null eins und nochmal null eins fünf null null eins")
	want := []string{"015001"}
	if !reflect.DeepEqual(got.PhoneCandidates, want) {
		t.Errorf("PhoneCandidates = %v, want %v", got.PhoneCandidates, want)
	}
}

func TestPhoneCandidateWithCountryCode(t *testing.T) {
	// The tokenizer splits "+" into its own token, so the candidate scan
	// picks up the digit run without the plus sign.
	got := Normalize("plus vier neun eins sechs null eins zwei drei vier fünf sechs sieben acht")
	want := []string{"4916012345678"}
	if !reflect.DeepEqual(got.PhoneCandidates, want) {
		t.Errorf("PhoneCandidates = %v, want %v", got.PhoneCandidates, want)
	}
}

func TestIsPlausibleGermanPhone(t *testing.T) {
	cases := []struct {
		number string
		want   bool
	}{
		{"+4916012345678", true},
		{"4916012345678", true},
		{"015112345678", true},
		{"0151123", true},
		{"123", false},
		{"12345678", false},
		{"+3316012345678", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsPlausibleGermanPhone(tc.number); got != tc.want {
			t.Errorf("IsPlausibleGermanPhone(%q) = %v, want %v", tc.number, got, tc.want)
		}
	}
}

func TestPlausibleCandidates(t *testing.T) {
	got := PlausibleCandidates([]string{"+4916012345678", "123456", "015112345678"})
	want := []string{"+4916012345678", "015112345678"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PlausibleCandidates = %v, want %v", got, want)
	}
}
