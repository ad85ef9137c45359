package answer

import (
	"testing"

	"surveyhub/internal/schema"
)

func TestCheckPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern schema.Pattern
		value   string
		ok      bool
	}{
		{name: "free accepts anything", pattern: schema.PatternFree, value: "anything @ all", ok: true},
		{name: "empty pattern accepts anything", pattern: "", value: "x", ok: true},
		{name: "numeric digits", pattern: schema.PatternNumeric, value: "0912345", ok: true},
		{name: "numeric rejects sign", pattern: schema.PatternNumeric, value: "-12", ok: false},
		{name: "numeric rejects decimal", pattern: schema.PatternNumeric, value: "1.5", ok: false},
		{name: "mobile local form", pattern: schema.PatternMobileNumber, value: "09123456789", ok: true},
		{name: "mobile intl form", pattern: schema.PatternMobileNumber, value: "+989123456789", ok: true},
		{name: "mobile bare form", pattern: schema.PatternMobileNumber, value: "9123456789", ok: true},
		{name: "mobile wrong prefix", pattern: schema.PatternMobileNumber, value: "08123456789", ok: false},
		{name: "phone valid", pattern: schema.PatternPhoneNumber, value: "02112345678", ok: true},
		{name: "phone too short", pattern: schema.PatternPhoneNumber, value: "0211234567", ok: false},
		{name: "persian letters", pattern: schema.PatternPersianLetters, value: "سلام دنیا", ok: true},
		{name: "persian rejects latin", pattern: schema.PatternPersianLetters, value: "salam", ok: false},
		{name: "english letters", pattern: schema.PatternEnglishLetters, value: "Hello World", ok: true},
		{name: "english rejects digits", pattern: schema.PatternEnglishLetters, value: "Hello2", ok: false},
		{name: "gregorian dash", pattern: schema.PatternGeorgianDate, value: "2026-02-28", ok: true},
		{name: "gregorian slash", pattern: schema.PatternGeorgianDate, value: "2026/02/28", ok: true},
		{name: "gregorian impossible day", pattern: schema.PatternGeorgianDate, value: "2026-02-30", ok: false},
		{name: "gregorian garbage", pattern: schema.PatternGeorgianDate, value: "letters", ok: false},
		{name: "jalali valid", pattern: schema.PatternJalaliDate, value: "1404/06/08", ok: true},
		{name: "jalali dash separator", pattern: schema.PatternJalaliDate, value: "1404-06-08", ok: true},
		{name: "jalali esfand 30 leap", pattern: schema.PatternJalaliDate, value: "1403/12/30", ok: true},
		{name: "jalali esfand 30 non leap", pattern: schema.PatternJalaliDate, value: "1404/12/30", ok: false},
		{name: "jalali month 13", pattern: schema.PatternJalaliDate, value: "1404/13/01", ok: false},
		{name: "jalali two parts", pattern: schema.PatternJalaliDate, value: "1404/06", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := checkPattern(tc.pattern, tc.value)
			if tc.ok && msg != "" {
				t.Fatalf("expected pass, got %q", msg)
			}
			if !tc.ok && msg == "" {
				t.Fatalf("expected failure for %q", tc.value)
			}
		})
	}
}

func TestCheckPatternUnknownPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic")
		}
		if _, ok := r.(*schema.SchemaError); !ok {
			t.Fatalf("expected *schema.SchemaError, got %T", r)
		}
	}()
	checkPattern(schema.Pattern("bogus"), "x")
}

func TestValidEmail(t *testing.T) {
	valid := []string{"user@example.com", "first.last@sub.example.org"}
	invalid := []string{"", "plain", "user@", "Name <user@example.com>", "user@@example.com"}
	for _, v := range valid {
		if !validEmail(v) {
			t.Errorf("validEmail(%q) = false", v)
		}
	}
	for _, v := range invalid {
		if validEmail(v) {
			t.Errorf("validEmail(%q) = true", v)
		}
	}
}

func TestValidLink(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://example.com/path?x=1",
		"example.org",
		"sub.example.ir/page",
	}
	invalid := []string{
		"",
		"ftp://example.com",
		"no spaces allowed.com extra",
		"localhost",
		"example.unknowntld",
	}
	for _, v := range valid {
		if !validLink(v) {
			t.Errorf("validLink(%q) = false", v)
		}
	}
	for _, v := range invalid {
		if validLink(v) {
			t.Errorf("validLink(%q) = true", v)
		}
	}
}
