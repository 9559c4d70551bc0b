package validation

import (
	"testing"
	"time"
)

func TestRequire(t *testing.T) {
	f := Fields{}
	f.Require("name", "Alice")
	f.Require("email", "   ")
	if f.OK() {
		t.Fatal("expected failure")
	}
	if _, ok := f["name"]; ok {
		t.Error("name should pass")
	}
	if _, ok := f["email"]; !ok {
		t.Error("blank email should fail")
	}
}

func TestEmail(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"a@example.com", true},
		{"", true}, // presence is Require's job
		{"not-an-email", false},
		{"a@b", false},
		{"a b@example.com", false},
	}
	for _, tc := range cases {
		f := Fields{}
		f.Email("email", tc.value)
		if f.OK() != tc.ok {
			t.Errorf("Email(%q): ok = %v, want %v", tc.value, f.OK(), tc.ok)
		}
	}
}

func TestPhone(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"0712345678", true},
		{"", true},
		{"071234567", false},   // 9 digits
		{"07123456789", false}, // 11 digits
		{"07123 4567", false},
	}
	for _, tc := range cases {
		f := Fields{}
		f.Phone("phone", tc.value)
		if f.OK() != tc.ok {
			t.Errorf("Phone(%q): ok = %v, want %v", tc.value, f.OK(), tc.ok)
		}
	}
}

func TestYear(t *testing.T) {
	for _, y := range []int{1, 2, 3} {
		f := Fields{}
		f.Year("year", y)
		if !f.OK() {
			t.Errorf("year %d should pass", y)
		}
	}
	for _, y := range []int{0, 4, -1} {
		f := Fields{}
		f.Year("year", y)
		if f.OK() {
			t.Errorf("year %d should fail", y)
		}
	}
}

func TestDateOrder(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	f := Fields{}
	f.DateOrder("end_date", start, start.AddDate(0, 0, 3))
	if !f.OK() {
		t.Error("end after start should pass")
	}

	f = Fields{}
	f.DateOrder("end_date", start, start)
	if f.OK() {
		t.Error("end equal to start should fail")
	}

	f = Fields{}
	f.DateOrder("end_date", start, start.AddDate(0, 0, -1))
	if f.OK() {
		t.Error("end before start should fail")
	}
}
