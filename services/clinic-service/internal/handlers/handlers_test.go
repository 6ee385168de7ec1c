package handlers

import (
	"net/http/httptest"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"14:30", "14:30", false},
		{" 09:05 ", "09:05", false},
		{"9:05", "09:05", false},
		{"25:00", "", true},
		{"14:30:00", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := parseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimeOfDay(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTimeOfDay(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidCashPaymentMethod(t *testing.T) {
	for _, method := range []string{"cash", "credit", "debit", "pix", "transfer"} {
		if !validCashPaymentMethod(method) {
			t.Errorf("%q should be valid", method)
		}
	}
	for _, method := range []string{"", "check", "CASH"} {
		if validCashPaymentMethod(method) {
			t.Errorf("%q should be invalid", method)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/cash-movements?startDate=2025-03-01&endDate=2025-03-31", nil)
	w := httptest.NewRecorder()
	start, end, ok := parseDateRange(w, r)
	if !ok {
		t.Fatalf("expected ok, got %d: %s", w.Code, w.Body.String())
	}
	if start == nil || start.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("start = %v", start)
	}
	if end == nil || end.Format("2006-01-02") != "2025-03-31" {
		t.Errorf("end = %v", end)
	}
	if end.Hour() != 23 || end.Minute() != 59 {
		t.Errorf("end should cover the whole day, got %v", end)
	}

	r = httptest.NewRequest("GET", "/api/v1/cash-movements?startDate=bogus", nil)
	w = httptest.NewRecorder()
	if _, _, ok := parseDateRange(w, r); ok {
		t.Fatal("expected invalid startDate to be rejected")
	}
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}

	r = httptest.NewRequest("GET", "/api/v1/cash-movements", nil)
	w = httptest.NewRecorder()
	start, end, ok = parseDateRange(w, r)
	if !ok || start != nil || end != nil {
		t.Errorf("empty range should pass through as nil, got %v %v ok=%v", start, end, ok)
	}
}
