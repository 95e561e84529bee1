package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"budget/internal/core"
)

func TestParseFilterParams(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantCat   string
		wantQ     string
		wantPer   string
		wantGiven bool
	}{
		{"empty", url.Values{}, "", "", "", false},
		{"all filters", url.Values{"category": {" food "}, "q": {" phở "}, "period": {"2026-01 "}}, "food", " phở ", "2026-01", true},
		{"explicit reset", url.Values{"category": {"all"}}, "all", "", "", true},
		{"empty value still counts", url.Values{"q": {""}}, "", "", "", true},
		{"control characters dropped", url.Values{"q": {"ca\x00fe"}}, "", "cafe", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFilterParams(tt.query)
			if got.Filter.Category != tt.wantCat || got.Filter.Search != tt.wantQ || got.Period != tt.wantPer || got.Given != tt.wantGiven {
				t.Errorf("ParseFilterParams() = %+v", got)
			}
		})
	}
}

func parserFor(body, contentType string) *RequestBodyParser {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	return NewRequestBodyParser(httptest.NewRecorder(), r)
}

func TestRequestBodyParser(t *testing.T) {
	t.Run("json with number", func(t *testing.T) {
		p := parserFor(`{"text":"  Taxi ","amount":-120.5,"flag":true}`, "application/json")
		if err := p.Parse(); err != nil {
			t.Fatal(err)
		}
		if !p.IsJSON() {
			t.Error("expected JSON body")
		}
		if p.Get("text") != "Taxi" || p.Get("amount") != "-120.5" || p.Get("flag") != "true" {
			t.Errorf("unexpected values %q %q %q", p.Get("text"), p.Get("amount"), p.Get("flag"))
		}
		if p.Has("category") {
			t.Error("category is absent")
		}
	})

	t.Run("large integers keep precision", func(t *testing.T) {
		p := parserFor(`{"amount":12345678901234}`, "application/json")
		if err := p.Parse(); err != nil {
			t.Fatal(err)
		}
		if p.Get("amount") != "12345678901234" {
			t.Errorf("got %q", p.Get("amount"))
		}
	})

	t.Run("form", func(t *testing.T) {
		p := parserFor("text=Coffee&amount=-3%2C50&category=", "application/x-www-form-urlencoded")
		if err := p.Parse(); err != nil {
			t.Fatal(err)
		}
		if p.Get("text") != "Coffee" || p.Get("amount") != "-3,50" || !p.Has("category") {
			t.Errorf("unexpected form parse")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		err := parserFor(`{"text":`, "application/json").Parse()
		if !errors.Is(err, errBadRequest) {
			t.Errorf("expected errBadRequest, got %v", err)
		}
	})

	t.Run("body too large", func(t *testing.T) {
		err := parserFor(`{"text":"`+strings.Repeat("a", maxBodyBytes)+`"}`, "application/json").Parse()
		if !errors.Is(err, errBadRequest) {
			t.Errorf("expected errBadRequest, got %v", err)
		}
	})
}

func TestParsePatch(t *testing.T) {
	p := parserFor(`{"text":" Lunch ","amount":"-10","category":"","period":"2026-02"}`, "application/json")
	patch, err := ParsePatch(p)
	if err != nil {
		t.Fatal(err)
	}
	if patch.Text == nil || *patch.Text != "Lunch" {
		t.Errorf("text = %v", patch.Text)
	}
	if patch.Amount == nil || patch.Amount.Cents != -1000 {
		t.Errorf("amount = %v", patch.Amount)
	}
	if patch.Category != nil {
		t.Error("empty category should leave the category untouched")
	}
	if patch.Period == nil || *patch.Period != "2026-02" {
		t.Errorf("period = %v", patch.Period)
	}

	_, err = ParsePatch(parserFor(`{"amount":"lots"}`, "application/json"))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	patch, err = ParsePatch(parserFor(`{}`, "application/json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := patch.Normalize(); !errors.Is(err, core.ErrEmptyPatch) {
		t.Errorf("empty body should be an empty patch, got %v", err)
	}
}

func TestParseDraft(t *testing.T) {
	d, err := ParseDraft(parserFor(`{"text":"Salary","amount":1500000,"category":"other"}`, "application/json"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Text != "Salary" || d.Amount != "1500000" || d.Category != "other" || d.Period != "" {
		t.Errorf("unexpected draft %+v", d)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x01b\tc\n ", true); got != "ab\tc" {
		t.Errorf("got %q", got)
	}
	if got := sanitizeInput(" a ", false); got != " a " {
		t.Errorf("got %q", got)
	}
}
