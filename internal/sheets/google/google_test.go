package google

import (
	"context"
	"strings"
	"testing"

	"budget/internal/export"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Transactions")
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-id", "")
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWrite_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Transactions"}
	err := c.Write(context.Background(), "u1", export.Table{})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestSheetTitle(t *testing.T) {
	tests := []struct {
		base, owner, want string
	}{
		{"Transactions", "alice", "Transactions alice"},
		{"Transactions", " bob ", "Transactions bob"},
		{"Transactions", "", "Transactions"},
	}
	for _, tt := range tests {
		if got := sheetTitle(tt.base, tt.owner); got != tt.want {
			t.Errorf("sheetTitle(%q, %q) = %q, want %q", tt.base, tt.owner, got, tt.want)
		}
	}

	long := sheetTitle("T", strings.Repeat("ă", 200))
	if n := len([]rune(long)); n != 100 {
		t.Errorf("expected title truncated to 100 runes, got %d", n)
	}

	prefix := strings.Repeat("x", 150)
	a, b := sheetTitle("T", prefix+"a"), sheetTitle("T", prefix+"b")
	if a == b {
		t.Errorf("owners sharing a long prefix got the same tab %q", a)
	}
	if a != sheetTitle("T", prefix+"a") {
		t.Errorf("title is not stable for the same owner")
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("Transactions o'neil"); got != "'Transactions o''neil'" {
		t.Errorf("unexpected quoting: %s", got)
	}
}

func TestToValues(t *testing.T) {
	vals := toValues([][]string{{"a", "b"}, {"c"}})
	if len(vals) != 2 || len(vals[0]) != 2 || len(vals[1]) != 1 {
		t.Fatalf("unexpected shape: %v", vals)
	}
	if vals[0][1] != "b" || vals[1][0] != "c" {
		t.Errorf("unexpected values: %v", vals)
	}
}
