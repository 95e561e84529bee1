package elastic

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/export"
)

var _ export.Sink = (*Sink)(nil)

func TestDocumentFor(t *testing.T) {
	tx := core.Transaction{
		ID:        "abc",
		Text:      "Taxi",
		Amount:    core.Money{Cents: -12050},
		Category:  "unknown",
		Period:    "2026-02",
		CreatedAt: time.Date(2026, 2, 1, 8, 30, 0, 0, time.FixedZone("ICT", 7*3600)),
	}
	data, err := documentFor("u1", tx)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "abc", doc["id"])
	assert.Equal(t, "u1", doc["owner"])
	assert.Equal(t, -120.5, doc["amount"])
	assert.Equal(t, float64(-12050), doc["amount_cents"])
	assert.Equal(t, "other", doc["category"])
	assert.Equal(t, "Khác", doc["category_name"])
	assert.Equal(t, "2026-02-01T01:30:00Z", doc["created_at"])
}

func TestOwnerQuery(t *testing.T) {
	assert.JSONEq(t, `{"query":{"term":{"owner":"u\"1"}}}`, ownerQuery(`u"1`))
}

func TestNewDefaultsIndex(t *testing.T) {
	s, err := New("", "http://localhost:9200")
	require.NoError(t, err)
	assert.Equal(t, DefaultIndex, s.index)
	assert.Equal(t, "elasticsearch", s.Name())
}
