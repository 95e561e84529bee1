// Package elastic mirrors an owner's transactions into an Elasticsearch index.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"budget/internal/core"
	"budget/internal/export"
)

const (
	DefaultIndex = "budget-transactions"
	flushBytes   = 2048
)

// Sink writes one document per transaction, keyed by transaction id.
type Sink struct {
	es    *elasticsearch.Client
	index string
}

// New builds a client for addresses that retries throttled and gateway errors
// with exponential backoff.
func New(index string, addresses ...string) (*Sink, error) {
	if index == "" {
		index = DefaultIndex
	}
	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     addresses,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Sink{es: es, index: index}, nil
}

func (s *Sink) Name() string { return "elasticsearch" }

type document struct {
	ID           string  `json:"id"`
	Owner        string  `json:"owner"`
	Text         string  `json:"text"`
	Amount       float64 `json:"amount"`
	AmountCents  int64   `json:"amount_cents"`
	Category     string  `json:"category"`
	CategoryName string  `json:"category_name"`
	Period       string  `json:"period"`
	CreatedAt    string  `json:"created_at"`
}

func documentFor(owner string, t core.Transaction) ([]byte, error) {
	meta := core.Resolve(t.Category)
	return json.Marshal(document{
		ID:           t.ID,
		Owner:        owner,
		Text:         t.Text,
		Amount:       t.Amount.Units(),
		AmountCents:  t.Amount.Cents,
		Category:     string(meta.Key),
		CategoryName: meta.Name,
		Period:       t.Period,
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func ownerQuery(owner string) string {
	q, _ := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"owner": owner}},
	})
	return string(q)
}

// Write replaces the owner's documents with the transactions behind t.
func (s *Sink) Write(ctx context.Context, owner string, t export.Table) error {
	res, err := s.es.DeleteByQuery(
		[]string{s.index},
		strings.NewReader(ownerQuery(owner)),
		s.es.DeleteByQuery.WithContext(ctx),
		s.es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return fmt.Errorf("delete previous documents: %w", err)
	}
	res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete previous documents: %s", res.Status())
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         s.index,
		FlushBytes:    flushBytes,
		Client:        s.es,
		NumWorkers:    2,
		FlushInterval: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, tx := range t.Source {
		data, err := documentFor(owner, tx)
		if err != nil {
			return fmt.Errorf("encode transaction %s: %w", tx.ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: tx.ID,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.ErrorContext(ctx, "Failed to index transaction", "transaction_id", item.DocumentID, "error", err)
					return
				}
				slog.ErrorContext(ctx, "Failed to index transaction",
					"transaction_id", item.DocumentID,
					"type", res.Error.Type,
					"reason", res.Error.Reason)
			},
		})
		if err != nil {
			return fmt.Errorf("queue transaction %s: %w", tx.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("failed indexing %d of %d documents", stats.NumFailed, stats.NumAdded)
	}
	slog.InfoContext(ctx, "Indexed transactions", "owner", owner, "index", s.index, "documents", stats.NumFlushed)
	return nil
}
