package cli

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/auth"
	"budget/internal/config"
	"budget/internal/export"
	"budget/internal/export/elastic"
	gsheet "budget/internal/sheets/google"
)

// NewProvider returns the auth provider selected by AUTH_MODE.
func NewProvider(cfg *config.Config) (auth.Provider, error) {
	switch cfg.AuthMode {
	case "google":
		return auth.NewGoogleProvider(cfg.GoogleOAuthClientID, cfg.GoogleOAuthClientSecret, cfg.GoogleOAuthRedirectURL)
	case "static", "":
		return auth.NewStaticProvider(), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

// NewCodec builds the session cookie codec. It returns nil when no keys are
// configured; the HTTP server then falls back to per-process keys.
func NewCodec(cfg *config.Config) (*auth.SessionCodec, error) {
	if cfg.SessionEncryptionKey == "" && cfg.SessionSigningKey == "" {
		return nil, nil
	}
	return auth.NewSessionCodec(cfg.SessionEncryptionKey, cfg.SessionSigningKey)
}

// NewSinks builds every export sink the configuration enables.
func NewSinks(ctx context.Context, logger *slog.Logger, cfg *config.Config) ([]export.Sink, error) {
	var sinks []export.Sink

	if cfg.ExportDir != "" {
		sinks = append(sinks, export.CSVDirSink{Dir: cfg.ExportDir})
		logger.Info("CSV export enabled", "dir", cfg.ExportDir)
	}

	if cfg.ElasticsearchURL != "" {
		es, err := elastic.New(cfg.ElasticsearchIndex, cfg.ElasticsearchURL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, es)
		logger.Info("Elasticsearch mirror enabled", "index", cfg.ElasticsearchIndex)
	}

	if cfg.GoogleSpreadsheetID != "" {
		sheets, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			return nil, fmt.Errorf("google sheets: %w", err)
		}
		sinks = append(sinks, sheets)
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	return sinks, nil
}
