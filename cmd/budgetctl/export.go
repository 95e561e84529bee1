package main

import (
	"context"
	"fmt"
	"strings"

	"budget/internal/auth"
	"budget/internal/export"
	"budget/internal/export/elastic"
	"budget/internal/services"
	gsheet "budget/internal/sheets/google"
)

type exportCmd struct {
	Owner  string `help:"Owner id to export. Empty exports every owner."`
	Out    string `default:"csv:./exports" help:"Where to write [csv:/path/dir es8:http://myelasticsearch:9200 sheets:SPREADSHEET_ID]"`
	Locale string `help:"Header and date locale, e.g. vi-VN or en-US. Defaults to EXPORT_LOCALE."`
}

// parseOut turns a "kind:target" destination into a sink.
func parseOut(ctx context.Context, out, sheetName string) (export.Sink, error) {
	bits := strings.SplitN(out, ":", 2)
	if len(bits) != 2 || bits[1] == "" {
		return nil, fmt.Errorf("invalid out %q, expected [csv:/path/dir] [es8:http://elasticsearch:9200] or [sheets:SPREADSHEET_ID]", out)
	}

	switch bits[0] {
	case "csv":
		return export.CSVDirSink{Dir: bits[1]}, nil
	case "es8":
		return elastic.New("", bits[1])
	case "sheets":
		return gsheet.New(ctx, bits[1], sheetName)
	default:
		return nil, fmt.Errorf("unknown out kind %q", bits[0])
	}
}

func (c *exportCmd) Run(g *globals) error {
	ctx := context.Background()
	cfg := g.config()
	defer g.close()

	sink, err := parseOut(ctx, c.Out, cfg.GoogleSheetName)
	if err != nil {
		return err
	}

	locale := c.Locale
	if locale == "" {
		locale = cfg.ExportLocale
	}

	b := g.backend(ctx)
	processor := services.NewMirrorProcessor(b, b, services.MirrorProcessorConfig{Locale: locale, Location: cfg.ExportLocation()}, sink)
	if c.Owner != "" {
		return processor.Mirror(ctx, c.Owner)
	}
	return processor.ResyncAll(ctx)
}

type keygenCmd struct{}

func (c *keygenCmd) Run(_ *globals) error {
	for _, name := range []string{"SESSION_ENCRYPTION_KEY", "SESSION_SIGNING_KEY"} {
		key, err := auth.NewRandomKey()
		if err != nil {
			return err
		}
		fmt.Printf("%s=%s\n", name, key)
	}
	return nil
}
