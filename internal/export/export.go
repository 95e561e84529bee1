// Package export turns a transaction list into a tabular document and hands
// it to one or more sinks (CSV files, Google Sheets, Elasticsearch).
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"budget/internal/core"
)

// SheetName is the sheet or index a table is written to by default.
const SheetName = "Transactions"

var ErrNothingToExport = errors.New("no transactions to export")

// Column keys, in output order. They double as catalog message keys.
const (
	ColDescription = "Description"
	ColAmount      = "Amount"
	ColCategory    = "Category"
	ColPeriod      = "Month"
	ColCreated     = "Created"
)

var columns = []string{ColDescription, ColAmount, ColCategory, ColPeriod, ColCreated}

// Table is a header plus string rows, one per transaction.
type Table struct {
	Locale language.Tag
	Header []string
	Rows   [][]string
	// Source keeps the transactions the rows were built from, in row order.
	Source []core.Transaction
}

// Sink receives a finished table for one owner.
type Sink interface {
	Name() string
	Write(ctx context.Context, owner string, t Table) error
}

var (
	supported = []language.Tag{language.Vietnamese, language.English, language.Italian}
	matcher   = language.NewMatcher(supported)

	dateLayouts = map[language.Tag]string{
		language.Vietnamese: "2/1/2006",
		language.English:    "1/2/2006",
		language.Italian:    "2/1/2006",
	}

	headers = func() *catalog.Builder {
		b := catalog.NewBuilder(catalog.Fallback(language.English))
		set := func(tag language.Tag, pairs ...string) {
			for i := 0; i+1 < len(pairs); i += 2 {
				_ = b.SetString(tag, pairs[i], pairs[i+1])
			}
		}
		set(language.Vietnamese,
			ColDescription, "Mô tả",
			ColAmount, "Số tiền",
			ColCategory, "Danh mục",
			ColPeriod, "Tháng",
			ColCreated, "Ngày tạo")
		set(language.Italian,
			ColDescription, "Descrizione",
			ColAmount, "Importo",
			ColCategory, "Categoria",
			ColPeriod, "Mese",
			ColCreated, "Creato il")
		return b
	}()
)

// MatchLocale picks the supported language closest to locale (a BCP 47 tag
// such as "vi-VN"). Unknown or empty locales fall back to Vietnamese.
func MatchLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return supported[0]
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// Build renders txs, in the given order, as a table for locale. Creation dates
// are shown in loc so every store yields the same calendar day; nil means UTC.
func Build(txs []core.Transaction, locale string, loc *time.Location) (Table, error) {
	if len(txs) == 0 {
		return Table{}, ErrNothingToExport
	}
	tag := MatchLocale(locale)
	header := headerFor(tag)

	if loc == nil {
		loc = time.UTC
	}
	layout := dateLayouts[tag]
	rows := make([][]string, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []string{
			t.Text,
			t.Amount.String(),
			core.Resolve(t.Category).Name,
			t.Period,
			t.CreatedAt.In(loc).Format(layout),
		})
	}

	src := make([]core.Transaction, len(txs))
	copy(src, txs)
	return Table{Locale: tag, Header: header, Rows: rows, Source: src}, nil
}

// Empty returns a header-only table. Mirrors use it to clear an owner whose
// last transaction was deleted.
func Empty(locale string) Table {
	tag := MatchLocale(locale)
	return Table{Locale: tag, Header: headerFor(tag), Rows: [][]string{}}
}

func headerFor(tag language.Tag) []string {
	p := message.NewPrinter(tag, message.Catalog(headers))
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = p.Sprintf(c)
	}
	return header
}

// Filename is "budget-tracker-YYYY-MM-DD.<ext>" for the UTC date of now.
func Filename(now time.Time, ext string) string {
	return fmt.Sprintf("budget-tracker-%s.%s", now.UTC().Format("2006-01-02"), ext)
}

// Records returns header and rows as one slice, ready for csv.Writer.WriteAll
// or a spreadsheet values update.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	out = append(out, t.Rows...)
	return out
}

// WriteAll sends t to every sink and joins their errors.
func WriteAll(ctx context.Context, owner string, t Table, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Write(ctx, owner, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
