package http

import (
	"bytes"
	"net/http"
	"strconv"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/log"
	"budget/internal/session"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewResponse().
		Header("Cache-Control", "public, max-age=3600").
		JSON(core.Categories()).
		Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	v := viewFor(r, sess)
	NewResponse().JSON(summaryJSON{
		Filter:       filter(v),
		Periods:      v.Periods,
		Total:        money(v.Total),
		Income:       money(v.Income),
		Expense:      money(v.Expense),
		IncomeCount:  v.IncomeCount,
		ExpenseCount: v.ExpenseCount,
	}).Write(w)
}

func (s *Server) handleCategoryGroups(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	NewResponse().JSON(categoryGroups(viewFor(r, sess).Categories)).Write(w)
}

// handleMonthGroups ignores the period filter; see session.Derive.
func (s *Server) handleMonthGroups(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	NewResponse().JSON(monthGroups(viewFor(r, sess).Months)).Write(w)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	NewResponse().JSON(report(viewFor(r, sess))).Write(w)
}

// handleExport downloads the owner's whole collection, newest first, as CSV.
// The locale query parameter overrides the configured export locale.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	locale := s.exportLocale
	if l := r.URL.Query().Get("locale"); l != "" {
		locale = l
	}

	table, err := export.Build(sess.State().Transactions, locale, s.exportLoc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, table); err != nil {
		FromError(r, err).Write(w)
		return
	}

	filename := export.Filename(s.now(), "csv")
	log.FromContext(ctx).InfoContext(ctx, "Exported transactions",
		log.FieldOwner, sess.Owner(),
		log.FieldOperation, log.OpExport,
		"rows", len(table.Rows))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
