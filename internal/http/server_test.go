package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/store/memory"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Component: "test", Handler: slog.NewTextHandler(io.Discard, nil)})
}

func testCodec(t *testing.T) *auth.SessionCodec {
	t.Helper()
	c, err := auth.NewSessionCodec(strings.Repeat("k", 32), strings.Repeat("s", 32))
	require.NoError(t, err)
	return c
}

type testServer struct {
	t     *testing.T
	srv   *Server
	store *memory.Store
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	mem := memory.New()
	if opts.Store == nil {
		opts.Store = mem
	}
	if opts.Provider == nil {
		opts.Provider = auth.NewStaticProvider()
	}
	if opts.Codec == nil {
		opts.Codec = testCodec(t)
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	srv, err := NewServer(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{t: t, srv: srv, store: mem}
}

func (ts *testServer) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	ts.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func (ts *testServer) login(owner string) *http.Cookie {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/auth/login", `{"credential":"`+owner+`"}`)
	require.Equal(ts.t, http.StatusOK, rr.Code, rr.Body.String())
	return sessionCookieFrom(ts.t, rr)
}

func (ts *testServer) create(c *http.Cookie, body string) transactionJSON {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/api/transactions", body, c)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	var tx transactionJSON
	require.NoError(ts.t, json.Unmarshal(rr.Body.Bytes(), &tx))
	return tx
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/readyz", "").Code)

	down := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	rr := down.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "db down")
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, Options{})
	rr := ts.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestHandlerLogsCarryRequestContext(t *testing.T) {
	var buf bytes.Buffer
	ts := newTestServer(t, Options{Logger: log.New(log.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})})
	c := ts.login("u1")

	rr := ts.do(http.MethodGet, "/api/transactions", "", c)
	require.Equal(t, http.StatusOK, rr.Code)
	requestID := rr.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "Session started") {
			line = l
		}
	}
	require.NotEmpty(t, line, buf.String())
	assert.Contains(t, line, "component=http")
	assert.Contains(t, line, "request_id="+requestID)
	assert.Contains(t, line, "owner=u1")
}

func TestCategoriesArePublic(t *testing.T) {
	ts := newTestServer(t, Options{})
	rr := ts.do(http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	cats := decode[[]core.CategoryMeta](t, rr)
	require.Len(t, cats, 8)
	assert.Equal(t, core.CategoryFood, cats[0].Key)
}

func TestAPIRequiresSignIn(t *testing.T) {
	ts := newTestServer(t, Options{})
	for _, path := range []string{"/api/transactions", "/api/summary", "/api/export", "/auth/me"} {
		assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, path, "").Code, path)
	}

	forged := &http.Cookie{Name: sessionCookie, Value: "forged.value"}
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/transactions", "", forged).Code)
}

func TestLoginValidation(t *testing.T) {
	ts := newTestServer(t, Options{Provider: auth.NewStaticProvider(auth.Identity{OwnerID: "alice", Email: "alice@example.com"})})

	assert.Equal(t, http.StatusUnprocessableEntity, ts.do(http.MethodPost, "/auth/login", `{}`).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/auth/login", `{"credential":"mallory"}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/auth/login", `{"credential":`).Code)

	rr := ts.do(http.MethodPost, "/auth/login", `{"credential":"ALICE@example.com"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", decode[auth.Identity](t, rr).OwnerID)

	// static providers have no redirect flow
	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(http.MethodGet, "/auth/login", "").Code)
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := ts.login("alice")

	tx := ts.create(c, `{"text":"Phở","amount":-45000,"category":"food","period":"2026-01"}`)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, int64(-4500000), tx.Amount.Cents)
	assert.Equal(t, "-45000.00", tx.Amount.Value)
	assert.Equal(t, "Ăn uống", tx.CategoryName)

	stored, _ := ts.store.ListByOwner(context.Background(), "alice")
	require.Len(t, stored, 1)
	assert.Equal(t, tx.ID, stored[0].ID)

	rr := ts.do(http.MethodPatch, "/api/transactions/"+tx.ID, `{"amount":"abc"}`, c)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(http.MethodPatch, "/api/transactions/"+tx.ID, `{"text":"Bún chả","amount":"-50000"}`, c)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	edited := decode[transactionJSON](t, rr)
	assert.Equal(t, "Bún chả", edited.Text)
	assert.Equal(t, int64(-5000000), edited.Amount.Cents)
	assert.Equal(t, tx.CreatedAt, edited.CreatedAt)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPatch, "/api/transactions/missing", `{"text":"x"}`, c).Code)

	rr = ts.do(http.MethodGet, "/api/transactions", "", c)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[listJSON](t, rr)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Bún chả", list.Transactions[0].Text)

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/transactions/"+tx.ID, "", c).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/transactions/"+tx.ID, "", c).Code)

	stored, _ = ts.store.ListByOwner(context.Background(), "alice")
	assert.Empty(t, stored)
}

func TestCreateValidationTouchesNothing(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := ts.login("alice")

	for _, body := range []string{
		`{"text":"   ","amount":10}`,
		`{"text":"Coffee","amount":"ten"}`,
		`{"text":"` + strings.Repeat("x", 201) + `","amount":1}`,
	} {
		rr := ts.do(http.MethodPost, "/api/transactions", body, c)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, body)
	}
	stored, _ := ts.store.ListByOwner(context.Background(), "alice")
	assert.Empty(t, stored)
}

func TestAggregations(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := ts.login("alice")

	ts.create(c, `{"text":"Salary","amount":500,"category":"food","period":"2026-02"}`)
	ts.create(c, `{"text":"Market","amount":-200,"category":"food","period":"2026-01"}`)
	ts.create(c, `{"text":"Bus","amount":-100,"category":"travel","period":"2026-01"}`)

	rr := ts.do(http.MethodGet, "/api/summary", "", c)
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decode[summaryJSON](t, rr)
	assert.Equal(t, int64(20000), sum.Total.Cents)
	assert.Equal(t, int64(50000), sum.Income.Cents)
	assert.Equal(t, int64(30000), sum.Expense.Cents)
	assert.Equal(t, []string{"2026-01", "2026-02"}, sum.Periods)

	groups := decode[[]categoryGroupJSON](t, ts.do(http.MethodGet, "/api/groups/categories", "", c))
	require.Len(t, groups, 8)
	assert.Equal(t, "food", groups[0].Category)
	assert.InDelta(t, 66.67, groups[0].Percent, 0.01)
	assert.Equal(t, int64(50000), groups[0].Income.Cents)
	assert.Equal(t, "travel", groups[1].Category)
	assert.InDelta(t, 33.33, groups[1].Percent, 0.01)

	// month groups keep every period while one is selected
	months := decode[[]monthGroupJSON](t, ts.do(http.MethodGet, "/api/groups/months?period=2026-01", "", c))
	require.Len(t, months, 2)
	assert.Equal(t, "2026-01", months[0].Period)

	// the period filter stuck to the session
	sum = decode[summaryJSON](t, ts.do(http.MethodGet, "/api/summary", "", c))
	assert.Equal(t, "2026-01", sum.Filter.Period)
	assert.Equal(t, int64(-30000), sum.Total.Cents)

	sum = decode[summaryJSON](t, ts.do(http.MethodGet, "/api/summary?"+url.Values{"period": {""}, "category": {"food"}}.Encode(), "", c))
	assert.Equal(t, int64(30000), sum.Total.Cents)

	list := decode[listJSON](t, ts.do(http.MethodGet, "/api/transactions?category=all&q=bus&period=", "", c))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Bus", list.Transactions[0].Text)

	a := decode[analyticsJSON](t, ts.do(http.MethodGet, "/api/analytics?q=", "", c))
	assert.Equal(t, 3, a.TransactionCount)
	assert.InDelta(t, 40.0, a.SavingsRate, 0.001)
	assert.Len(t, a.TopCategories, 3)
}

func TestOwnersAreIsolated(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.login("alice")
	bob := ts.login("bob")

	tx := ts.create(alice, `{"text":"Rent","amount":-100,"category":"bills"}`)

	list := decode[listJSON](t, ts.do(http.MethodGet, "/api/transactions", "", bob))
	assert.Zero(t, list.Count)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/transactions/"+tx.ID, "", bob).Code)
	assert.Equal(t, 2, ts.srv.ActiveSessions())
}

// flakyStore fails every delete.
type flakyStore struct{ *memory.Store }

func (flakyStore) Delete(context.Context, string) error { return errors.New("connection reset") }

func TestDeleteStoreFailureReconciles(t *testing.T) {
	mem := memory.New()
	ts := newTestServer(t, Options{Store: flakyStore{mem}})
	c := ts.login("alice")
	tx := ts.create(c, `{"text":"Gym","amount":-30,"category":"health"}`)

	rr := ts.do(http.MethodDelete, "/api/transactions/"+tx.ID, "", c)
	require.Equal(t, http.StatusBadGateway, rr.Code)
	body := decode[errorBody](t, rr)
	require.NotNil(t, body.Reconciled)
	assert.True(t, *body.Reconciled)

	list := decode[listJSON](t, ts.do(http.MethodGet, "/api/transactions", "", c))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, tx.ID, list.Transactions[0].ID)
}

func TestReloadPicksUpExternalChanges(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := ts.login("alice")

	_, err := ts.store.Create(context.Background(), "alice", core.Transaction{Text: "Imported", Amount: core.Money{Cents: 100}, Category: "other", Period: "2026-03"})
	require.NoError(t, err)

	assert.Zero(t, decode[listJSON](t, ts.do(http.MethodGet, "/api/transactions", "", c)).Count)

	rr := ts.do(http.MethodPost, "/api/transactions/reload", "", c)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[listJSON](t, rr).Count)
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t, Options{ExportLocale: "en"})
	c := ts.login("alice")

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/export", "", c).Code)

	ts.create(c, `{"text":"Taxi","amount":-12.5,"category":"travel","period":"2026-01"}`)
	rr := ts.do(http.MethodGet, "/api/export", "", c)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "budget-tracker-")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Description,Amount,Category,Month,Created\nTaxi,-12.50,Đi lại,2026-01,"))

	rr = ts.do(http.MethodGet, "/api/export?locale=vi-VN", "", c)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Mô tả,"))
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := ts.login("alice")
	require.Equal(t, 1, ts.srv.ActiveSessions())

	rr := ts.do(http.MethodPost, "/auth/logout", "", c)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	cleared := sessionCookieFrom(t, rr)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Zero(t, ts.srv.ActiveSessions())

	// logging out twice is harmless
	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodPost, "/auth/logout", "").Code)
}

func TestSessionSurvivesRestart(t *testing.T) {
	codec := testCodec(t)
	first := newTestServer(t, Options{Codec: codec})
	c := first.login("alice")

	// same keys, fresh process state
	second := newTestServer(t, Options{Codec: codec})
	rr := second.do(http.MethodGet, "/auth/me", "", c)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"owner_id":"alice"`)
}

// oauthProvider adds a redirect flow to the static provider; the
// authorization code doubles as the credential.
type oauthProvider struct{ *auth.StaticProvider }

func (oauthProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/auth?state=" + url.QueryEscape(state)
}

func TestOAuthFlow(t *testing.T) {
	ts := newTestServer(t, Options{Provider: oauthProvider{auth.NewStaticProvider()}})

	rr := ts.do(http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusFound, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	var stateC *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookie {
			stateC = c
		}
	}
	require.NotNil(t, stateC)

	bad := ts.do(http.MethodGet, "/auth/callback?code=carol&state=other", "", stateC)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	noCookie := ts.do(http.MethodGet, "/auth/callback?code=carol&state="+url.QueryEscape(state), "")
	assert.Equal(t, http.StatusBadRequest, noCookie.Code)

	denied := ts.do(http.MethodGet, "/auth/callback?error=access_denied", "")
	assert.Equal(t, http.StatusUnauthorized, denied.Code)

	ok := ts.do(http.MethodGet, "/auth/callback?code=carol&state="+url.QueryEscape(state), "", stateC)
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())
	assert.Equal(t, "carol", decode[auth.Identity](t, ok).OwnerID)
	sessionCookieFrom(t, ok)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := ts.login("alice")
	ts.create(c, `{"text":"Tea","amount":-1}`)

	rr := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "transactions_created_total 1")
	assert.Contains(t, rr.Body.String(), "sessions_active 1")
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(Options{Provider: auth.NewStaticProvider()})
	assert.Error(t, err)
	_, err = NewServer(Options{Store: memory.New()})
	assert.Error(t, err)
}
