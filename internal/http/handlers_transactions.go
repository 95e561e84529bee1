package http

import (
	"net/http"
	"sync/atomic"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/session"
)

// viewFor derives the view for the request's filters. Filters named in the
// query also become the session's current filters; a request without any
// uses the ones last set.
func viewFor(r *http.Request, sess *session.Session) session.View {
	params := ParseFilterParams(r.URL.Query())
	st := sess.State()
	if params.Given {
		sess.SetFilter(params.Filter, params.Period)
		st.Filter = params.Filter
		st.Period = params.Period
	}
	return session.Derive(st)
}

func listResponse(v session.View) listJSON {
	return listJSON{
		Filter:       filter(v),
		Count:        len(v.Transactions),
		Transactions: transactions(v.Transactions),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	NewResponse().JSON(listResponse(viewFor(r, sess))).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	draft, err := ParseDraft(NewRequestBodyParser(w, r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	res, err := sess.Add(ctx, draft)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if res.RemoteErr != nil {
		s.countRemoteFailure()
		s.logger.LogError(ctx, "Transaction create failed", res.RemoteErr, log.ComponentTransaction, log.OpCreate,
			log.NewFields().WithOwner(sess.Owner()))
		RemoteFailure(res).Write(w)
		return
	}

	t, _ := sess.State().Find(res.ID)
	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	s.logger.LogTransactionChanged(ctx, log.OpCreate, sess.Owner(), t)
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+res.ID).
		JSON(transaction(t)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	id := r.PathValue("id")
	patch, err := ParsePatch(NewRequestBodyParser(w, r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	res, err := sess.Edit(ctx, id, patch)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if res.RemoteErr != nil {
		s.countRemoteFailure()
		s.logger.LogError(ctx, "Transaction update failed", res.RemoteErr, log.ComponentTransaction, log.OpUpdate,
			log.NewFields().WithOwner(sess.Owner()))
		RemoteFailure(res).Write(w)
		return
	}

	t, _ := sess.State().Find(id)
	atomic.AddInt64(&s.appMetrics.transactionsUpdated, 1)
	s.logger.LogTransactionChanged(ctx, log.OpUpdate, sess.Owner(), t)
	NewResponse().JSON(transaction(t)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	id := r.PathValue("id")

	res, err := sess.Delete(ctx, id)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if res.RemoteErr != nil {
		s.countRemoteFailure()
		s.logger.LogError(ctx, "Transaction delete failed", res.RemoteErr, log.ComponentTransaction, log.OpDelete,
			log.NewFields().WithOwner(sess.Owner()))
		RemoteFailure(res).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsDeleted, 1)
	s.logger.LogTransactionChanged(ctx, log.OpDelete, sess.Owner(), core.Transaction{ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// handleReload replaces the session's collection with the store's listing.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Reconcile(r.Context()); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().JSON(listResponse(viewFor(r, sess))).Write(w)
}
