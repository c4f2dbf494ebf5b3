package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
	"github.com/ray-cod/pocket-bank/internal/service"
)

type HistoryHandler struct {
	historyService *service.HistoryService
	authz          domain.Authorizer
}

func NewHistoryHandler(historyService *service.HistoryService, authz domain.Authorizer) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		authz:          authz,
	}
}

// History serves GET /accounts/{account_ref}/transactions with optional
// kind, from, to (RFC3339), page, and page_size query parameters.
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["account_ref"]
	if err := authorize(r, h.authz, ref); err != nil {
		writeError(w, err)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.historyService.History(r.Context(), ref, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// ExportCSV serves GET /accounts/{account_ref}/transactions/export.
func (h *HistoryHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["account_ref"]
	if err := authorize(r, h.authz, ref); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transactions-"+ref+".csv"))

	if err := h.historyService.ExportCSV(r.Context(), ref, w); err != nil {
		// headers may already be gone; best effort
		writeError(w, err)
	}
}

func parseFilter(r *http.Request) (domain.HistoryFilter, error) {
	var filter domain.HistoryFilter
	q := r.URL.Query()

	if kind := q.Get("kind"); kind != "" {
		parsed, ok := domain.ParseTransactionKind(kind)
		if !ok {
			return filter, errors.NewAppErrorf(errors.InvalidInput, "unknown transaction kind %q", kind)
		}
		filter.Kind = parsed
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, err
	}

	if filter.Page, err = parseInt(q.Get("page")); err != nil {
		return filter, err
	}
	if filter.PageSize, err = parseInt(q.Get("page_size")); err != nil {
		return filter, err
	}

	return filter, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.NewAppError(errors.InvalidInput, "timestamps must be RFC3339").WithDetails(err.Error())
	}
	return t, nil
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewAppError(errors.InvalidInput, "page parameters must be integers").WithDetails(err.Error())
	}
	return n, nil
}
