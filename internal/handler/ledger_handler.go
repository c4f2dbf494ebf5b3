package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
	"github.com/ray-cod/pocket-bank/internal/service"
)

type LedgerHandler struct {
	ledgerService *service.LedgerService
	authz         domain.Authorizer
}

func NewLedgerHandler(ledgerService *service.LedgerService, authz domain.Authorizer) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		authz:         authz,
	}
}

type MutationRequest struct {
	Account     string `json:"account"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type TransferRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type TransferResponse struct {
	Out *domain.TransactionRecord `json:"out"`
	In  *domain.TransactionRecord `json:"in"`
}

func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	if err := authorize(r, h.authz, req.Account); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.ledgerService.Deposit(r.Context(), req.Account, req.Amount, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	if err := authorize(r, h.authz, req.Account); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.ledgerService.Withdraw(r.Context(), req.Account, req.Amount, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	// the caller must control the source account; the destination only
	// receives funds
	if err := authorize(r, h.authz, req.From); err != nil {
		writeError(w, err)
		return
	}

	outRec, inRec, err := h.ledgerService.Transfer(r.Context(), req.From, req.To, req.Amount, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferResponse{Out: outRec, In: inRec})
}
