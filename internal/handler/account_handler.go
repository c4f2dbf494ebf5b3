package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
	"github.com/ray-cod/pocket-bank/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
	ledgerService  *service.LedgerService
	authz          domain.Authorizer
}

func NewAccountHandler(accountService *service.AccountService, ledgerService *service.LedgerService, authz domain.Authorizer) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		ledgerService:  ledgerService,
		authz:          authz,
	}
}

type CreateAccountRequest struct {
	UserID         string `json:"user_id"`
	InitialBalance string `json:"initial_balance,omitempty"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid user_id format").WithDetails(err.Error()))
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), userID, req.InitialBalance)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["account_ref"]
	if err := authorize(r, h.authz, ref); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.ledgerService.GetAccount(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["account_ref"]
	if err := authorize(r, h.authz, ref); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accountService.Deactivate(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}
