package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, err error) {
	appErr := errors.FromError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())

	json.NewEncoder(w).Encode(Response{Error: &Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

var errUnauthorized = errors.NewAppError(errors.Unauthorized, "caller is not authorized for this account")

// authorize asks the auth collaborator whether the caller's session may
// act on every account the request names. The session is the bearer token;
// the ledger does no identity logic of its own.
func authorize(r *http.Request, authz domain.Authorizer, accountRefs ...string) error {
	session := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	for _, ref := range accountRefs {
		ok, err := authz.IsAuthorized(r.Context(), session, ref)
		if err != nil {
			return err
		}
		if !ok {
			return errUnauthorized
		}
	}
	return nil
}
