package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/krishn-mehta/speak-code-build-sub000/internal/errors"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/middleware"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/service"
)

type TokensHandler struct {
	ledgerService *service.LedgerService
}

func NewTokensHandler(ledgerService *service.LedgerService) *TokensHandler {
	return &TokensHandler{ledgerService: ledgerService}
}

func (h *TokensHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Balance)
	r.Get("/costs", h.Costs)
	r.Get("/usage", h.Usage)

	return r
}

// GET /v1/tokens
func (h *TokensHandler) Balance(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// GET /v1/tokens/costs
// The price table for the UI shell's affordability pre-flight. Advisory only:
// the debit re-checks at execution time.
func (h *TokensHandler) Costs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"costs": service.Costs()})
}

// GET /v1/tokens/usage
func (h *TokensHandler) Usage(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	pagination := ParsePagination(r)
	history, err := h.ledgerService.UsageHistory(r.Context(), account.UserID, pagination.Limit, pagination.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":  history.Records,
		"total":    history.Total,
		"netTotal": history.NetTotal,
		"limit":    pagination.Limit,
		"offset":   pagination.Offset,
	})
}

// AccountsHandler provisions token accounts. Mounted outside the token auth
// group: it is the endpoint that mints the API token in the first place, and
// is expected to sit behind the identity provider's signup hook.
type AccountsHandler struct {
	ledgerService *service.LedgerService
}

func NewAccountsHandler(ledgerService *service.LedgerService) *AccountsHandler {
	return &AccountsHandler{ledgerService: ledgerService}
}

func (h *AccountsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	return r
}

// POST /v1/accounts
// Returns the raw API token exactly once; only its hash is stored.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.UserID == "" {
		writeError(w, apperrors.MissingRequired("userId"))
		return
	}

	created, err := h.ledgerService.CreateAccount(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"account":  created.Account,
		"apiToken": created.APIToken,
	})
}
