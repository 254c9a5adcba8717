package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/auth"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/kafka"
	service "github.com/andrewseusebio/Rc-Store/internal/services"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"github.com/gorilla/mux"
)

type Handler struct {
	store    service.StoreService
	deposits service.DepositService
	producer kafka.KafkaProducer
}

func NewHandler(store service.StoreService, deposits service.DepositService, producer kafka.KafkaProducer) *Handler {
	return &Handler{store: store, deposits: deposits, producer: producer}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor translates the error taxonomy to HTTP; anything unrecognised is
// reported as a generic internal failure so raw storage errors never reach
// end users.
func statusFor(err error) (int, error) {
	switch {
	case errors.Is(err, pkgerrors.ErrInsufficientFunds),
		errors.Is(err, pkgerrors.ErrInvalidAmount),
		errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrDepositNotPending):
		return http.StatusBadRequest, err
	case errors.Is(err, pkgerrors.ErrOutOfStock):
		return http.StatusConflict, err
	case errors.Is(err, pkgerrors.ErrAccountNotFound),
		errors.Is(err, pkgerrors.ErrProductNotFound):
		return http.StatusNotFound, err
	case errors.Is(err, pkgerrors.ErrAccountBanned),
		errors.Is(err, pkgerrors.ErrNotAuthorized):
		return http.StatusForbidden, err
	case errors.Is(err, pkgerrors.ErrPaymentGateway):
		return http.StatusBadGateway, err
	default:
		return http.StatusInternalServerError, errors.New("internal error")
	}
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/session", h.StartSession).Methods("POST")
	r.HandleFunc("/payments/webhook", h.PaymentWebhook).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/products", h.ListProducts).Methods("GET")
	r.HandleFunc("/balance", h.GetBalance).Methods("GET")
	r.HandleFunc("/orders", h.ListOrders).Methods("GET")
	r.HandleFunc("/purchase", h.Purchase).Methods("POST")
	r.HandleFunc("/deposit", h.StartDeposit).Methods("POST")
	r.HandleFunc("/deposit/amount", h.SubmitDepositAmount).Methods("POST")
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   int64  `json:"account_id"`
		DisplayName string `json:"display_name"`
		Handle      string `json:"handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, account, err := h.store.StartSession(r.Context(), req.AccountID, req.DisplayName, req.Handle)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"account": account,
	})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("account not authenticated"))
		return
	}
	balance, err := h.store.GetBalance(r.Context(), accountID)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("account not authenticated"))
		return
	}
	orders, err := h.store.ListOrders(r.Context(), accountID)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("account not authenticated"))
		return
	}

	var req struct {
		Product string `json:"product"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Product == "" {
		writeError(w, http.StatusBadRequest, errors.New("product is required"))
		return
	}

	order, err := h.store.Purchase(r.Context(), accountID, req.Product)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) StartDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("account not authenticated"))
		return
	}
	if err := h.deposits.Start(r.Context(), accountID); err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "awaiting_amount"})
}

func (h *Handler) SubmitDepositAmount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("account not authenticated"))
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	code, err := h.deposits.SubmitAmount(r.Context(), accountID, req.Text)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"charge_code": code})
}

// PaymentWebhook receives gateway confirmations and forwards them onto the
// payments topic; the consumer applies the idempotent credit.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChargeID          string  `json:"charge_id"`
		ExternalReference string  `json:"external_reference"`
		Amount            float64 `json:"amount"`
		Status            string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Status != "confirmed" {
		// Only confirmations credit balances; everything else is acknowledged
		// and dropped.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	accountID, err := strconv.ParseInt(req.ExternalReference, 10, 64)
	if err != nil || req.ChargeID == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid payment notification"))
		return
	}

	event := map[string]interface{}{
		"charge_id":  req.ChargeID,
		"account_id": accountID,
		"amount":     int64(math.Round(req.Amount * 100)),
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	if err := h.producer.Send(r.Context(), "payments", accountID, eventBytes); err != nil {
		slog.Error("failed to publish payment event", "charge_id", req.ChargeID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
