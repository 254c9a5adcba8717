package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/andrewseusebio/Rc-Store/internal/models"
	service "github.com/andrewseusebio/Rc-Store/internal/services"
	"github.com/gorilla/mux"
)

// AdminHandler exposes the privileged operations. The bcrypt-checked admin
// token happens in middleware; the allow-list check on the requester identity
// happens in the service, so every handler forwards X-Admin-ID.
type AdminHandler struct {
	admin service.AdminService
}

func NewAdminHandler(admin service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/grant", h.Grant).Methods("POST")
	r.HandleFunc("/revoke", h.Revoke).Methods("POST")
	r.HandleFunc("/inventory", h.BulkLoad).Methods("POST")
	r.HandleFunc("/inventory", h.ListInventory).Methods("GET")
	r.HandleFunc("/inventory/{id:[0-9]+}", h.RemoveItem).Methods("DELETE")
	r.HandleFunc("/orders/{account_id:[0-9]+}", h.ListAccountOrders).Methods("GET")
	r.HandleFunc("/ban", h.Ban).Methods("POST")
	r.HandleFunc("/unban", h.Unban).Methods("POST")
	r.HandleFunc("/bonus", h.SetBonusPolicy).Methods("POST")
	r.HandleFunc("/bonus", h.DisableBonusPolicy).Methods("DELETE")
	r.HandleFunc("/price", h.SetPrice).Methods("POST")
}

func requesterID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-Admin-ID")
	if raw == "" {
		return 0, errors.New("X-Admin-ID header is required")
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		AccountID int64 `json:"account_id"`
		Amount    int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	newBalance, err := h.admin.Grant(r.Context(), reqID, req.AccountID, req.Amount)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": newBalance})
}

func (h *AdminHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		AccountID int64 `json:"account_id"`
		Amount    int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	newBalance, err := h.admin.Revoke(r.Context(), reqID, req.AccountID, req.Amount)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": newBalance})
}

func (h *AdminHandler) BulkLoad(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Product string              `json:"product"`
		Entries []models.StockEntry `json:"entries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	loaded, err := h.admin.BulkLoad(r.Context(), reqID, req.Product, req.Entries)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"loaded": loaded})
}

func (h *AdminHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	items, err := h.admin.ListInventory(r.Context(), reqID, r.URL.Query().Get("product"))
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	itemID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.admin.RemoveItem(r.Context(), reqID, itemID); err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *AdminHandler) ListAccountOrders(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	accountID, err := strconv.ParseInt(mux.Vars(r)["account_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	orders, err := h.admin.ListAccountOrders(r.Context(), reqID, accountID)
	if err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, true)
}

func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, false)
}

func (h *AdminHandler) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		AccountID int64 `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.admin.SetBanned(r.Context(), reqID, req.AccountID, banned); err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"banned": banned})
}

func (h *AdminHandler) SetBonusPolicy(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var policy models.BonusPolicy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.admin.SetBonusPolicy(r.Context(), reqID, policy); err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (h *AdminHandler) DisableBonusPolicy(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.admin.DisableBonusPolicy(r.Context(), reqID); err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": false})
}

func (h *AdminHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	reqID, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Product string `json:"product"`
		Price   int64  `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.admin.SetPrice(r.Context(), reqID, req.Product, req.Price); err != nil {
		status, serr := statusFor(err)
		writeError(w, status, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"price": req.Price})
}
