package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/checkout"
	"github.com/example/storefront/internal/domain/dashboard"
	"github.com/example/storefront/internal/model"
)

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Totals(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var in cart.AddInput
	if !decodeJSON(w, r, &in) {
		return
	}
	line, err := h.cart.AddItem(r.Context(), middleware.GetIdentity(r.Context()), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, line)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	line, err := h.cart.SetQuantity(r.Context(), middleware.GetIdentity(r.Context()), mux.Vars(r)["id"], req.Quantity)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, line)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.RemoveItem(r.Context(), middleware.GetIdentity(r.Context()), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout Handlers

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.checkout.Checkout(r.Context(), middleware.GetIdentity(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

type confirmRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handlers) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.confirm(w, r, req.SessionID)
}

func (h *Handlers) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, r.URL.Query().Get("session_id"))
}

func (h *Handlers) confirm(w http.ResponseWriter, r *http.Request, sessionID string) {
	conf, err := h.checkout.Confirm(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, conf)
}

// Order Handlers

func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	orders, err := h.orders.ListForUser(r.Context(), middleware.GetIdentity(r.Context()), limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), middleware.GetIdentity(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Admin Order Handlers

func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := model.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.orders.List(r.Context(), status, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	h.GetOrder(w, r)
}

type updateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Dashboard

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := dashboard.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	report, err := h.dashboard.Report(r.Context(), rng)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
