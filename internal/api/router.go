package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/metrics"
)

// RouterDeps are the collaborators the router needs besides the handlers
type RouterDeps struct {
	JWT           *auth.JWTService
	Profiles      middleware.ProfileLookup
	Metrics       *metrics.AppMetrics
	AllowedOrigin string
}

func NewRouter(h *Handlers, ah *AuthHandlers, deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RecoverMiddleware)
	r.Use(middleware.MetricsMiddleware(deps.Metrics))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	requireAuth := middleware.AuthMiddleware(deps.JWT)

	// Public catalog
	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.GetProduct).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id}", h.GetCategory).Methods(http.MethodGet)
	api.HandleFunc("/banners", h.ListActiveBanners).Methods(http.MethodGet)

	// Auth
	api.HandleFunc("/auth/register", ah.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", ah.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", ah.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", ah.Logout).Methods(http.MethodPost)
	api.Handle("/auth/me", requireAuth(http.HandlerFunc(ah.Me))).Methods(http.MethodGet)

	// Payment return. The session id is the credential, the processor
	// redirects the browser here.
	api.HandleFunc("/checkout/confirm", h.ConfirmCheckout).Methods(http.MethodPost)
	api.HandleFunc("/checkout/success", h.CheckoutSuccess).Methods(http.MethodGet)

	// Shopper
	shop := api.NewRoute().Subrouter()
	shop.Use(requireAuth)
	shop.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	shop.HandleFunc("/cart", h.ClearCart).Methods(http.MethodDelete)
	shop.HandleFunc("/cart/items", h.AddToCart).Methods(http.MethodPost)
	shop.HandleFunc("/cart/items/{id}", h.UpdateCartItem).Methods(http.MethodPatch)
	shop.HandleFunc("/cart/items/{id}", h.RemoveFromCart).Methods(http.MethodDelete)
	shop.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost)
	shop.HandleFunc("/orders", h.ListMyOrders).Methods(http.MethodGet)
	shop.HandleFunc("/orders/{id}", h.GetOrder).Methods(http.MethodGet)

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireAuth, middleware.RequireAdmin(deps.Profiles))
	admin.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
	admin.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}", h.UpdateProduct).Methods(http.MethodPut)
	admin.HandleFunc("/products/{id}", h.DeleteProduct).Methods(http.MethodDelete)
	admin.HandleFunc("/categories", h.CreateCategory).Methods(http.MethodPost)
	admin.HandleFunc("/categories/{id}", h.UpdateCategory).Methods(http.MethodPut)
	admin.HandleFunc("/categories/{id}", h.DeleteCategory).Methods(http.MethodDelete)
	admin.HandleFunc("/banners", h.ListBanners).Methods(http.MethodGet)
	admin.HandleFunc("/banners", h.CreateBanner).Methods(http.MethodPost)
	admin.HandleFunc("/banners/{id}", h.GetBanner).Methods(http.MethodGet)
	admin.HandleFunc("/banners/{id}", h.UpdateBanner).Methods(http.MethodPut)
	admin.HandleFunc("/banners/{id}", h.DeleteBanner).Methods(http.MethodDelete)
	admin.HandleFunc("/discounts", h.ListDiscounts).Methods(http.MethodGet)
	admin.HandleFunc("/discounts", h.CreateDiscount).Methods(http.MethodPost)
	admin.HandleFunc("/discounts/{id}", h.GetDiscount).Methods(http.MethodGet)
	admin.HandleFunc("/discounts/{id}", h.UpdateDiscount).Methods(http.MethodPut)
	admin.HandleFunc("/discounts/{id}", h.DeleteDiscount).Methods(http.MethodDelete)
	admin.HandleFunc("/orders", h.AdminListOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}", h.AdminGetOrder).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}/status", h.UpdateOrderStatus).Methods(http.MethodPatch)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	// CORS sits outside the router so preflight requests never hit method matching
	return middleware.CORSMiddleware(deps.AllowedOrigin)(r)
}
