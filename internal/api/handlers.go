package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/storefront/internal/domain/banner"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/category"
	"github.com/example/storefront/internal/domain/checkout"
	"github.com/example/storefront/internal/domain/dashboard"
	"github.com/example/storefront/internal/domain/discount"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/model"
)

// Services bundles the domain services the handlers call
type Services struct {
	Products   *product.Service
	Categories *category.Service
	Banners    *banner.Service
	Discounts  *discount.Service
	Cart       *cart.Service
	Checkout   *checkout.Service
	Orders     *order.Service
	Dashboard  *dashboard.Service
}

type Handlers struct {
	products   *product.Service
	categories *category.Service
	banners    *banner.Service
	discounts  *discount.Service
	cart       *cart.Service
	checkout   *checkout.Service
	orders     *order.Service
	dashboard  *dashboard.Service
}

func NewHandlers(s Services) *Handlers {
	return &Handlers{
		products:   s.Products,
		categories: s.Categories,
		banners:    s.Banners,
		discounts:  s.Discounts,
		cart:       s.Cart,
		checkout:   s.Checkout,
		orders:     s.Orders,
		dashboard:  s.Dashboard,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Product Handlers

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pagination(r)
	featured, _ := strconv.ParseBool(q.Get("featured"))

	products, err := h.products.List(r.Context(), model.ProductFilter{
		CategoryID: q.Get("category_id"),
		Search:     q.Get("search"),
		Featured:   featured,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in product.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.products.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product.NewView(p))
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in product.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.products.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product.NewView(p))
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Category Handlers

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in category.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.categories.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in category.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.categories.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Banner Handlers

func (h *Handlers) ListActiveBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, true)
}

func (h *Handlers) ListBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, false)
}

func (h *Handlers) listBanners(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	banners, err := h.banners.List(r.Context(), activeOnly)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, banners)
}

func (h *Handlers) GetBanner(w http.ResponseWriter, r *http.Request) {
	b, err := h.banners.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *Handlers) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var in banner.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.banners.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (h *Handlers) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	var in banner.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.banners.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *Handlers) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	if err := h.banners.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Discount Handlers

func (h *Handlers) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.discounts.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, discounts)
}

func (h *Handlers) GetDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handlers) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var in discount.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	d, err := h.discounts.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *Handlers) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	var in discount.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	d, err := h.discounts.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handlers) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.discounts.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
