package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry
type Product struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	Stock              int             `json:"stock"`
	DiscountPercentage *int            `json:"discount_percentage,omitempty"`
	Colors             []string        `json:"colors"`
	Sizes              []string        `json:"sizes"`
	Images             []string        `json:"images"`
	CategoryID         string          `json:"category_id,omitempty"`
	IsFeatured         bool            `json:"is_featured"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ProductFilter narrows product listings
type ProductFilter struct {
	CategoryID string
	Search     string
	Featured   bool
	Limit      int
	Offset     int
}

// Category groups products on the storefront
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Banner is a storefront hero/promo banner
type Banner struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	ImageURL  string    `json:"image_url"`
	LinkURL   string    `json:"link_url,omitempty"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Discount is a promotion that sets discount_percentage on its products
// while active.
type Discount struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Percentage int        `json:"percentage"`
	ProductIDs []string   `json:"product_ids"`
	IsActive   bool       `json:"is_active"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Profile is a customer or administrator account
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CartLine is one (product, color, size) selection in a user's cart
type CartLine struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Color     string    `json:"color,omitempty"`
	Size      string    `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartLineKey identifies the uniqueness tuple of a cart line
type CartLineKey struct {
	UserID    string
	ProductID string
	Color     string
	Size      string
}
