package banner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var (
	ErrBannerNotFound = apperr.New(apperr.ErrNotFound, "banner not found")
	ErrInvalidTitle   = apperr.New(apperr.ErrInvalidArgument, "title is required")
	ErrInvalidImage   = apperr.New(apperr.ErrInvalidArgument, "image_url is required")
)

type Input struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"image_url"`
	LinkURL  string `json:"link_url"`
	Position int    `json:"position"`
	IsActive bool   `json:"is_active"`
}

type Service struct {
	banners store.BannerStore
}

func NewService(banners store.BannerStore) *Service {
	return &Service{banners: banners}
}

func validate(in *Input) error {
	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Title == "" {
		return ErrInvalidTitle
	}
	if in.ImageURL == "" {
		return ErrInvalidImage
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*model.Banner, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	now := time.Now()
	b := &model.Banner{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Subtitle:  in.Subtitle,
		ImageURL:  in.ImageURL,
		LinkURL:   in.LinkURL,
		Position:  in.Position,
		IsActive:  in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.banners.CreateBanner(ctx, b); err != nil {
		return nil, apperr.Internal("create banner", err)
	}
	return b, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Banner, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Title = in.Title
	b.Subtitle = in.Subtitle
	b.ImageURL = in.ImageURL
	b.LinkURL = in.LinkURL
	b.Position = in.Position
	b.IsActive = in.IsActive
	b.UpdatedAt = time.Now()

	if err := s.banners.UpdateBanner(ctx, b); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBannerNotFound
		}
		return nil, apperr.Internal("update banner", err)
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.banners.DeleteBanner(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBannerNotFound
		}
		return apperr.Internal("delete banner", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Banner, error) {
	b, err := s.banners.GetBanner(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBannerNotFound
		}
		return nil, apperr.Internal("get banner", err)
	}
	return b, nil
}

// List returns banners ordered by position. The storefront only sees active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*model.Banner, error) {
	banners, err := s.banners.ListBanners(ctx, activeOnly)
	if err != nil {
		return nil, apperr.Internal("list banners", err)
	}
	return banners, nil
}
