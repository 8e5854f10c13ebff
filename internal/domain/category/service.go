package category

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var (
	ErrCategoryNotFound = apperr.New(apperr.ErrNotFound, "category not found")
	ErrInvalidName      = apperr.New(apperr.ErrInvalidArgument, "name is required")
	ErrInvalidSlug      = apperr.New(apperr.ErrInvalidArgument, "invalid slug format")
	ErrSlugTaken        = apperr.New(apperr.ErrInvalidArgument, "slug is already in use")
)

// slugRegex validates slug format (lowercase letters, numbers, hyphens)
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

type Input struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type Service struct {
	categories store.CategoryStore
}

func NewService(categories store.CategoryStore) *Service {
	return &Service{categories: categories}
}

func (s *Service) Create(ctx context.Context, in Input) (*model.Category, error) {
	if err := normalize(&in); err != nil {
		return nil, err
	}

	now := time.Now()
	c := &model.Category{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, mapWriteErr("create category", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Category, error) {
	if err := normalize(&in); err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.Slug = in.Slug
	c.Description = in.Description
	c.ImageURL = in.ImageURL
	c.UpdatedAt = time.Now()

	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		return nil, mapWriteErr("update category", err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return mapWriteErr("delete category", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Category, error) {
	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, apperr.Internal("get category", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Internal("list categories", err)
	}
	return categories, nil
}

func normalize(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrInvalidName
	}
	// Generate slug from name if not provided
	if in.Slug == "" {
		in.Slug = generateSlug(in.Name)
	}
	if !slugRegex.MatchString(in.Slug) {
		return ErrInvalidSlug
	}
	return nil
}

func mapWriteErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrCategoryNotFound
	case errors.Is(err, store.ErrDuplicate):
		return ErrSlugTaken
	}
	return apperr.Internal(op, err)
}

// generateSlug creates a URL-friendly slug from a name
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = hyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
