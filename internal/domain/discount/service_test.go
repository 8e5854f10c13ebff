package discount

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/example/storefront/internal/model"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestDiscountService(t *testing.T) (*Service, *mocks.MockStore) {
	t.Helper()
	st := mocks.NewMockStore()
	for _, id := range []string{"p-a", "p-b", "p-c"} {
		require.NoError(t, st.CreateProduct(context.Background(), &model.Product{
			ID: id, Name: id, Price: decimal.NewFromInt(50), Stock: 5,
		}))
	}
	s := NewService(st, st)
	s.now = func() time.Time { return fixedNow }
	return s, st
}

func discountOf(t *testing.T, st *mocks.MockStore, id string) *int {
	t.Helper()
	p, err := st.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.DiscountPercentage
}

func TestLive(t *testing.T) {
	before := fixedNow.Add(-time.Hour)
	after := fixedNow.Add(time.Hour)

	tests := []struct {
		name string
		d    model.Discount
		live bool
	}{
		{"inactive", model.Discount{IsActive: false}, false},
		{"active no window", model.Discount{IsActive: true}, true},
		{"not started", model.Discount{IsActive: true, StartsAt: &after}, false},
		{"ended", model.Discount{IsActive: true, EndsAt: &before}, false},
		{"inside window", model.Discount{IsActive: true, StartsAt: &before, EndsAt: &after}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.live, Live(&tt.d, fixedNow))
		})
	}
}

func TestService_Create_AppliesToProducts(t *testing.T) {
	service, st := newTestDiscountService(t)

	d, err := service.Create(context.Background(), Input{
		Name: "Summer", Percentage: 10, ProductIDs: []string{"p-a", "p-b", "p-a"}, IsActive: true,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"p-a", "p-b"}, d.ProductIDs)
	require.NotNil(t, discountOf(t, st, "p-a"))
	assert.Equal(t, 10, *discountOf(t, st, "p-a"))
	assert.Equal(t, 10, *discountOf(t, st, "p-b"))
	assert.Nil(t, discountOf(t, st, "p-c"))
}

func TestService_Create_InactiveDoesNotApply(t *testing.T) {
	service, st := newTestDiscountService(t)

	_, err := service.Create(context.Background(), Input{
		Name: "Later", Percentage: 20, ProductIDs: []string{"p-a"}, IsActive: false,
	})

	require.NoError(t, err)
	assert.Nil(t, discountOf(t, st, "p-a"))
}

func TestService_Create_Validation(t *testing.T) {
	service, _ := newTestDiscountService(t)
	start := fixedNow
	end := fixedNow.Add(-time.Minute)

	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{"empty name", Input{Percentage: 10, ProductIDs: []string{"p-a"}}, ErrInvalidName},
		{"zero percentage", Input{Name: "x", Percentage: 0, ProductIDs: []string{"p-a"}}, ErrInvalidPercentage},
		{"over 100", Input{Name: "x", Percentage: 101, ProductIDs: []string{"p-a"}}, ErrInvalidPercentage},
		{"no products", Input{Name: "x", Percentage: 5}, ErrNoProducts},
		{"bad window", Input{Name: "x", Percentage: 5, ProductIDs: []string{"p-a"}, StartsAt: &start, EndsAt: &end}, ErrInvalidWindow},
		{"unknown product", Input{Name: "x", Percentage: 5, ProductIDs: []string{"nope"}}, apperr.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Update_ClearsDroppedProducts(t *testing.T) {
	service, st := newTestDiscountService(t)
	ctx := context.Background()

	d, err := service.Create(ctx, Input{Name: "Summer", Percentage: 10, ProductIDs: []string{"p-a", "p-b"}, IsActive: true})
	require.NoError(t, err)

	_, err = service.Update(ctx, d.ID, Input{Name: "Summer", Percentage: 25, ProductIDs: []string{"p-b", "p-c"}, IsActive: true})
	require.NoError(t, err)

	assert.Nil(t, discountOf(t, st, "p-a"))
	assert.Equal(t, 25, *discountOf(t, st, "p-b"))
	assert.Equal(t, 25, *discountOf(t, st, "p-c"))
}

func TestService_Update_DeactivateClears(t *testing.T) {
	service, st := newTestDiscountService(t)
	ctx := context.Background()

	d, err := service.Create(ctx, Input{Name: "Summer", Percentage: 10, ProductIDs: []string{"p-a"}, IsActive: true})
	require.NoError(t, err)

	_, err = service.Update(ctx, d.ID, Input{Name: "Summer", Percentage: 10, ProductIDs: []string{"p-a"}, IsActive: false})
	require.NoError(t, err)
	assert.Nil(t, discountOf(t, st, "p-a"))
}

func TestService_Delete_ClearsProducts(t *testing.T) {
	service, st := newTestDiscountService(t)
	ctx := context.Background()

	d, err := service.Create(ctx, Input{Name: "Summer", Percentage: 10, ProductIDs: []string{"p-a"}, IsActive: true})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, d.ID))
	assert.Nil(t, discountOf(t, st, "p-a"))
	assert.ErrorIs(t, service.Delete(ctx, d.ID), ErrDiscountNotFound)
}

func TestService_Reconcile_ClearsExpiredPromotion(t *testing.T) {
	service, st := newTestDiscountService(t)
	ctx := context.Background()

	ends := fixedNow.Add(24 * time.Hour)
	_, err := service.Create(ctx, Input{Name: "Flash", Percentage: 15, ProductIDs: []string{"p-a"}, IsActive: true, EndsAt: &ends})
	require.NoError(t, err)
	require.NotNil(t, discountOf(t, st, "p-a"))
	assert.Equal(t, 15, *discountOf(t, st, "p-a"))

	service.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	require.NoError(t, service.Reconcile(ctx))
	assert.Nil(t, discountOf(t, st, "p-a"))
}

func TestService_Reconcile_AppliesOnceStarted(t *testing.T) {
	service, st := newTestDiscountService(t)
	ctx := context.Background()

	starts := fixedNow.Add(time.Hour)
	_, err := service.Create(ctx, Input{Name: "Midnight", Percentage: 30, ProductIDs: []string{"p-b"}, IsActive: true, StartsAt: &starts})
	require.NoError(t, err)
	assert.Nil(t, discountOf(t, st, "p-b"))

	service.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	require.NoError(t, service.Reconcile(ctx))
	require.NotNil(t, discountOf(t, st, "p-b"))
	assert.Equal(t, 30, *discountOf(t, st, "p-b"))
}

func TestService_OverlappingPromotions_KeepHighest(t *testing.T) {
	service, st := newTestDiscountService(t)
	ctx := context.Background()

	big, err := service.Create(ctx, Input{Name: "Big", Percentage: 20, ProductIDs: []string{"p-c"}, IsActive: true})
	require.NoError(t, err)
	_, err = service.Create(ctx, Input{Name: "Small", Percentage: 10, ProductIDs: []string{"p-c", "p-a"}, IsActive: true})
	require.NoError(t, err)

	assert.Equal(t, 20, *discountOf(t, st, "p-c"))
	assert.Equal(t, 10, *discountOf(t, st, "p-a"))

	require.NoError(t, service.Delete(ctx, big.ID))
	require.NotNil(t, discountOf(t, st, "p-c"))
	assert.Equal(t, 10, *discountOf(t, st, "p-c"))
}

func TestService_Update_DeactivateFallsBackToOtherPromotion(t *testing.T) {
	service, st := newTestDiscountService(t)
	ctx := context.Background()

	big, err := service.Create(ctx, Input{Name: "Big", Percentage: 40, ProductIDs: []string{"p-b"}, IsActive: true})
	require.NoError(t, err)
	_, err = service.Create(ctx, Input{Name: "Small", Percentage: 5, ProductIDs: []string{"p-b"}, IsActive: true})
	require.NoError(t, err)

	_, err = service.Update(ctx, big.ID, Input{Name: "Big", Percentage: 40, ProductIDs: []string{"p-b"}, IsActive: false})
	require.NoError(t, err)
	assert.Equal(t, 5, *discountOf(t, st, "p-b"))
}

func TestService_Run_StopsOnCancel(t *testing.T) {
	service, _ := newTestDiscountService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		service.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
