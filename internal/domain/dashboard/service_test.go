package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/example/storefront/internal/model"
)

var now = time.Date(2026, 2, 20, 15, 0, 0, 0, time.UTC)

func newTestDashboardService(t *testing.T) (*Service, *mocks.MockStore) {
	t.Helper()
	st := mocks.NewMockStore()
	service := NewService(st, st, st)
	service.now = func() time.Time { return now }
	return service, st
}

func putOrder(st *mocks.MockStore, id string, status model.OrderStatus, total string, at time.Time, items ...model.OrderItem) {
	for i := range items {
		items[i].OrderID = id
	}
	st.PutOrder(model.Order{
		ID: id, UserID: "user-1", OrderNumber: "ORD-" + id, Status: status,
		TotalAmount: decimal.RequireFromString(total), PaymentReference: "cs_" + id, CreatedAt: at,
	}, items...)
}

func item(productID string, qty int, price string) model.OrderItem {
	return model.OrderItem{ProductID: productID, ProductName: "Product " + productID, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func addProfile(t *testing.T, st *mocks.MockStore, id string, admin bool, at time.Time) {
	t.Helper()
	require.NoError(t, st.CreateProfile(context.Background(), &model.Profile{
		ID: id, Email: id + "@example.com", IsAdmin: admin, CreatedAt: at,
	}))
}

// ============================================
// Range Tests
// ============================================

func TestParseRange(t *testing.T) {
	r, err := ParseRange("")
	require.NoError(t, err)
	assert.Equal(t, RangeWeek, r)

	r, err = ParseRange("year")
	require.NoError(t, err)
	assert.Equal(t, RangeYear, r)

	_, err = ParseRange("decade")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestRange_Since(t *testing.T) {
	assert.Equal(t, time.Date(2026, 2, 13, 15, 0, 0, 0, time.UTC), RangeWeek.Since(now))
	assert.Equal(t, time.Date(2026, 1, 20, 15, 0, 0, 0, time.UTC), RangeMonth.Since(now))
	assert.Equal(t, time.Date(2025, 2, 20, 15, 0, 0, 0, time.UTC), RangeYear.Since(now))
}

func TestRange_Since_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		now  time.Time
		want time.Time
	}{
		{"month from Mar 31 leap year", RangeMonth, time.Date(2024, 3, 31, 9, 30, 0, 0, time.UTC), time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC)},
		{"month from Mar 31", RangeMonth, time.Date(2026, 3, 31, 9, 30, 0, 0, time.UTC), time.Date(2026, 2, 28, 9, 30, 0, 0, time.UTC)},
		{"month from May 31", RangeMonth, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"month across year", RangeMonth, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)},
		{"year from Feb 29", RangeYear, time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Since(tt.now))
		})
	}
}

// ============================================
// Report Tests
// ============================================

func TestService_Report_WeekRevenueByDay(t *testing.T) {
	service, st := newTestDashboardService(t)
	putOrder(st, "o1", model.OrderStatusPaid, "100.00", now.AddDate(0, 0, -1))
	putOrder(st, "o2", model.OrderStatusPending, "50.50", now.AddDate(0, 0, -1).Add(time.Hour))
	putOrder(st, "o3", model.OrderStatusCancelled, "20.00", now.AddDate(0, 0, -3))
	putOrder(st, "old", model.OrderStatusPaid, "999.00", now.AddDate(0, 0, -8))

	report, err := service.Report(context.Background(), RangeWeek)

	require.NoError(t, err)
	require.Len(t, report.Revenue, 2)
	assert.Equal(t, "2026-02-17", report.Revenue[0].Key)
	assert.Equal(t, "19", report.Revenue[1].Label)
	assert.True(t, report.Revenue[1].Revenue.Equal(decimal.RequireFromString("150.50")))
	assert.True(t, report.Overview.TotalRevenue.Equal(decimal.RequireFromString("170.50")))
	assert.Equal(t, 3, report.Overview.OrderCount)
}

func TestService_Report_MonthSortsAcrossMonthBoundary(t *testing.T) {
	service, st := newTestDashboardService(t)
	putOrder(st, "jan", model.OrderStatusPaid, "10.00", time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC))
	putOrder(st, "feb", model.OrderStatusPaid, "20.00", time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC))

	report, err := service.Report(context.Background(), RangeMonth)

	require.NoError(t, err)
	require.Len(t, report.Revenue, 2)
	// by label alone "03" would sort before "28"
	assert.Equal(t, "28", report.Revenue[0].Label)
	assert.Equal(t, "03", report.Revenue[1].Label)
}

func TestService_Report_YearBucketsByMonthChronologically(t *testing.T) {
	service, st := newTestDashboardService(t)
	putOrder(st, "nov", model.OrderStatusPaid, "30.00", time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC))
	putOrder(st, "feb", model.OrderStatusPaid, "40.00", time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))
	putOrder(st, "feb2", model.OrderStatusPaid, "5.00", time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC))

	report, err := service.Report(context.Background(), RangeYear)

	require.NoError(t, err)
	require.Len(t, report.Revenue, 2)
	assert.Equal(t, "2025-11", report.Revenue[0].Key)
	assert.Equal(t, "Nov", report.Revenue[0].Label)
	assert.Equal(t, "Feb", report.Revenue[1].Label)
	assert.True(t, report.Revenue[1].Revenue.Equal(decimal.RequireFromString("45.00")))
}

func TestService_Report_CustomerGrowthIsCumulative(t *testing.T) {
	service, st := newTestDashboardService(t)
	addProfile(t, st, "c1", false, now.AddDate(0, 0, -5))
	addProfile(t, st, "c2", false, now.AddDate(0, 0, -5).Add(time.Minute))
	addProfile(t, st, "c3", false, now.AddDate(0, 0, -2))
	addProfile(t, st, "admin", true, now.AddDate(0, 0, -2))
	addProfile(t, st, "early", false, now.AddDate(0, 0, -30))

	report, err := service.Report(context.Background(), RangeWeek)

	require.NoError(t, err)
	require.Len(t, report.CustomerGrowth, 2)
	assert.Equal(t, GrowthPoint{Key: "2026-02-15", Label: "15", Customers: 2}, report.CustomerGrowth[0])
	assert.Equal(t, GrowthPoint{Key: "2026-02-18", Label: "18", Customers: 3}, report.CustomerGrowth[1])
	assert.Equal(t, 4, report.Overview.CustomerCount)
}

func TestService_Report_TopFiveByRevenue(t *testing.T) {
	service, st := newTestDashboardService(t)
	var items []model.OrderItem
	for i := 1; i <= 6; i++ {
		items = append(items, item(fmt.Sprintf("p%d", i), 1, fmt.Sprintf("%d.00", i*10)))
	}
	putOrder(st, "o1", model.OrderStatusPaid, "210.00", now.Add(-time.Hour), items...)
	putOrder(st, "o2", model.OrderStatusPending, "31.50", now.Add(-2*time.Hour), item("p1", 3, "10.50"))

	report, err := service.Report(context.Background(), RangeWeek)

	require.NoError(t, err)
	require.Len(t, report.TopProducts, 5)
	assert.Equal(t, "p6", report.TopProducts[0].ProductID)
	assert.Equal(t, "p5", report.TopProducts[1].ProductID)
	// p1 sold 4 units across both orders for 41.50, ahead of p4 (40.00)
	assert.Equal(t, "p1", report.TopProducts[2].ProductID)
	assert.Equal(t, 4, report.TopProducts[2].Quantity)
	assert.True(t, report.TopProducts[2].Revenue.Equal(decimal.RequireFromString("41.50")))
	assert.Equal(t, "p4", report.TopProducts[3].ProductID)
	assert.Equal(t, "p3", report.TopProducts[4].ProductID)
}

func TestService_Report_OrdersByStatus(t *testing.T) {
	service, st := newTestDashboardService(t)
	putOrder(st, "o1", model.OrderStatusPaid, "1.00", now.Add(-time.Hour))
	putOrder(st, "o2", model.OrderStatusPaid, "1.00", now.Add(-time.Hour))
	putOrder(st, "o3", model.OrderStatusPending, "1.00", now.Add(-time.Hour))

	report, err := service.Report(context.Background(), RangeWeek)

	require.NoError(t, err)
	assert.Equal(t, []StatusCount{
		{Status: model.OrderStatusPaid, Count: 2},
		{Status: model.OrderStatusPending, Count: 1},
	}, report.OrdersByStatus)
}

func TestService_Report_Empty(t *testing.T) {
	service, _ := newTestDashboardService(t)

	report, err := service.Report(context.Background(), RangeMonth)

	require.NoError(t, err)
	assert.Empty(t, report.Revenue)
	assert.Empty(t, report.TopProducts)
	assert.True(t, report.Overview.TotalRevenue.IsZero())
}

func TestService_Report_StoreFailure(t *testing.T) {
	service, st := newTestDashboardService(t)
	st.ListOrdersErr = errors.New("timeout")

	_, err := service.Report(context.Background(), RangeWeek)

	assert.ErrorIs(t, err, apperr.ErrInternal)
}
