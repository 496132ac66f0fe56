package services_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finledger/internal/core"
	"finledger/internal/services"
	mock_services "finledger/internal/services/mocks"
	"finledger/internal/storage"
)

func newOverviewService(t *testing.T) (*services.OverviewService, *mock_services.MockOverviewStore) {
	ctrl := gomock.NewController(t)
	store := mock_services.NewMockOverviewStore(ctrl)
	return services.NewOverviewService(store, nil), store
}

func TestOverviewService_Overview(t *testing.T) {
	svc, store := newOverviewService(t)
	asOf := core.NewDate(2025, 3, 15)

	store.EXPECT().LoadOverviewSnapshot(gomock.Any(), "", asOf).Return(storage.OverviewSnapshot{
		Revision: 9,
		Balances: []storage.LatestBalancesRow{
			{CompanyID: "beta", OccurredOn: "2025-02-28", AmountMinor: 5000, Currency: "CNY"},
		},
		Revenue: []storage.MonthTotalRow{
			{CompanyID: "acme", Month: "2025-03", AmountMinor: 500, Currency: "CNY"},
			{CompanyID: "beta", Month: "2025-01", AmountMinor: 40, Currency: "USD"},
		},
		Expense: []storage.MonthTotalRow{
			{CompanyID: "acme", Month: "2025-02", AmountMinor: 80, Currency: "CNY"},
		},
		Forecasts: []storage.ForecastTotalRow{
			{CompanyID: "acme", Certainty: "certain", AmountMinor: 50, Currency: "CNY"},
			{CompanyID: "acme", Certainty: "uncertain", AmountMinor: 7, Currency: "CNY"},
			{CompanyID: "gamma", Certainty: "maybe", AmountMinor: 1, Currency: "CNY"},
		},
	}, nil)

	ov, err := svc.Overview(context.Background(), services.OverviewQuery{AsOf: asOf})
	require.NoError(t, err)
	assert.EqualValues(t, 9, ov.Revision)
	require.Len(t, ov.Companies, 3)

	acme := ov.Companies[0]
	assert.Equal(t, "acme", acme.CompanyID)
	assert.Nil(t, acme.Balance)
	require.NotNil(t, acme.Revenue)
	assert.Equal(t, "2025-03", acme.Revenue.Month.String())
	assert.EqualValues(t, 500, acme.Revenue.Minor)
	require.NotNil(t, acme.Expense)
	assert.EqualValues(t, 80, acme.Expense.Minor)
	assert.Equal(t, services.ForecastTotals{Certain: 50, Uncertain: 7, Currency: "CNY"}, acme.Forecast)

	beta := ov.Companies[1]
	require.NotNil(t, beta.Balance)
	assert.Equal(t, "2025-02-28", beta.Balance.Date.String())
	assert.EqualValues(t, 5000, beta.Balance.Minor)
	assert.Equal(t, "USD", beta.Revenue.Currency)
	assert.Nil(t, beta.Expense)

	gamma := ov.Companies[2]
	assert.Zero(t, gamma.Forecast.Certain)
	assert.Zero(t, gamma.Forecast.Uncertain)
}

func TestOverviewService_RequestedCompanyIsListed(t *testing.T) {
	svc, store := newOverviewService(t)
	asOf := core.NewDate(2025, 3, 15)
	store.EXPECT().LoadOverviewSnapshot(gomock.Any(), "nobody", asOf).Return(storage.OverviewSnapshot{}, nil)

	ov, err := svc.Overview(context.Background(), services.OverviewQuery{CompanyID: "nobody", AsOf: asOf})
	require.NoError(t, err)
	require.Len(t, ov.Companies, 1)
	assert.Equal(t, "nobody", ov.Companies[0].CompanyID)
	assert.Nil(t, ov.Companies[0].Balance)
}

func TestOverviewService_Errors(t *testing.T) {
	svc, store := newOverviewService(t)
	ctx := context.Background()

	_, err := svc.Overview(ctx, services.OverviewQuery{})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "asOf", verr.Field)

	asOf := core.NewDate(2025, 3, 15)
	store.EXPECT().LoadOverviewSnapshot(gomock.Any(), "", asOf).Return(storage.OverviewSnapshot{}, errors.New("disk I/O error"))
	_, err = svc.Overview(ctx, services.OverviewQuery{AsOf: asOf})
	assert.ErrorContains(t, err, "load overview snapshot")

	store.EXPECT().LoadOverviewSnapshot(gomock.Any(), "", asOf).Return(storage.OverviewSnapshot{
		Balances: []storage.LatestBalancesRow{
			{CompanyID: "acme", OccurredOn: "2025-02-28", AmountMinor: math.MaxInt64, Currency: "CNY"},
			{CompanyID: "acme", OccurredOn: "2025-02-28", AmountMinor: 1, Currency: "CNY"},
		},
	}, nil)
	_, err = svc.Overview(ctx, services.OverviewQuery{AsOf: asOf})
	assert.ErrorIs(t, err, core.ErrAmountOverflow)
}
