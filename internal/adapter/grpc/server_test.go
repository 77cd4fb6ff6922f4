package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-analytics/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-analytics/internal/common"
	"github.com/simaogato/wealthflow-analytics/internal/domain"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/chart"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/currency"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/portfolio"
)

func day(d int) time.Time {
	return time.Date(2022, 1, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type testEnv struct {
	client      *AnalyticsServiceClient
	portfolioID uuid.UUID
	positionID  uuid.UUID
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()

	p := domain.Portfolio{ID: uuid.New(), Name: "Main", Currency: "EUR"}
	store.AddPortfolio(p)

	eurInstrument, usdInstrument := uuid.New(), uuid.New()
	eurPos := domain.Position{
		ID: uuid.New(), PortfolioID: p.ID, InstrumentID: eurInstrument, Currency: "EUR",
		Transactions: []domain.Transaction{{ID: uuid.New(), Amount: dec("1"), Price: dec("100"), Time: day(1)}},
	}
	usdPos := domain.Position{
		ID: uuid.New(), PortfolioID: p.ID, InstrumentID: usdInstrument, Currency: "USD",
		Transactions: []domain.Transaction{{ID: uuid.New(), Amount: dec("2"), Price: dec("10"), Time: day(2)}},
	}
	store.AddPosition(eurPos)
	store.AddPosition(usdPos)
	store.AddPrices(
		domain.PricePoint{InstrumentID: eurInstrument, Price: dec("150"), Time: day(3)},
		domain.PricePoint{InstrumentID: usdInstrument, Price: dec("20"), Time: day(3)},
	)
	store.AddRates(domain.ExchangeRate{From: "EUR", To: "USD", Rate: dec("2"), Time: day(1).AddDate(-1, 0, 0)})

	logger := common.NewSilentLogger()
	converter := currency.NewConverter(store.Rates(), "EUR")
	portfolios := portfolio.NewPortfolioService(store.Portfolios(), store.Positions(), store.Prices(), converter, logger, 2)
	server := NewServer(converter, portfolios, chart.NewChartService(portfolios, logger))
	server.Now = func() time.Time { return day(3) }

	lis := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(CallInterceptor(logger)))
	RegisterAnalyticsServiceServer(grpcServer, server)

	go func() {
		_ = grpcServer.Serve(lis)
	}()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testEnv{
		client:      NewAnalyticsServiceClient(conn),
		portfolioID: p.ID,
		positionID:  eurPos.ID,
	}
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func assertDecimalField(t *testing.T, s *structpb.Struct, key, want string) {
	t.Helper()
	got, err := decimal.NewFromString(s.GetFields()[key].GetStringValue())
	require.NoError(t, err, "field %s", key)
	assert.True(t, got.Equal(dec(want)), "%s: got %s, want %s", key, got, want)
}

func TestServer_Convert(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	t.Run("Direct rate", func(t *testing.T) {
		resp, err := env.client.Convert(ctx, request(t, map[string]any{
			"amount": "10.5", "from": "EUR", "to": "USD", "time": day(2).Format(time.RFC3339),
		}))
		require.NoError(t, err)
		assertDecimalField(t, resp, "amount", "21")
		assert.Equal(t, "USD", resp.GetFields()["currency"].GetStringValue())
	})

	t.Run("Inverse rate at the server clock", func(t *testing.T) {
		resp, err := env.client.Convert(ctx, request(t, map[string]any{
			"amount": "10", "from": "USD", "to": "EUR",
		}))
		require.NoError(t, err)
		assertDecimalField(t, resp, "amount", "5")
		assert.Equal(t, day(3).Format(time.RFC3339Nano), resp.GetFields()["time"].GetStringValue())
	})

	tests := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"Bad amount", map[string]any{"amount": "ten", "from": "EUR", "to": "USD"}, codes.InvalidArgument},
		{"Missing amount", map[string]any{"from": "EUR", "to": "USD"}, codes.InvalidArgument},
		{"Unknown currency", map[string]any{"amount": "1", "from": "EUR", "to": "ZZZ"}, codes.InvalidArgument},
		{"No rate", map[string]any{"amount": "1", "from": "EUR", "to": "CHF"}, codes.FailedPrecondition},
		{"Bad time", map[string]any{"amount": "1", "from": "EUR", "to": "USD", "time": "yesterday"}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.Convert(ctx, request(t, tt.req))
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestServer_GetPortfolioStatistics(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	resp, err := env.client.GetPortfolioStatistics(ctx, request(t, map[string]any{
		"portfolio_id": env.portfolioID.String(),
	}))
	require.NoError(t, err)

	assert.Equal(t, "EUR", resp.GetFields()["currency"].GetStringValue())
	assertDecimalField(t, resp, "value", "170")
	assertDecimalField(t, resp, "cost_basis", "110")

	windows := resp.GetFields()["windows"].GetListValue().GetValues()
	require.Len(t, windows, len(portfolio.StatisticsWindows))
	total := windows[len(windows)-1].GetStructValue()
	assert.Equal(t, "total", total.GetFields()["window"].GetStringValue())
	assertDecimalField(t, total, "profit", "60")

	positions := resp.GetFields()["positions"].GetListValue().GetValues()
	require.Len(t, positions, 2)
	assert.Equal(t, env.positionID.String(), positions[0].GetStructValue().GetFields()["position_id"].GetStringValue())

	t.Run("Unknown portfolio", func(t *testing.T) {
		_, err := env.client.GetPortfolioStatistics(ctx, request(t, map[string]any{"portfolio_id": uuid.NewString()}))
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("Malformed id", func(t *testing.T) {
		_, err := env.client.GetPortfolioStatistics(ctx, request(t, map[string]any{"portfolio_id": "abc"}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestServer_Charts(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()
	from := day(1).AddDate(0, 0, -2).Format(time.RFC3339)
	to := day(3).Format(time.RFC3339)

	t.Run("Position value", func(t *testing.T) {
		resp, err := env.client.GetPositionChart(ctx, request(t, map[string]any{
			"position_id": env.positionID.String(), "kind": "value", "from": from, "to": to, "frequency": "daily",
		}))
		require.NoError(t, err)

		points := resp.GetFields()["points"].GetListValue().GetValues()
		require.Len(t, points, 2)
		assertDecimalField(t, points[0].GetStructValue(), "value", "100")
		assertDecimalField(t, points[1].GetStructValue(), "value", "150")
		assert.Equal(t, day(3).Format(time.RFC3339Nano), points[1].GetStructValue().GetFields()["time"].GetStringValue())
	})

	t.Run("Position value without from covers all history", func(t *testing.T) {
		resp, err := env.client.GetPositionChart(ctx, request(t, map[string]any{
			"position_id": env.positionID.String(), "kind": "value", "to": to, "frequency": "day",
		}))
		require.NoError(t, err)

		points := resp.GetFields()["points"].GetListValue().GetValues()
		require.Len(t, points, 2)
		assert.Equal(t, day(2).Format(time.RFC3339Nano), points[0].GetStructValue().GetFields()["time"].GetStringValue())
		assertDecimalField(t, points[1].GetStructValue(), "value", "150")
	})

	t.Run("Position value in another currency", func(t *testing.T) {
		resp, err := env.client.GetPositionChart(ctx, request(t, map[string]any{
			"position_id": env.positionID.String(), "kind": "value", "from": from, "to": to, "frequency": "day", "currency": "USD",
		}))
		require.NoError(t, err)

		points := resp.GetFields()["points"].GetListValue().GetValues()
		require.Len(t, points, 2)
		assertDecimalField(t, points[1].GetStructValue(), "value", "300")
	})

	t.Run("Portfolio value", func(t *testing.T) {
		resp, err := env.client.GetPortfolioChart(ctx, request(t, map[string]any{
			"portfolio_id": env.portfolioID.String(), "kind": "value", "from": from, "to": to, "frequency": "day",
		}))
		require.NoError(t, err)

		points := resp.GetFields()["points"].GetListValue().GetValues()
		require.NotEmpty(t, points)
		assertDecimalField(t, points[len(points)-1].GetStructValue(), "value", "170")
	})

	tests := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"Unknown kind", map[string]any{"kind": "volume", "from": from, "to": to, "frequency": "day"}, codes.InvalidArgument},
		{"Unknown frequency", map[string]any{"kind": "value", "from": from, "to": to, "frequency": "fortnight"}, codes.InvalidArgument},
		{"Missing to", map[string]any{"kind": "value", "from": from, "frequency": "day"}, codes.InvalidArgument},
		{"Inverted range", map[string]any{"kind": "value", "from": to, "to": from, "frequency": "day"}, codes.InvalidArgument},
		{"Break even for a portfolio", map[string]any{"kind": "break_even", "from": from, "to": to, "frequency": "day"}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req["portfolio_id"] = env.portfolioID.String()
			_, err := env.client.GetPortfolioChart(ctx, request(t, tt.req))
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestStatisticsToMap_RoundsMoneyToCurrency(t *testing.T) {
	window := portfolio.WindowStatistics{
		Window:              portfolio.WindowDay,
		Range:               domain.DateRange{From: day(1), To: day(2)},
		Profit:              dec("1.005"),
		Performance:         dec("0.123456789"),
		MoneyWeightedReturn: decimal.NullDecimal{Decimal: dec("0.5"), Valid: true},
	}

	tests := []struct {
		currency string
		value    string
		profit   string
	}{
		{"EUR", "170.33", "1.01"},
		{"JPY", "170", "1"},
		{"BHD", "170.333", "1.005"},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			stats := &portfolio.Statistics{
				PortfolioID: uuid.New(),
				Currency:    tt.currency,
				Time:        day(2),
				Value:       dec("170.3333333"),
				CostBasis:   dec("110"),
				Windows:     []portfolio.WindowStatistics{window},
				Positions: []portfolio.PositionStatistics{{
					PositionID:     uuid.New(),
					Currency:       "USD",
					HoldingSize:    dec("3"),
					Price:          dec("56.7777777"),
					Value:          dec("170.3333333"),
					BreakEvenPoint: dec("36.6666666"),
					CostBasis:      dec("110"),
					Windows:        []portfolio.WindowStatistics{window},
				}},
			}

			out, err := newStruct(statisticsToMap(stats))
			require.NoError(t, err)

			assertDecimalField(t, out, "value", tt.value)
			assertDecimalField(t, out, "cost_basis", "110")

			w := out.GetFields()["windows"].GetListValue().GetValues()[0].GetStructValue()
			assertDecimalField(t, w, "profit", tt.profit)
			assertDecimalField(t, w, "performance", "0.123456789")

			p := out.GetFields()["positions"].GetListValue().GetValues()[0].GetStructValue()
			assertDecimalField(t, p, "value", tt.value)
			assertDecimalField(t, p, "price", "56.7777777")
			assertDecimalField(t, p, "break_even_point", "36.6666666")
		})
	}
}
