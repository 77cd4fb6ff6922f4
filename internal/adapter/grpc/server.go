package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/chart"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/currency"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/portfolio"
)

// Server implements the AnalyticsService gRPC server
type Server struct {
	Converter  *currency.Converter
	Portfolios *portfolio.Service
	Charts     *chart.Service

	// Now is the clock used when a request carries no time
	Now func() time.Time
}

// NewServer creates a new gRPC server instance
func NewServer(
	converter *currency.Converter,
	portfolios *portfolio.Service,
	charts *chart.Service,
) *Server {
	return &Server{
		Converter:  converter,
		Portfolios: portfolios,
		Charts:     charts,
		Now:        time.Now,
	}
}

// Convert handles the Convert RPC
func (s *Server) Convert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, err
	}

	from, err := currencyField(req, "from")
	if err != nil {
		return nil, err
	}

	to, err := currencyField(req, "to")
	if err != nil {
		return nil, err
	}

	at, err := optionalTimeField(req, "time", s.Now())
	if err != nil {
		return nil, err
	}

	converted, err := s.Converter.Convert(ctx, amount, from, to, at)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"amount":   converted.String(),
		"currency": to,
		"time":     formatTime(at),
	})
}

// GetPortfolioStatistics handles the GetPortfolioStatistics RPC
func (s *Server) GetPortfolioStatistics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}

	now, err := optionalTimeField(req, "now", s.Now())
	if err != nil {
		return nil, err
	}

	stats, err := s.Portfolios.GetPortfolioStatistics(ctx, portfolioID, now)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(statisticsToMap(stats))
}

// GetPositionChart handles the GetPositionChart RPC
func (s *Server) GetPositionChart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	positionID, err := uuidField(req, "position_id")
	if err != nil {
		return nil, err
	}

	kind, r, freq, err := chartArgs(req)
	if err != nil {
		return nil, err
	}

	var target string
	if stringField(req, "currency") != "" {
		if target, err = currencyField(req, "currency"); err != nil {
			return nil, err
		}
	}

	points, err := s.Charts.PositionChart(ctx, positionID, kind, r, freq, target)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{"points": pointsToList(points)})
}

// GetPortfolioChart handles the GetPortfolioChart RPC
func (s *Server) GetPortfolioChart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}

	kind, r, freq, err := chartArgs(req)
	if err != nil {
		return nil, err
	}

	points, err := s.Charts.PortfolioChart(ctx, portfolioID, kind, r, freq)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{"points": pointsToList(points)})
}

// chartArgs parses the kind, range and frequency shared by the chart RPCs
func chartArgs(req *structpb.Struct) (chart.Kind, domain.DateRange, domain.AggregationFrequency, error) {
	kind, err := chart.ParseKind(stringField(req, "kind"))
	if err != nil {
		return "", domain.DateRange{}, 0, status.Errorf(codes.InvalidArgument, "invalid kind: %v", err)
	}

	to, err := timeField(req, "to")
	if err != nil {
		return "", domain.DateRange{}, 0, err
	}

	// Without from the chart covers all supported history
	from := domain.OpenRange(to).From
	if stringField(req, "from") != "" {
		if from, err = timeField(req, "from"); err != nil {
			return "", domain.DateRange{}, 0, err
		}
	}

	r, err := domain.NewDateRange(from, to)
	if err != nil {
		return "", domain.DateRange{}, 0, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	freq, err := domain.ParseFrequency(stringField(req, "frequency"))
	if err != nil {
		return "", domain.DateRange{}, 0, status.Errorf(codes.InvalidArgument, "invalid frequency: %v", err)
	}

	return kind, r, freq, nil
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func decimalField(req *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "missing %s", key)
	}

	// Numbers are accepted for convenience; strings keep full precision
	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); isNumber {
		return decimal.NewFromFloat(v.GetNumberValue()), nil
	}

	d, err := decimal.NewFromString(v.GetStringValue())
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return d, nil
}

func currencyField(req *structpb.Struct, key string) (string, error) {
	code := stringField(req, key)
	if err := domain.ValidateCurrency(code); err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid %s: %v", key, err)
	}
	return code, nil
}

func uuidField(req *structpb.Struct, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(stringField(req, key))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return id, nil
}

func timeField(req *structpb.Struct, key string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, stringField(req, key))
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return t.UTC(), nil
}

func optionalTimeField(req *structpb.Struct, key string, fallback time.Time) (time.Time, error) {
	if stringField(req, key) == "" {
		return fallback.UTC(), nil
	}
	return timeField(req, key)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func pointsToList(points []domain.ChartPoint) []any {
	out := make([]any, len(points))
	for i, p := range points {
		out[i] = map[string]any{
			"time":  formatTime(p.Time),
			"value": p.Value.String(),
		}
	}
	return out
}

func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// money formats an amount rounded to the minor units of ccy
func money(d decimal.Decimal, ccy string) string {
	return d.Round(domain.CurrencyFraction(ccy)).String()
}

func windowsToList(windows []portfolio.WindowStatistics, ccy string) []any {
	out := make([]any, len(windows))
	for i, w := range windows {
		out[i] = map[string]any{
			"window":                string(w.Window),
			"from":                  formatTime(w.Range.From),
			"to":                    formatTime(w.Range.To),
			"profit":                money(w.Profit, ccy),
			"performance":           w.Performance.String(),
			"money_weighted_return": nullDecimal(w.MoneyWeightedReturn),
		}
	}
	return out
}

// statisticsToMap encodes the statistics. Totals, values, cost bases and
// profits are rounded to the portfolio currency; prices and returns are not.
func statisticsToMap(stats *portfolio.Statistics) map[string]any {
	positions := make([]any, len(stats.Positions))
	for i, p := range stats.Positions {
		positions[i] = map[string]any{
			"position_id":      p.PositionID.String(),
			"instrument_id":    p.InstrumentID.String(),
			"currency":         p.Currency,
			"holding_size":     p.HoldingSize.String(),
			"price":            p.Price.String(),
			"value":            money(p.Value, stats.Currency),
			"break_even_point": p.BreakEvenPoint.String(),
			"cost_basis":       money(p.CostBasis, stats.Currency),
			"windows":          windowsToList(p.Windows, stats.Currency),
		}
	}

	return map[string]any{
		"portfolio_id": stats.PortfolioID.String(),
		"currency":     stats.Currency,
		"time":         formatTime(stats.Time),
		"value":        money(stats.Value, stats.Currency),
		"cost_basis":   money(stats.CostBasis, stats.Currency),
		"windows":      windowsToList(stats.Windows, stats.Currency),
		"positions":    positions,
	}
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidFrequency),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, chart.ErrUnsupportedKind):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNoExchangeRateAvailable),
		errors.Is(err, domain.ErrConversionUnavailable),
		errors.Is(err, domain.ErrMissingDefaultCurrency),
		errors.Is(err, domain.ErrPerformanceUndefined):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
