package irr

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

var start = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func daysAfter(d float64) time.Time {
	return start.Add(time.Duration(d * float64(24*time.Hour)))
}

func flow(amount string, at time.Time) CashFlow {
	return CashFlow{Time: at, Amount: decimal.RequireFromString(amount)}
}

// floatNPV re-evaluates the root independently of the decimal solver
func floatNPV(flows []CashFlow, rate float64) float64 {
	sum := 0.0
	for _, f := range flows {
		amount, _ := f.Amount.Float64()
		y := f.Time.Sub(start).Hours() / 24 / 365
		sum += amount / math.Pow(1+rate, y)
	}
	return sum
}

func TestCalculateIrr(t *testing.T) {
	tests := []struct {
		name  string
		flows []CashFlow
		to    time.Time
		want  float64
	}{
		{
			name:  "Simple buy and hold, one year",
			flows: []CashFlow{flow("-1000", start), flow("1100", daysAfter(365))},
			to:    daysAfter(365),
			want:  0.10,
		},
		{
			name:  "Half year gain is annualised",
			flows: []CashFlow{flow("-1000", start), flow("1050", daysAfter(182.5))},
			to:    daysAfter(182.5),
			want:  0.1025,
		},
		{
			name:  "Loss",
			flows: []CashFlow{flow("-100", start), flow("80", daysAfter(365))},
			to:    daysAfter(365),
			want:  -0.20,
		},
		{
			name:  "Large return far from the initial guess",
			flows: []CashFlow{flow("-100", start), flow("5000", daysAfter(365))},
			to:    daysAfter(365),
			want:  49,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateIrr(tt.flows, domain.DateRange{From: start, To: tt.to})
			require.NoError(t, err)

			rate, _ := got.Float64()
			assert.InDelta(t, tt.want, rate, 1e-6)
		})
	}
}

func TestCalculateIrr_MultipleFlowsZeroesNPV(t *testing.T) {
	flows := []CashFlow{
		flow("-100", start),
		flow("-100", daysAfter(120)),
		flow("30", daysAfter(200)),
		flow("-50", daysAfter(250)),
		flow("260", daysAfter(365)),
	}

	got, err := CalculateIrr(flows, domain.DateRange{From: start, To: daysAfter(365)})
	require.NoError(t, err)

	rate, _ := got.Float64()
	assert.InDelta(t, 0, floatNPV(flows, rate), 1e-6)
	assert.Greater(t, rate, 0.0)
}

func TestCalculateIrr_Undefined(t *testing.T) {
	r := domain.DateRange{From: start, To: daysAfter(365)}

	tests := []struct {
		name  string
		flows []CashFlow
	}{
		{"No flows", nil},
		{"All zero", []CashFlow{flow("0", start), flow("0", daysAfter(365))}},
		{"Only investments", []CashFlow{flow("-100", start), flow("-50", daysAfter(30)), flow("0", daysAfter(365))}},
		{"Only proceeds", []CashFlow{flow("100", start), flow("50", daysAfter(365))}},
		{"No elapsed time", []CashFlow{flow("-100", start), flow("120", start)}},
		{"Growth beyond e^60 over the horizon", []CashFlow{flow("-1", start), flow("1000000000000000000000000000000", daysAfter(365))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateIrr(tt.flows, r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrPerformanceUndefined))
		})
	}
}

func TestCalculateIrr_ShortWindows(t *testing.T) {
	tests := []struct {
		name  string
		flows []CashFlow
		days  float64
		want  float64
	}{
		{
			name:  "Day gain of 1%",
			flows: []CashFlow{flow("-1000", start), flow("1010", daysAfter(1))},
			days:  1,
			want:  math.Pow(1.01, 365) - 1,
		},
		{
			name:  "Day gain of 2%",
			flows: []CashFlow{flow("-1000", start), flow("1020", daysAfter(1))},
			days:  1,
			want:  math.Pow(1.02, 365) - 1,
		},
		{
			name:  "Day loss of 2%",
			flows: []CashFlow{flow("-1000", start), flow("980", daysAfter(1))},
			days:  1,
			want:  math.Pow(0.98, 365) - 1,
		},
		{
			name:  "Week gain of 10%",
			flows: []CashFlow{flow("-1000", start), flow("1100", daysAfter(7))},
			days:  7,
			want:  math.Pow(1.1, 365.0/7) - 1,
		},
		{
			name:  "Week with a buy on the way",
			flows: []CashFlow{flow("-1000", start), flow("-500", daysAfter(3)), flow("1600", daysAfter(7))},
			days:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateIrr(tt.flows, domain.DateRange{From: start, To: daysAfter(tt.days)})
			require.NoError(t, err)

			rate, _ := got.Float64()
			if tt.want != 0 {
				assert.InEpsilon(t, 1+tt.want, 1+rate, 1e-6)
			}
			assert.InDelta(t, 0, floatNPV(tt.flows, rate), 1e-6)
		})
	}
}

func TestCalculateIrr_LongHorizonNearTotalLoss(t *testing.T) {
	flows := []CashFlow{flow("-1000", start), flow("1", daysAfter(50*365))}

	got, err := CalculateIrr(flows, domain.DateRange{From: start, To: daysAfter(50 * 365)})
	require.NoError(t, err)

	rate, _ := got.Float64()
	assert.InDelta(t, math.Pow(0.001, 1.0/50)-1, rate, 1e-9)
}

func TestCalculateIrr_UnorderedInput(t *testing.T) {
	ordered := []CashFlow{flow("-1000", start), flow("-500", daysAfter(100)), flow("1700", daysAfter(365))}
	shuffled := []CashFlow{ordered[2], ordered[0], ordered[1]}
	r := domain.DateRange{From: start, To: daysAfter(365)}

	a, err := CalculateIrr(ordered, r)
	require.NoError(t, err)
	b, err := CalculateIrr(shuffled, r)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, time.Duration(0), shuffled[1].Time.Sub(start), "input is not reordered")
}

func TestCashFlows(t *testing.T) {
	r := domain.DateRange{From: start, To: daysAfter(10)}
	txs := []domain.Transaction{
		{ID: uuid.New(), Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(100), Time: start},
		{ID: uuid.New(), Amount: decimal.NewFromInt(-1), Price: decimal.NewFromInt(40), Time: daysAfter(10)},
		{ID: uuid.New(), Amount: decimal.NewFromInt(2), Price: decimal.NewFromInt(50), Time: daysAfter(5)},
		{ID: uuid.New(), Amount: decimal.NewFromInt(5), Price: decimal.NewFromInt(1), Time: daysAfter(11)},
	}

	flows := CashFlows(txs, decimal.NewFromInt(100), decimal.NewFromInt(120), r)

	require.Len(t, flows, 4)
	assert.Equal(t, start, flows[0].Time)
	assert.True(t, flows[0].Amount.Equal(decimal.NewFromInt(-100)), "opening value")
	assert.True(t, flows[1].Amount.Equal(decimal.NewFromInt(-100)), "buy in range")
	assert.True(t, flows[2].Amount.Equal(decimal.NewFromInt(40)), "sell at To")
	assert.Equal(t, daysAfter(10), flows[3].Time)
	assert.True(t, flows[3].Amount.Equal(decimal.NewFromInt(120)), "closing value")

	t.Run("Zero opening value is omitted", func(t *testing.T) {
		flows := CashFlows(nil, decimal.Zero, decimal.NewFromInt(5), r)
		require.Len(t, flows, 1)
		assert.Equal(t, r.To, flows[0].Time)
	})
}
