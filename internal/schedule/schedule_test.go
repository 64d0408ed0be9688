package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func params(start, end, firstDue time.Time, periodicity string, monthly int64) Params {
	return Params{
		TenantID:     uuid.New(),
		ContractID:   uuid.New(),
		StartDate:    start,
		EndDate:      end,
		FirstDueDate: firstDue,
		Periodicity:  periodicity,
		MonthlyValue: decimal.NewFromInt(monthly),
	}
}

func TestGenerateMonthly(t *testing.T) {
	p := params(date(2025, time.January, 15), date(2025, time.June, 15), date(2025, time.February, 1), PeriodicityMensal, 1000)

	got, err := Generate(p)
	require.NoError(t, err)
	require.Len(t, got, 6)

	wantDue := []time.Time{
		date(2025, time.February, 1),
		date(2025, time.March, 1),
		date(2025, time.April, 1),
		date(2025, time.May, 1),
		date(2025, time.June, 1),
		date(2025, time.July, 1),
	}
	for i, inst := range got {
		assert.Equal(t, i+1, inst.Sequence)
		assert.True(t, inst.DueDate.Equal(wantDue[i]), "installment %d due %s, want %s", i+1, inst.DueDate, wantDue[i])
		assert.True(t, inst.FaceValue.Equal(decimal.NewFromInt(1000)), "installment %d value %s", i+1, inst.FaceValue)
		assert.Equal(t, p.ContractID, inst.ContractID)
		assert.Equal(t, p.TenantID, inst.TenantID)
	}
}

func TestGenerateTrimestralScalesValueNotCount(t *testing.T) {
	p := params(date(2025, time.January, 15), date(2025, time.June, 15), date(2025, time.February, 1), PeriodicityTrimestral, 1000)

	got, err := Generate(p)
	require.NoError(t, err)
	require.Len(t, got, 6, "periodicity must not change the installment count")
	for _, inst := range got {
		assert.True(t, inst.FaceValue.Equal(decimal.NewFromInt(3000)))
	}
}

func TestGenerateCountInvariant(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"same month", date(2025, time.March, 1), date(2025, time.March, 31), 1},
		{"adjacent months", date(2025, time.March, 31), date(2025, time.April, 1), 2},
		{"year boundary", date(2024, time.November, 10), date(2025, time.February, 10), 4},
		{"several years", date(2023, time.January, 1), date(2025, time.December, 31), 36},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MonthsBetweenInclusive(tc.start, tc.end))
			for _, periodicity := range []string{PeriodicityMensal, PeriodicityTrimestral, PeriodicitySemestral, PeriodicityAnual} {
				got, err := Generate(params(tc.start, tc.end, tc.start, periodicity, 100))
				require.NoError(t, err)
				assert.Len(t, got, tc.want, "periodicity %s", periodicity)
			}
		})
	}
}

func TestGenerateDueDateClamping(t *testing.T) {
	p := params(date(2025, time.January, 1), date(2025, time.April, 30), date(2025, time.January, 31), PeriodicityMensal, 100)

	got, err := Generate(p)
	require.NoError(t, err)
	require.Len(t, got, 4)

	wantDue := []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
	}
	for i, inst := range got {
		assert.True(t, inst.DueDate.Equal(wantDue[i]), "installment %d due %s, want %s", i+1, inst.DueDate, wantDue[i])
	}
}

func TestGenerateTotalValueInvariant(t *testing.T) {
	p := params(date(2025, time.January, 15), date(2025, time.June, 15), date(2025, time.February, 1), PeriodicitySemestral, 250)

	got, err := Generate(p)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, inst := range got {
		sum = sum.Add(inst.FaceValue)
	}
	total, err := TotalValue(p)
	require.NoError(t, err)
	assert.True(t, sum.Equal(total), "sum %s, total %s", sum, total)
	assert.True(t, total.Equal(decimal.NewFromInt(250*6*6)))
}

func TestGenerateErrors(t *testing.T) {
	t.Run("invalid range", func(t *testing.T) {
		_, err := Generate(params(date(2025, time.June, 1), date(2025, time.May, 1), date(2025, time.June, 1), PeriodicityMensal, 100))
		assert.True(t, errors.Is(err, ErrInvalidRange))
	})
	t.Run("invalid periodicity", func(t *testing.T) {
		_, err := Generate(params(date(2025, time.January, 1), date(2025, time.June, 1), date(2025, time.January, 1), "quinzenal", 100))
		assert.True(t, errors.Is(err, ErrInvalidPeriodicity))
	})
}
