package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/models"
)

// ErrInvalidRange is returned when the contract end date precedes its start date.
var ErrInvalidRange = errors.New("end date before start date")

// ErrInvalidPeriodicity is returned for an unrecognized periodicity.
var ErrInvalidPeriodicity = errors.New("invalid periodicity")

// Billing periodicities. The multiplier scales the per-installment value;
// it does not change the installment count, which is always one per month
// of the contract range. A trimestral contract still bills monthly, each
// installment worth three months of base value.
const (
	PeriodicityMensal     = "mensal"
	PeriodicityTrimestral = "trimestral"
	PeriodicitySemestral  = "semestral"
	PeriodicityAnual      = "anual"
)

var periodMultipliers = map[string]int64{
	PeriodicityMensal:     1,
	PeriodicityTrimestral: 3,
	PeriodicitySemestral:  6,
	PeriodicityAnual:      12,
}

// Multiplier returns the per-installment value multiplier for a periodicity.
func Multiplier(periodicity string) (int64, error) {
	m, ok := periodMultipliers[periodicity]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriodicity, periodicity)
	}
	return m, nil
}

// MonthsBetweenInclusive counts calendar months touched by [start, end],
// including both boundary months. Jan 15 to Jun 15 is 6 months.
func MonthsBetweenInclusive(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}

// Params describe one contract or quote to expand.
type Params struct {
	TenantID     uuid.UUID
	ContractID   uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
	FirstDueDate time.Time
	Periodicity  string
	MonthlyValue decimal.Decimal
}

// addMonthsClamped advances d by n calendar months, keeping the day of
// month and clamping it to the last day of shorter months. Plain AddDate
// would roll Jan 31 + 1 month over into March.
func addMonthsClamped(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, d.Location())
}

// Generate expands a contract into its installment schedule: one
// installment per month of the contract range, each due one calendar month
// after the previous (same day of month, clamped to shorter months), each
// valued at the monthly base times the periodicity multiplier.
func Generate(p Params) ([]models.Installment, error) {
	if p.EndDate.Before(p.StartDate) {
		return nil, fmt.Errorf("%w: start %s, end %s",
			ErrInvalidRange, p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
	}
	mult, err := Multiplier(p.Periodicity)
	if err != nil {
		return nil, err
	}

	count := MonthsBetweenInclusive(p.StartDate, p.EndDate)
	value := p.MonthlyValue.Mul(decimal.NewFromInt(mult))

	installments := make([]models.Installment, count)
	for i := 0; i < count; i++ {
		installments[i] = models.Installment{
			ID:         uuid.New(),
			TenantID:   p.TenantID,
			ContractID: p.ContractID,
			Sequence:   i + 1,
			DueDate:    addMonthsClamped(p.FirstDueDate, i),
			FaceValue:  value,
		}
	}
	return installments, nil
}

// TotalValue is the sum of all face values the schedule will carry.
func TotalValue(p Params) (decimal.Decimal, error) {
	if p.EndDate.Before(p.StartDate) {
		return decimal.Zero, fmt.Errorf("%w: start %s, end %s",
			ErrInvalidRange, p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
	}
	mult, err := Multiplier(p.Periodicity)
	if err != nil {
		return decimal.Zero, err
	}
	months := int64(MonthsBetweenInclusive(p.StartDate, p.EndDate))
	return p.MonthlyValue.Mul(decimal.NewFromInt(mult)).Mul(decimal.NewFromInt(months)), nil
}
