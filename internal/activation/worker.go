package activation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// GenerateScheduleArgs asks the worker to expand one activated contract
// into its installment schedule.
type GenerateScheduleArgs struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	ContractID uuid.UUID `json:"contract_id"`
}

func (GenerateScheduleArgs) Kind() string { return "generate_installments" }

// ContractService defines the contract the worker needs.
type ContractService interface {
	MaterializeSchedule(ctx context.Context, tenantID, contractID uuid.UUID) error
}

type GenerateScheduleWorker struct {
	river.WorkerDefaults[GenerateScheduleArgs]
	contracts ContractService
}

func NewGenerateScheduleWorker(contracts ContractService) *GenerateScheduleWorker {
	return &GenerateScheduleWorker{contracts: contracts}
}

// Work regenerates the full schedule. MaterializeSchedule deletes and
// recreates, so River retries are safe.
func (w *GenerateScheduleWorker) Work(ctx context.Context, job *river.Job[GenerateScheduleArgs]) error {
	args := job.Args
	if err := w.contracts.MaterializeSchedule(ctx, args.TenantID, args.ContractID); err != nil {
		return fmt.Errorf("generate installments for contract %s: %w", args.ContractID, err)
	}
	return nil
}
