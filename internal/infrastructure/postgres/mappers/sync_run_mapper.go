package mappers

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

func ToGORMSyncRun(run *domain.SyncRunSummary) (*models.SyncRunModel, error) {
	skipped, err := json.Marshal(run.Trades.Skipped)
	if err != nil {
		return nil, err
	}
	matches, err := json.Marshal(run.Trades.Matches)
	if err != nil {
		return nil, err
	}
	return &models.SyncRunModel{
		ID:             run.ID,
		Trigger:        string(run.Trigger),
		WindowSeconds:  int64(run.Window / time.Second),
		Partners:       run.Partners,
		PartnersFailed: run.PartnersFailed,
		Accounts:       run.Accounts,
		AccountsFailed: run.AccountsFailed,
		Received:       run.Trades.Received,
		Stored:         run.Trades.Stored,
		Skipped:        datatypes.JSON(skipped),
		Matches:        datatypes.JSON(matches),
		Canceled:       run.Canceled,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	}, nil
}

func ToDomainSyncRun(model *models.SyncRunModel) (*domain.SyncRunSummary, error) {
	stats := domain.NewUpsertStats()
	stats.Received = model.Received
	stats.Stored = model.Stored
	if len(model.Skipped) > 0 {
		if err := json.Unmarshal(model.Skipped, &stats.Skipped); err != nil {
			return nil, err
		}
	}
	if len(model.Matches) > 0 {
		if err := json.Unmarshal(model.Matches, &stats.Matches); err != nil {
			return nil, err
		}
	}
	return &domain.SyncRunSummary{
		ID:             model.ID,
		Trigger:        domain.SyncTrigger(model.Trigger),
		Window:         time.Duration(model.WindowSeconds) * time.Second,
		Partners:       model.Partners,
		PartnersFailed: model.PartnersFailed,
		Accounts:       model.Accounts,
		AccountsFailed: model.AccountsFailed,
		Trades:         stats,
		Canceled:       model.Canceled,
		StartedAt:      model.StartedAt,
		FinishedAt:     model.FinishedAt,
	}, nil
}
