package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutboxOps is the admin tooling around stuck or dead domain events.
type OutboxOps struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewOutboxOps(db *gorm.DB, logger *logrus.Logger) *OutboxOps {
	return &OutboxOps{db: db, logger: loggerOrDefault(logger)}
}

// ListByStatus returns up to 200 records in status, oldest first.
func (o *OutboxOps) ListByStatus(ctx context.Context, p *Principal, status string) ([]*models.OutboxRecord, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	if !models.IsOutboxPublishStatus(status) {
		return nil, utils.Validation("unknown publish status %q", status)
	}
	return models.ListOutboxRecordsByStatus(o.db.WithContext(ctx), status, 200)
}

// Replay makes a FAILED or DEAD record due again. Sent records cannot be replayed.
func (o *OutboxOps) Replay(ctx context.Context, p *Principal, recordId int) (*models.OutboxRecord, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	record, err := InTransaction(ctx, o.db, func(tx *gorm.DB) (*models.OutboxRecord, error) {
		record, err := models.FetchOutboxRecordForUpdate(tx, recordId)
		if err != nil {
			return nil, err
		}
		if record.PublishStatus != models.OutboxPublishStatusFailed && record.PublishStatus != models.OutboxPublishStatusDead {
			return nil, utils.Validation("only FAILED or DEAD records can be replayed, record is %s", record.PublishStatus)
		}
		if err := models.RequeueOutboxRecord(tx, record, time.Now().UTC()); err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		logFailure(o.logger, "OutboxOps", "Replay", logrus.Fields{"record_id": recordId}, err)
		return nil, err
	}
	o.logger.WithFields(logrus.Fields{"record_id": recordId, "replayed_by": p.UserId}).Info("outbox record requeued")
	return record, nil
}
