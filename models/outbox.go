package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox publish statuses for OutboxRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// OutboxRecord is a domain event written in the same transaction as the change it describes.
// Publishing happens after commit, from the dispatcher.
type OutboxRecord struct {
	ID               int        `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	EventType        EventType  `gorm:"size:64;not null;index" json:"event_type"`
	AggregateType    string     `gorm:"size:32;not null" json:"aggregate_type"`
	AggregateId      int        `gorm:"not null;index" json:"aggregate_id"`
	Payload          []byte     `gorm:"type:blob" json:"payload"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	MessageId        *string    `gorm:"size:255" json:"message_id"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// WriteOutboxEvent records an event inside the caller's transaction. It does not publish.
func WriteOutboxEvent(ctx context.Context, tx *gorm.DB, eventType EventType, aggregateType string, aggregateId int, payload interface{}) error {
	data, err := utils.MarshalToJSON(payload)
	if err != nil {
		return err
	}
	record := OutboxRecord{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateId:   aggregateId,
		Payload:       []byte(data),
		CorrelationId: correlationIdFromContextOrNew(ctx),
		PublishStatus: OutboxPublishStatusPending,
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ListOutboxRecords(tx *gorm.DB, aggregateType string, aggregateId int) ([]*OutboxRecord, error) {
	var records []*OutboxRecord
	err := tx.Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, aggregateId).Order("id").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func IsOutboxPublishStatus(status string) bool {
	switch status {
	case OutboxPublishStatusPending, OutboxPublishStatusProcessing, OutboxPublishStatusSent,
		OutboxPublishStatusFailed, OutboxPublishStatusDead:
		return true
	}
	return false
}

func ListOutboxRecordsByStatus(tx *gorm.DB, status string, limit int) ([]*OutboxRecord, error) {
	var records []*OutboxRecord
	err := tx.Where("publish_status = ?", status).Order("id").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func FetchOutboxRecordForUpdate(tx *gorm.DB, id int) (*OutboxRecord, error) {
	return fetchOne[OutboxRecord](forUpdate(tx), "outbox record", id)
}

// RequeueOutboxRecord resets the retry state so the dispatcher picks the record up at next.
// The attempt counter restarts too, otherwise a DEAD record would die again on the next claim.
func RequeueOutboxRecord(tx *gorm.DB, record *OutboxRecord, next time.Time) error {
	err := tx.Model(record).Updates(map[string]interface{}{
		"publish_status":     OutboxPublishStatusFailed,
		"publish_attempts":   0,
		"next_attempt_at":    &next,
		"locked_at":          nil,
		"locked_by":          nil,
		"last_publish_error": nil,
	}).Error
	if err != nil {
		return err
	}
	record.PublishStatus = OutboxPublishStatusFailed
	record.PublishAttempts = 0
	record.NextAttemptAt = &next
	record.LockedAt, record.LockedBy, record.LastPublishError = nil, nil, nil
	return nil
}
