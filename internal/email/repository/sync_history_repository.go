package repository

import (
	"time"

	emaildomain "triagely-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// syncHistoryRepository implements SyncHistoryRepository on Postgres.
type syncHistoryRepository struct {
	db *gorm.DB
}

// NewSyncHistoryRepository creates a new instance of syncHistoryRepository
func NewSyncHistoryRepository(db *gorm.DB) SyncHistoryRepository {
	return &syncHistoryRepository{
		db: db,
	}
}

func (r *syncHistoryRepository) Record(history *emaildomain.SyncHistory) error {
	if history.ID == "" {
		history.ID = uuid.New().String()
	}
	history.CreatedAt = time.Now()
	return r.db.Create(history).Error
}

func (r *syncHistoryRepository) ListRecent(userID string, limit int) ([]*emaildomain.SyncHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []*emaildomain.SyncHistory
	err := r.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
