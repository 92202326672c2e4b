package repository

import (
	"errors"
	"time"

	emaildomain "triagely-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageRepository implements MessageRepository on Postgres.
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

// InsertIfAbsent relies on ON CONFLICT DO NOTHING against the composite
// primary key, so concurrent writers for the same thread race safely: the
// first insert wins and every later one reports inserted=false.
func (r *messageRepository) InsertIfAbsent(msg *emaildomain.Message) (bool, error) {
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
		DoNothing: true,
	}).Create(msg)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *messageRepository) Exists(userID, messageID string) (bool, error) {
	var count int64
	err := r.db.Model(&emaildomain.Message{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *messageRepository) GetByID(userID, messageID string) (*emaildomain.Message, error) {
	var msg emaildomain.Message
	err := r.db.Where("user_id = ? AND message_id = ?", userID, messageID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListRecent(userID string, limit int) ([]*emaildomain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []*emaildomain.Message
	err := r.db.Where("user_id = ?", userID).
		Order("date_iso DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// UpdateEnrichment only selects the columns actually provided, so setting a
// summary never clears a checklist written earlier (and vice versa).
func (r *messageRepository) UpdateEnrichment(userID, messageID string, summary, checklist []string) error {
	columns := []string{"updated_at"}
	if summary != nil {
		columns = append(columns, "ai_summary")
	}
	if checklist != nil {
		columns = append(columns, "ai_checklist")
	}
	return r.db.Model(&emaildomain.Message{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Select(columns).
		Updates(&emaildomain.Message{
			AiSummary:   summary,
			AiChecklist: checklist,
			UpdatedAt:   time.Now(),
		}).Error
}
