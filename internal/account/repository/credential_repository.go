package repository

import (
	"context"
	"errors"
	"time"

	accountdomain "triagely-backend/internal/account/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const listPageSize = 200

// credentialRepository implements CredentialRepository on Postgres.
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new instance of credentialRepository
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{
		db: db,
	}
}

func (r *credentialRepository) Get(userID, accountKey string) (*accountdomain.Credential, error) {
	var cred accountdomain.Credential
	err := r.db.Where("user_id = ? AND account_key = ?", userID, accountKey).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) Put(cred *accountdomain.Credential) error {
	now := time.Now()
	if cred.ConnectedAt.IsZero() {
		cred.ConnectedAt = now
	}
	cred.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "account_key"}},
		UpdateAll: true,
	}).Create(cred).Error
}

// UpdateAccessToken touches only the access-token fields so a concurrent
// full Put can never lose the refresh token to a stale read-modify-write.
func (r *credentialRepository) UpdateAccessToken(userID, accountKey, accessToken string, expiresAt time.Time) error {
	return r.db.Model(&accountdomain.Credential{}).
		Where("user_id = ? AND account_key = ?", userID, accountKey).
		Updates(map[string]interface{}{
			"access_token": accessToken,
			"expires_at":   expiresAt,
			"updated_at":   time.Now(),
		}).Error
}

func (r *credentialRepository) ListAccounts(userID string) ([]string, error) {
	var keys []string
	err := r.db.Model(&accountdomain.Credential{}).
		Where("user_id = ? AND account_key LIKE ?", userID, accountdomain.AccountKeyPrefix+"%").
		Order("account_key").
		Pluck("account_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// ListAllAccounts pages through the credential table with a keyset cursor
// on the (user_id, account_key) primary key.
func (r *credentialRepository) ListAllAccounts(ctx context.Context) ([]accountdomain.AccountRef, error) {
	var out []accountdomain.AccountRef
	lastUser, lastKey := "", ""

	for {
		var page []accountdomain.AccountRef
		err := r.db.WithContext(ctx).Model(&accountdomain.Credential{}).
			Select("user_id", "account_key").
			Where("account_key LIKE ?", accountdomain.AccountKeyPrefix+"%").
			Where("(user_id, account_key) > (?, ?)", lastUser, lastKey).
			Order("user_id, account_key").
			Limit(listPageSize).
			Find(&page).Error
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < listPageSize {
			return out, nil
		}
		last := page[len(page)-1]
		lastUser, lastKey = last.UserID, last.AccountKey
	}
}

func (r *credentialRepository) Delete(userID, accountKey string) error {
	return r.db.Where("user_id = ? AND account_key = ?", userID, accountKey).
		Delete(&accountdomain.Credential{}).Error
}
