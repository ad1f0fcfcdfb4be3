package database

import (
	"time"

	"gorm.io/gorm"
)

// SnapshotRepository handles snapshot database operations
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create stores a snapshot together with its channels
func (r *SnapshotRepository) Create(s *Snapshot) error {
	return r.db.Create(s).Error
}

// Latest returns the most recent snapshot with its channels
func (r *SnapshotRepository) Latest() (*Snapshot, error) {
	var s Snapshot
	err := r.db.Preload("Channels", orderByIndex).
		Order("created_at DESC").
		Order("id DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get retrieves a snapshot and its channels by ID
func (r *SnapshotRepository) Get(id uint) (*Snapshot, error) {
	var s Snapshot
	if err := r.db.Preload("Channels", orderByIndex).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns the most recent N snapshots without their channels
func (r *SnapshotRepository) List(limit int) ([]Snapshot, error) {
	var snapshots []Snapshot
	err := r.db.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}

// DeleteOlderThan deletes snapshots created before the specified time
// together with their channels
func (r *SnapshotRepository) DeleteOlderThan(before time.Time) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&Snapshot{}).Where("created_at < ?", before).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("snapshot_id IN ?", ids).Delete(&ChannelRecord{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&Snapshot{}, ids)
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

func orderByIndex(db *gorm.DB) *gorm.DB {
	return db.Order("channel_index ASC")
}
