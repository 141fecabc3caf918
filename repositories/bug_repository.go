package repositories

import (
	"bugbase/models"

	"gorm.io/gorm"
)

// ListOrder selects the sort applied by Find. General listings serve
// newest-created-first, work queues newest-updated-first.
type ListOrder int

const (
	OrderNewestCreated ListOrder = iota
	OrderNewestUpdated
)

// BugFilter narrows a Find query. Nil pointer fields and empty slices are
// ignored, so the zero value matches every bug.
type BugFilter struct {
	ReporterID   *uint
	AssignedToID *uint
	Statuses     []models.BugStatus
	Approved     *bool
}

// BugRepository defines Bug-related database operations. All mutations are
// atomic at single-row granularity; there are no multi-row transactions.
type BugRepository interface {
	Create(bug *models.Bug) error
	FindByID(id uint) (*models.Bug, error)
	Find(filter BugFilter, order ListOrder) ([]models.Bug, error)
	// UpdateFields applies the given column patch in one UPDATE statement
	// and returns the reloaded bug with references resolved.
	UpdateFields(id uint, fields map[string]interface{}) (*models.Bug, error)
	Delete(id uint) error
}

type bugRepository struct {
	db *gorm.DB
}

// NewBugRepository creates a new BugRepository instance
func NewBugRepository(db *gorm.DB) BugRepository {
	return &bugRepository{db: db}
}

func (r *bugRepository) Create(bug *models.Bug) error {
	result := r.db.Create(bug)
	return result.Error
}

func (r *bugRepository) FindByID(id uint) (*models.Bug, error) {
	var bug models.Bug
	result := r.db.Preload("Reporter").Preload("AssignedTo").First(&bug, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &bug, nil
}

func (r *bugRepository) Find(filter BugFilter, order ListOrder) ([]models.Bug, error) {
	query := r.db.Preload("Reporter").Preload("AssignedTo")

	if filter.ReporterID != nil {
		query = query.Where("reporter_id = ?", *filter.ReporterID)
	}
	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Approved != nil {
		query = query.Where("is_approved = ?", *filter.Approved)
	}

	switch order {
	case OrderNewestUpdated:
		query = query.Order("updated_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var bugs []models.Bug
	result := query.Find(&bugs)
	if result.Error != nil {
		return nil, result.Error
	}
	return bugs, nil
}

func (r *bugRepository) UpdateFields(id uint, fields map[string]interface{}) (*models.Bug, error) {
	result := r.db.Model(&models.Bug{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	return r.FindByID(id)
}

func (r *bugRepository) Delete(id uint) error {
	result := r.db.Delete(&models.Bug{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
