package repository

import (
	"github.com/tsuitodo/tasklist-backend/internal/domain"

	"gorm.io/gorm"
)

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(task *domain.Task) error
	FindByID(id uint) (*domain.Task, error)
	FindByTodoAndImportance(todoID uint, important bool) ([]domain.Task, error)
	Save(task *domain.Task) error
	Delete(id uint) error
}

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM task repository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(task *domain.Task) error {
	return r.db.Create(task).Error
}

func (r *gormTaskRepository) FindByID(id uint) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByTodoAndImportance returns one side of a list's starred/regular
// partition in insertion order.
func (r *gormTaskRepository) FindByTodoAndImportance(todoID uint, important bool) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.
		Where("title_id = ? AND important = ?", todoID, important).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormTaskRepository) Save(task *domain.Task) error {
	return r.db.Save(task).Error
}

func (r *gormTaskRepository) Delete(id uint) error {
	return r.db.Delete(&domain.Task{}, id).Error
}
