package repository

import (
	"github.com/tsuitodo/tasklist-backend/internal/domain"

	"gorm.io/gorm"
)

// TodoRepository defines the interface for task-list data operations
type TodoRepository interface {
	CreateWithFirstTask(todo *domain.Todo, first *domain.Task) error
	FindByID(id uint) (*domain.Todo, error)
	Save(todo *domain.Todo) error
	DeleteWithTasks(id uint) error
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

// CreateWithFirstTask inserts a todo and its first task in one transaction.
// A list is never created empty, so a failure on either insert rolls back
// both writes.
func (r *gormTodoRepository) CreateWithFirstTask(todo *domain.Todo, first *domain.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(todo).Error; err != nil {
			return err
		}
		first.TodoID = todo.ID
		return tx.Create(first).Error
	})
}

func (r *gormTodoRepository) FindByID(id uint) (*domain.Todo, error) {
	var todo domain.Todo
	if err := r.db.First(&todo, id).Error; err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *gormTodoRepository) Save(todo *domain.Todo) error {
	return r.db.Save(todo).Error
}

// DeleteWithTasks removes a todo and every task under it in one transaction.
// The task rows are deleted explicitly rather than leaning on the FK
// constraint, so no orphan task can survive regardless of the store's
// referential-action support.
func (r *gormTodoRepository) DeleteWithTasks(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("title_id = ?", id).Delete(&domain.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Todo{}, id).Error
	})
}
