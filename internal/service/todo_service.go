package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tsuitodo/tasklist-backend/internal/domain"
	"github.com/tsuitodo/tasklist-backend/internal/repository"

	"gorm.io/gorm"
)

// dueLayout is the only accepted form for due-date input.
const dueLayout = "2006-01-02"

// CreateTodoRequest holds the data for creating a list. A list always starts
// with one task, so the first task's info travels with the title.
type CreateTodoRequest struct {
	Title     string `json:"title"`
	FirstTask string `json:"first_task"`
	Due       string `json:"due"`
}

// TaskRequest holds the data for adding or editing a task. An empty Due means
// "no date supplied": on add the task gets no due date, on edit the existing
// due date is left unchanged.
type TaskRequest struct {
	Info string `json:"info"`
	Due  string `json:"due"`
}

// TaskResponse is the standard representation of a task.
type TaskResponse struct {
	ID        uint   `json:"id"`
	Info      string `json:"info"`
	Due       string `json:"due,omitempty"`
	Important bool   `json:"important"`
}

// TodoViewResponse is a list with its tasks partitioned into the regular and
// starred groups. The two groups are disjoint and together cover every task
// in the list.
type TodoViewResponse struct {
	ID      uint           `json:"id"`
	Title   string         `json:"title"`
	Tasks   []TaskResponse `json:"tasks"`
	Starred []TaskResponse `json:"starred"`
}

// TodoService defines the operations for managing task lists and their tasks.
// Every operation takes the authenticated caller's user id and refuses to
// touch lists the caller does not own (domain.ErrForbidden).
type TodoService interface {
	// CreateTodoWithFirstTask atomically creates a list and its first task.
	// A malformed due date fails the whole operation before any write.
	CreateTodoWithFirstTask(ctx context.Context, ownerID uint, req CreateTodoRequest) (*TodoViewResponse, error)

	// GetTodoView returns the list with its starred/regular task partition.
	GetTodoView(ctx context.Context, callerID, todoID uint) (*TodoViewResponse, error)

	// RenameTodo overwrites the list title.
	RenameTodo(ctx context.Context, callerID, todoID uint, title string) (*TodoViewResponse, error)

	// AddTask creates a new task under an existing list.
	AddTask(ctx context.Context, callerID, todoID uint, req TaskRequest) (*TaskResponse, error)

	// EditTask overwrites a task's info. A non-empty due date replaces the
	// stored one; an empty due date leaves it unchanged, never clears it.
	EditTask(ctx context.Context, callerID, taskID uint, req TaskRequest) (*TaskResponse, error)

	// ToggleStar flips the important flag. It is a toggle, not a set.
	ToggleStar(ctx context.Context, callerID, taskID uint) (*TaskResponse, error)

	// DeleteTodo removes the list and all its tasks in one transaction.
	DeleteTodo(ctx context.Context, callerID, todoID uint) error

	// DeleteTask removes a single task, leaving siblings and the list intact.
	DeleteTask(ctx context.Context, callerID, taskID uint) error
}

type todoService struct {
	todos repository.TodoRepository
	tasks repository.TaskRepository
}

// NewTodoService creates a new instance of todoService.
func NewTodoService(todos repository.TodoRepository, tasks repository.TaskRepository) TodoService {
	return &todoService{
		todos: todos,
		tasks: tasks,
	}
}

// parseDue parses free-text due-date input. Empty text means no date.
func parseDue(text string) (*time.Time, error) {
	if text == "" {
		return nil, nil
	}
	due, err := time.Parse(dueLayout, text)
	if err != nil {
		return nil, domain.ErrInvalidDate
	}
	return &due, nil
}

// ownedTodo loads a todo and verifies the caller owns it.
func (s *todoService) ownedTodo(callerID, todoID uint) (*domain.Todo, error) {
	todo, err := s.todos.FindByID(todoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading todo %d: %w", todoID, err)
	}
	if todo.UserID != callerID {
		return nil, domain.ErrForbidden
	}
	return todo, nil
}

// ownedTask loads a task and verifies the caller owns its parent list.
func (s *todoService) ownedTask(callerID, taskID uint) (*domain.Task, error) {
	task, err := s.tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading task %d: %w", taskID, err)
	}
	if _, err := s.ownedTodo(callerID, task.TodoID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *todoService) CreateTodoWithFirstTask(ctx context.Context, ownerID uint, req CreateTodoRequest) (*TodoViewResponse, error) {
	if req.Title == "" {
		return nil, errors.New("title cannot be empty")
	}
	if req.FirstTask == "" {
		return nil, errors.New("first task cannot be empty")
	}

	// Parse before any write so a bad date leaves the store untouched.
	due, err := parseDue(req.Due)
	if err != nil {
		return nil, err
	}

	todo := &domain.Todo{
		Title:  req.Title,
		UserID: ownerID,
	}
	first := &domain.Task{
		Info: req.FirstTask,
		Due:  due,
	}
	if err := s.todos.CreateWithFirstTask(todo, first); err != nil {
		return nil, fmt.Errorf("creating todo with first task: %w", err)
	}

	return &TodoViewResponse{
		ID:      todo.ID,
		Title:   todo.Title,
		Tasks:   []TaskResponse{toTaskResponse(first)},
		Starred: []TaskResponse{},
	}, nil
}

func (s *todoService) GetTodoView(ctx context.Context, callerID, todoID uint) (*TodoViewResponse, error) {
	todo, err := s.ownedTodo(callerID, todoID)
	if err != nil {
		return nil, err
	}

	regular, err := s.tasks.FindByTodoAndImportance(todo.ID, false)
	if err != nil {
		return nil, fmt.Errorf("loading tasks for todo %d: %w", todo.ID, err)
	}
	starred, err := s.tasks.FindByTodoAndImportance(todo.ID, true)
	if err != nil {
		return nil, fmt.Errorf("loading starred tasks for todo %d: %w", todo.ID, err)
	}

	view := &TodoViewResponse{
		ID:      todo.ID,
		Title:   todo.Title,
		Tasks:   make([]TaskResponse, 0, len(regular)),
		Starred: make([]TaskResponse, 0, len(starred)),
	}
	for i := range regular {
		view.Tasks = append(view.Tasks, toTaskResponse(&regular[i]))
	}
	for i := range starred {
		view.Starred = append(view.Starred, toTaskResponse(&starred[i]))
	}
	return view, nil
}

func (s *todoService) RenameTodo(ctx context.Context, callerID, todoID uint, title string) (*TodoViewResponse, error) {
	if title == "" {
		return nil, errors.New("title cannot be empty")
	}

	todo, err := s.ownedTodo(callerID, todoID)
	if err != nil {
		return nil, err
	}

	todo.Title = title
	if err := s.todos.Save(todo); err != nil {
		return nil, fmt.Errorf("renaming todo %d: %w", todoID, err)
	}

	return s.GetTodoView(ctx, callerID, todoID)
}

func (s *todoService) AddTask(ctx context.Context, callerID, todoID uint, req TaskRequest) (*TaskResponse, error) {
	if req.Info == "" {
		return nil, errors.New("task info cannot be empty")
	}

	due, err := parseDue(req.Due)
	if err != nil {
		return nil, err
	}

	todo, err := s.ownedTodo(callerID, todoID)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		Info:   req.Info,
		Due:    due,
		TodoID: todo.ID,
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, fmt.Errorf("adding task to todo %d: %w", todoID, err)
	}

	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *todoService) EditTask(ctx context.Context, callerID, taskID uint, req TaskRequest) (*TaskResponse, error) {
	if req.Info == "" {
		return nil, errors.New("task info cannot be empty")
	}

	due, err := parseDue(req.Due)
	if err != nil {
		return nil, err
	}

	task, err := s.ownedTask(callerID, taskID)
	if err != nil {
		return nil, err
	}

	task.Info = req.Info
	if due != nil {
		task.Due = due
	}
	if err := s.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("editing task %d: %w", taskID, err)
	}

	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *todoService) ToggleStar(ctx context.Context, callerID, taskID uint) (*TaskResponse, error) {
	task, err := s.ownedTask(callerID, taskID)
	if err != nil {
		return nil, err
	}

	task.Important = !task.Important
	if err := s.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("toggling star on task %d: %w", taskID, err)
	}

	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *todoService) DeleteTodo(ctx context.Context, callerID, todoID uint) error {
	todo, err := s.ownedTodo(callerID, todoID)
	if err != nil {
		return err
	}

	if err := s.todos.DeleteWithTasks(todo.ID); err != nil {
		return fmt.Errorf("deleting todo %d: %w", todoID, err)
	}
	return nil
}

func (s *todoService) DeleteTask(ctx context.Context, callerID, taskID uint) error {
	task, err := s.ownedTask(callerID, taskID)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(task.ID); err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, err)
	}
	return nil
}

func toTaskResponse(task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:        task.ID,
		Info:      task.Info,
		Important: task.Important,
	}
	if task.Due != nil {
		resp.Due = task.Due.Format(dueLayout)
	}
	return resp
}
