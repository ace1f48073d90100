package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
)

type NewTask struct {
	Title         string            `json:"title" validate:"required,max=500"`
	Description   *string           `json:"description,omitempty"`
	ProjectID     *string           `json:"projectId,omitempty"`
	Status        models.TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=todo in-progress done"`
	Priority      models.Level      `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	EnergyLevel   models.Level      `json:"energyLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	IsQuickWin    bool              `json:"isQuickWin"`
	EstimatedTime *int              `json:"estimatedTime,omitempty" validate:"omitempty,gte=0"`
	ActualTime    *int              `json:"actualTime,omitempty" validate:"omitempty,gte=0"`
}

// TaskUpdate changes only its non-nil fields.
type TaskUpdate struct {
	Title         *string            `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Description   *string            `json:"description,omitempty"`
	ProjectID     *string            `json:"projectId,omitempty"`
	Status        *models.TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=todo in-progress done"`
	Priority      *models.Level      `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	EnergyLevel   *models.Level      `json:"energyLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	IsQuickWin    *bool              `json:"isQuickWin,omitempty"`
	EstimatedTime *int               `json:"estimatedTime,omitempty" validate:"omitempty,gte=0"`
	ActualTime    *int               `json:"actualTime,omitempty" validate:"omitempty,gte=0"`
}

type TaskFilter struct {
	Status        *models.TaskStatus
	Priority      *models.Level
	EnergyLevel   *models.Level
	IsQuickWin    *bool
	ProjectID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

type TaskService struct {
	entityService
}

func NewTaskService(deps Dependencies) *TaskService {
	return &TaskService{entityService: newEntityService(deps, "tasks")}
}

func (service *TaskService) Create(ctx context.Context, input NewTask) (models.Task, error) {
	session, err := service.session(ctx, "creating task")
	if err != nil {
		return models.Task{}, err
	}
	if err := validateInput(input); err != nil {
		return models.Task{}, fmt.Errorf("creating task: %w", err)
	}
	if err := service.checkProject(ctx, "creating task", session, input.ProjectID); err != nil {
		return models.Task{}, err
	}

	now := service.timestamp()
	task := models.Task{
		UserID:        session.UserID,
		ProjectID:     emptyToNil(input.ProjectID),
		Title:         input.Title,
		Description:   input.Description,
		Status:        input.Status,
		Priority:      input.Priority,
		EnergyLevel:   input.EnergyLevel,
		IsQuickWin:    input.IsQuickWin,
		EstimatedTime: input.EstimatedTime,
		ActualTime:    input.ActualTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.LevelMedium
	}
	if task.EnergyLevel == "" {
		task.EnergyLevel = models.LevelMedium
	}
	if task.Status == models.TaskStatusDone {
		task.CompletedAt = &now
	}

	row, err := service.client.From(service.table).Insert(taskToRow(task)).Single(ctx)
	if err != nil {
		return models.Task{}, service.fail("creating task", session, "", err)
	}
	return taskFromRow(row)
}

func (service *TaskService) Get(ctx context.Context, id string) (models.Task, error) {
	session, err := service.session(ctx, "finding task")
	if err != nil {
		return models.Task{}, err
	}
	row, err := service.ownedByID(service.client.From(service.table), session, id).Single(ctx)
	if err != nil {
		return models.Task{}, service.fail("finding task", session, id, err)
	}
	return taskFromRow(row)
}

// Update applies the non-nil fields of update. A status change keeps
// CompletedAt consistent: moving to done stamps it, moving elsewhere clears it.
func (service *TaskService) Update(ctx context.Context, id string, update TaskUpdate) (models.Task, error) {
	session, err := service.session(ctx, "updating task")
	if err != nil {
		return models.Task{}, err
	}
	if err := validateInput(update); err != nil {
		return models.Task{}, fmt.Errorf("updating task: %w", err)
	}
	if err := service.checkProject(ctx, "updating task", session, update.ProjectID); err != nil {
		return models.Task{}, err
	}

	row := taskUpdateRow(update, service.timestamp())
	updated, err := service.ownedByID(service.client.From(service.table).Update(row), session, id).Single(ctx)
	if err != nil {
		return models.Task{}, service.fail("updating task", session, id, err)
	}
	return taskFromRow(updated)
}

// checkProject rejects a project id that does not name one of the caller's
// projects. Nil and empty ids detach the task and are always accepted.
func (service *TaskService) checkProject(ctx context.Context, op string, session Session, projectID *string) error {
	if projectID == nil || *projectID == "" {
		return nil
	}
	_, err := service.client.From("projects").
		Select("id").
		Eq("id", *projectID).
		Eq(backend.OwnerColumn, session.UserID).
		Single(ctx)
	if backend.IsNotFound(err) {
		return fmt.Errorf("%s: %w: unknown project", op, ErrInvalidInput)
	}
	if err != nil {
		return service.fail(op, session, *projectID, err)
	}
	return nil
}

func (service *TaskService) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	session, err := service.session(ctx, "listing tasks")
	if err != nil {
		return nil, err
	}

	query := service.owned(session)
	if filter.Status != nil {
		query = query.Eq("status", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Eq("priority", *filter.Priority)
	}
	if filter.EnergyLevel != nil {
		query = query.Eq("energy_level", *filter.EnergyLevel)
	}
	if filter.IsQuickWin != nil {
		query = query.Eq("is_quick_win", *filter.IsQuickWin)
	}
	if filter.ProjectID != nil {
		query = query.Eq("project_id", *filter.ProjectID)
	}
	if filter.CreatedAfter != nil {
		query = query.Gte("created_at", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Lte("created_at", *filter.CreatedBefore)
	}

	rows, err := query.Order("created_at", backend.Descending).Execute(ctx)
	if err != nil {
		return nil, service.fail("listing tasks", session, "", err)
	}
	return decodeRows(rows, taskFromRow)
}

// Delete succeeds when the task does not exist or belongs to someone else;
// nothing is removed in that case.
func (service *TaskService) Delete(ctx context.Context, id string) error {
	session, err := service.session(ctx, "deleting task")
	if err != nil {
		return err
	}
	if _, err := service.ownedByID(service.client.From(service.table).Delete(), session, id).Execute(ctx); err != nil {
		return service.fail("deleting task", session, id, err)
	}
	return nil
}

func taskFromRow(row backend.Row) (models.Task, error) {
	decoder := backend.NewDecoder(row)
	task := models.Task{
		ID:            decoder.String("id"),
		UserID:        decoder.String("user_id"),
		ProjectID:     decoder.OptionalString("project_id"),
		Title:         decoder.String("title"),
		Description:   decoder.OptionalString("description"),
		Status:        models.TaskStatus(decoder.String("status")),
		Priority:      models.Level(decoder.String("priority")),
		EnergyLevel:   models.Level(decoder.String("energy_level")),
		IsQuickWin:    decoder.Bool("is_quick_win"),
		EstimatedTime: decoder.OptionalInt("estimated_time"),
		ActualTime:    decoder.OptionalInt("actual_time"),
		CompletedAt:   decoder.OptionalTime("completed_at"),
		CreatedAt:     decoder.Time("created_at"),
		UpdatedAt:     decoder.Time("updated_at"),
	}
	if err := decoder.Err(); err != nil {
		return models.Task{}, fmt.Errorf("decoding task: %w", err)
	}
	return task, nil
}

func taskToRow(task models.Task) backend.Row {
	return backend.Row{
		"id":             task.ID,
		"user_id":        task.UserID,
		"project_id":     optional(task.ProjectID),
		"title":          task.Title,
		"description":    optional(task.Description),
		"status":         string(task.Status),
		"priority":       string(task.Priority),
		"energy_level":   string(task.EnergyLevel),
		"is_quick_win":   task.IsQuickWin,
		"estimated_time": optional(task.EstimatedTime),
		"actual_time":    optional(task.ActualTime),
		"completed_at":   timestampValue(task.CompletedAt),
		"created_at":     backend.FormatTimestamp(task.CreatedAt),
		"updated_at":     backend.FormatTimestamp(task.UpdatedAt),
	}
}

func taskUpdateRow(update TaskUpdate, now time.Time) backend.Row {
	row := backend.Row{"updated_at": backend.FormatTimestamp(now)}
	if update.Title != nil {
		row["title"] = *update.Title
	}
	if update.Description != nil {
		row["description"] = nonEmpty(*update.Description)
	}
	if update.ProjectID != nil {
		row["project_id"] = nonEmpty(*update.ProjectID)
	}
	if update.Status != nil {
		row["status"] = string(*update.Status)
		if *update.Status == models.TaskStatusDone {
			row["completed_at"] = backend.FormatTimestamp(now)
		} else {
			row["completed_at"] = nil
		}
	}
	if update.Priority != nil {
		row["priority"] = string(*update.Priority)
	}
	if update.EnergyLevel != nil {
		row["energy_level"] = string(*update.EnergyLevel)
	}
	if update.IsQuickWin != nil {
		row["is_quick_win"] = *update.IsQuickWin
	}
	if update.EstimatedTime != nil {
		row["estimated_time"] = *update.EstimatedTime
	}
	if update.ActualTime != nil {
		row["actual_time"] = *update.ActualTime
	}
	return row
}
