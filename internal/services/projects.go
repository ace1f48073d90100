package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
)

const DefaultProjectColor = "#6C63FF"

type NewProject struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty"`
	Color       string  `json:"color,omitempty" validate:"omitempty,max=32"`
}

type ProjectUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty" validate:"omitempty,min=1,max=32"`
}

type ProjectFilter struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

type ProjectService struct {
	entityService
}

func NewProjectService(deps Dependencies) *ProjectService {
	return &ProjectService{entityService: newEntityService(deps, "projects")}
}

func (service *ProjectService) Create(ctx context.Context, input NewProject) (models.Project, error) {
	session, err := service.session(ctx, "creating project")
	if err != nil {
		return models.Project{}, err
	}
	if err := validateInput(input); err != nil {
		return models.Project{}, fmt.Errorf("creating project: %w", err)
	}

	now := service.timestamp()
	project := models.Project{
		UserID:      session.UserID,
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if project.Color == "" {
		project.Color = DefaultProjectColor
	}

	row, err := service.client.From(service.table).Insert(projectToRow(project)).Single(ctx)
	if err != nil {
		return models.Project{}, service.fail("creating project", session, "", err)
	}
	return projectFromRow(row)
}

func (service *ProjectService) Get(ctx context.Context, id string) (models.Project, error) {
	session, err := service.session(ctx, "finding project")
	if err != nil {
		return models.Project{}, err
	}
	row, err := service.ownedByID(service.client.From(service.table), session, id).Single(ctx)
	if err != nil {
		return models.Project{}, service.fail("finding project", session, id, err)
	}
	return projectFromRow(row)
}

func (service *ProjectService) Update(ctx context.Context, id string, update ProjectUpdate) (models.Project, error) {
	session, err := service.session(ctx, "updating project")
	if err != nil {
		return models.Project{}, err
	}
	if err := validateInput(update); err != nil {
		return models.Project{}, fmt.Errorf("updating project: %w", err)
	}

	row := backend.Row{"updated_at": backend.FormatTimestamp(service.timestamp())}
	if update.Name != nil {
		row["name"] = *update.Name
	}
	if update.Description != nil {
		row["description"] = nonEmpty(*update.Description)
	}
	if update.Color != nil {
		row["color"] = *update.Color
	}

	updated, err := service.ownedByID(service.client.From(service.table).Update(row), session, id).Single(ctx)
	if err != nil {
		return models.Project{}, service.fail("updating project", session, id, err)
	}
	return projectFromRow(updated)
}

func (service *ProjectService) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	session, err := service.session(ctx, "listing projects")
	if err != nil {
		return nil, err
	}

	query := service.owned(session)
	if filter.CreatedAfter != nil {
		query = query.Gte("created_at", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Lte("created_at", *filter.CreatedBefore)
	}

	rows, err := query.Order("created_at", backend.Descending).Execute(ctx)
	if err != nil {
		return nil, service.fail("listing projects", session, "", err)
	}
	return decodeRows(rows, projectFromRow)
}

// Delete leaves the project's tasks in place, detached from any project.
// Detaching goes through the client so subscribers to tasks see each change.
func (service *ProjectService) Delete(ctx context.Context, id string) error {
	session, err := service.session(ctx, "deleting project")
	if err != nil {
		return err
	}
	detach := backend.Row{
		"project_id": nil,
		"updated_at": backend.FormatTimestamp(service.timestamp()),
	}
	if _, err := service.client.From("tasks").Update(detach).
		Eq("project_id", id).
		Eq(backend.OwnerColumn, session.UserID).
		Execute(ctx); err != nil {
		return service.fail("detaching project tasks", session, id, err)
	}
	if _, err := service.ownedByID(service.client.From(service.table).Delete(), session, id).Execute(ctx); err != nil {
		return service.fail("deleting project", session, id, err)
	}
	return nil
}

// TaskIDs returns the ids of the caller's tasks that belong to the project,
// newest first.
func (service *ProjectService) TaskIDs(ctx context.Context, projectID string) ([]string, error) {
	session, err := service.session(ctx, "listing project tasks")
	if err != nil {
		return nil, err
	}

	rows, err := service.client.From("tasks").
		Select("id").
		Eq("project_id", projectID).
		Eq(backend.OwnerColumn, session.UserID).
		Order("created_at", backend.Descending).
		Execute(ctx)
	if err != nil {
		return nil, service.fail("listing project tasks", session, projectID, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		decoder := backend.NewDecoder(row)
		id := decoder.String("id")
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("decoding project task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// WithTasks returns the project with its TaskIDs filled in.
func (service *ProjectService) WithTasks(ctx context.Context, id string) (models.Project, error) {
	project, err := service.Get(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	project.TaskIDs, err = service.TaskIDs(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func projectFromRow(row backend.Row) (models.Project, error) {
	decoder := backend.NewDecoder(row)
	project := models.Project{
		ID:          decoder.String("id"),
		UserID:      decoder.String("user_id"),
		Name:        decoder.String("name"),
		Description: decoder.OptionalString("description"),
		Color:       decoder.String("color"),
		CreatedAt:   decoder.Time("created_at"),
		UpdatedAt:   decoder.Time("updated_at"),
	}
	if err := decoder.Err(); err != nil {
		return models.Project{}, fmt.Errorf("decoding project: %w", err)
	}
	return project, nil
}

func projectToRow(project models.Project) backend.Row {
	return backend.Row{
		"id":          project.ID,
		"user_id":     project.UserID,
		"name":        project.Name,
		"description": optional(project.Description),
		"color":       project.Color,
		"created_at":  backend.FormatTimestamp(project.CreatedAt),
		"updated_at":  backend.FormatTimestamp(project.UpdatedAt),
	}
}
