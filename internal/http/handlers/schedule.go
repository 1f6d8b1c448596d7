package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/repository"
	"github.com/camarr/camarr/internal/scheduler"
)

// cronEngine is the slice of the scheduler the schedule endpoints use.
type cronEngine interface {
	Add(schedule *models.RecordingSchedule) error
	Remove(scheduleID int64)
	Update(schedule *models.RecordingSchedule) error
	Firing() map[int64]int64
}

// ScheduleHandler handles recording schedule CRUD endpoints.
type ScheduleHandler struct {
	schedules repository.ScheduleRepository
	engine    cronEngine
	logger    *slog.Logger
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(schedules repository.ScheduleRepository, engine cronEngine, logger *slog.Logger) *ScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleHandler{schedules: schedules, engine: engine, logger: logger}
}

// Register registers the schedule routes with the API.
func (h *ScheduleHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listSchedules",
		Method:      "GET",
		Path:        "/api/v1/schedules",
		Summary:     "List recording schedules",
		Tags:        []string{"Schedules"},
	}, h.ListSchedules)

	huma.Register(api, huma.Operation{
		OperationID: "addSchedule",
		Method:      "POST",
		Path:        "/api/v1/schedules",
		Summary:     "Add a recording schedule",
		Description: "Accepts 5- or 6-field cron expressions; stores the canonical 6-field form",
		Tags:        []string{"Schedules"},
	}, h.AddSchedule)

	huma.Register(api, huma.Operation{
		OperationID: "updateSchedule",
		Method:      "PATCH",
		Path:        "/api/v1/schedules/{id}",
		Summary:     "Update a recording schedule",
		Tags:        []string{"Schedules"},
	}, h.UpdateSchedule)

	huma.Register(api, huma.Operation{
		OperationID: "deleteSchedule",
		Method:      "DELETE",
		Path:        "/api/v1/schedules/{id}",
		Summary:     "Delete a recording schedule",
		Tags:        []string{"Schedules"},
	}, h.DeleteSchedule)

	huma.Register(api, huma.Operation{
		OperationID: "toggleSchedule",
		Method:      "POST",
		Path:        "/api/v1/schedules/{id}/toggle",
		Summary:     "Enable or disable a recording schedule",
		Tags:        []string{"Schedules"},
	}, h.ToggleSchedule)
}

// ScheduleResponse is a schedule row plus its live engine state.
type ScheduleResponse struct {
	*models.RecordingSchedule
	// Recording is true while the schedule's job closure is between
	// record-start and record-stop.
	Recording bool `json:"recording"`
}

// ListSchedulesInput is the input for listing schedules.
type ListSchedulesInput struct{}

// ListSchedulesOutput is the output for listing schedules.
type ListSchedulesOutput struct {
	Body struct {
		Schedules []ScheduleResponse `json:"schedules"`
	}
}

// ListSchedules returns every schedule with camera names joined.
func (h *ScheduleHandler) ListSchedules(ctx context.Context, _ *ListSchedulesInput) (*ListSchedulesOutput, error) {
	schedules, err := h.schedules.GetAll(ctx)
	if err != nil {
		return nil, apiError(err)
	}

	firing := h.engine.Firing()
	resp := &ListSchedulesOutput{}
	resp.Body.Schedules = make([]ScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		_, recording := firing[s.ID]
		resp.Body.Schedules = append(resp.Body.Schedules, ScheduleResponse{
			RecordingSchedule: s,
			Recording:         recording,
		})
	}
	return resp, nil
}

// AddScheduleInput is the input for adding a schedule.
type AddScheduleInput struct {
	Body models.RecordingSchedule
}

// AddScheduleOutput is the output for adding a schedule.
type AddScheduleOutput struct {
	Body models.RecordingSchedule
}

// AddSchedule validates, canonicalizes the cron expression, persists the
// schedule, and arms it when enabled.
func (h *ScheduleHandler) AddSchedule(ctx context.Context, input *AddScheduleInput) (*AddScheduleOutput, error) {
	schedule := input.Body
	schedule.ID = 0
	if err := schedule.Validate(); err != nil {
		return nil, apiError(err)
	}

	canonical, err := scheduler.Canonicalize(schedule.CronExpression)
	if err != nil {
		return nil, apiError(err)
	}
	schedule.CronExpression = canonical

	if err := h.schedules.Create(ctx, &schedule); err != nil {
		return nil, apiError(err)
	}
	if schedule.IsEnabled {
		if err := h.engine.Add(&schedule); err != nil {
			return nil, apiError(err)
		}
	}

	h.logger.Info("schedule created",
		slog.Int64("schedule_id", schedule.ID),
		slog.Int64("camera_id", schedule.CameraID),
		slog.String("cron", schedule.CronExpression),
		slog.Bool("enabled", schedule.IsEnabled),
	)
	return &AddScheduleOutput{Body: schedule}, nil
}

// UpdateScheduleInput is the input for updating a schedule.
type UpdateScheduleInput struct {
	ID   int64 `path:"id"`
	Body models.RecordingSchedulePatch
}

// UpdateScheduleOutput is the output for updating a schedule.
type UpdateScheduleOutput struct {
	Body models.RecordingSchedule
}

// UpdateSchedule applies a partial update and re-arms the engine entry.
func (h *ScheduleHandler) UpdateSchedule(ctx context.Context, input *UpdateScheduleInput) (*UpdateScheduleOutput, error) {
	if err := input.Body.Validate(); err != nil {
		return nil, apiError(err)
	}

	schedule, err := h.schedules.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if schedule == nil {
		return nil, apiError(fmt.Errorf("%w: schedule %d", models.ErrNotFound, input.ID))
	}

	input.Body.Apply(schedule)

	canonical, err := scheduler.Canonicalize(schedule.CronExpression)
	if err != nil {
		return nil, apiError(err)
	}
	schedule.CronExpression = canonical

	if err := h.schedules.Update(ctx, schedule); err != nil {
		return nil, apiError(err)
	}
	if err := h.engine.Update(schedule); err != nil {
		return nil, apiError(err)
	}

	h.logger.Info("schedule updated", slog.Int64("schedule_id", schedule.ID))
	return &UpdateScheduleOutput{Body: *schedule}, nil
}

// DeleteScheduleInput is the input for deleting a schedule.
type DeleteScheduleInput struct {
	ID int64 `path:"id"`
}

// DeleteScheduleOutput is the output for deleting a schedule.
type DeleteScheduleOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// DeleteSchedule disarms and removes a schedule. An in-flight job
// closure finishes its recording regardless.
func (h *ScheduleHandler) DeleteSchedule(ctx context.Context, input *DeleteScheduleInput) (*DeleteScheduleOutput, error) {
	schedule, err := h.schedules.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if schedule == nil {
		return nil, apiError(fmt.Errorf("%w: schedule %d", models.ErrNotFound, input.ID))
	}

	h.engine.Remove(input.ID)
	if err := h.schedules.Delete(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	h.logger.Info("schedule deleted", slog.Int64("schedule_id", input.ID))

	resp := &DeleteScheduleOutput{}
	resp.Body.Success = true
	return resp, nil
}

// ToggleScheduleInput is the input for toggling a schedule.
type ToggleScheduleInput struct {
	ID   int64 `path:"id"`
	Body struct {
		Enabled bool `json:"enabled"`
	}
}

// ToggleScheduleOutput is the output for toggling a schedule.
type ToggleScheduleOutput struct {
	Body models.RecordingSchedule
}

// ToggleSchedule enables or disables a schedule and syncs the engine.
func (h *ScheduleHandler) ToggleSchedule(ctx context.Context, input *ToggleScheduleInput) (*ToggleScheduleOutput, error) {
	schedule, err := h.schedules.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if schedule == nil {
		return nil, apiError(fmt.Errorf("%w: schedule %d", models.ErrNotFound, input.ID))
	}

	schedule.IsEnabled = input.Body.Enabled
	if err := h.schedules.Update(ctx, schedule); err != nil {
		return nil, apiError(err)
	}
	if err := h.engine.Update(schedule); err != nil {
		return nil, apiError(err)
	}

	h.logger.Info("schedule toggled",
		slog.Int64("schedule_id", schedule.ID),
		slog.Bool("enabled", schedule.IsEnabled),
	)
	return &ToggleScheduleOutput{Body: *schedule}, nil
}
