// Package scheduler arms cron-driven recordings. Each enabled schedule
// becomes one cron entry whose job starts a recording, waits the
// configured duration, then stops it.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/observability"
	"github.com/camarr/camarr/internal/repository"
)

// recorder is the slice of the process supervisor the scheduler drives.
type recorder interface {
	StartRecording(ctx context.Context, cameraID int64, fpsOverride *int) error
	StopRecording(ctx context.Context, cameraID int64) error
}

// Scheduler owns the cron engine and the schedule_id -> cron entry
// mapping. It never touches transcoder children directly; recordings
// start and stop through the supervisor by camera id.
type Scheduler struct {
	mu      sync.Mutex
	entries map[int64]cron.EntryID
	// firing maps schedule_id -> camera_id while a job closure is in
	// flight, so operators can tell a scheduled recording from a manual
	// one.
	firing map[int64]int64

	engine    *cron.Cron
	tz        *time.Location
	recorder  recorder
	schedules repository.ScheduleRepository
	logger    *slog.Logger

	// sleepFn is the between-start-and-stop wait, injectable for tests.
	sleepFn func(d time.Duration)
}

// New builds a scheduler evaluating cron expressions in tz. The engine
// is created stopped; call Start after reloading persisted schedules.
func New(tz *time.Location, rec recorder, schedules repository.ScheduleRepository, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Scheduler{
		entries:   make(map[int64]cron.EntryID),
		firing:    make(map[int64]int64),
		engine:    cron.New(cron.WithSeconds(), cron.WithLocation(tz)),
		tz:        tz,
		recorder:  rec,
		schedules: schedules,
		logger:    observability.WithComponent(logger, "scheduler"),
		sleepFn:   time.Sleep,
	}
}

// cronParser matches the engine's format: six fields with seconds.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Canonicalize normalizes a cron expression to 6-field form, prepending
// a zero seconds field to 5-field input, and validates it.
func Canonicalize(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if len(strings.Fields(expr)) == 5 {
		expr = "0 " + expr
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return "", fmt.Errorf("%w: %q: %w", models.ErrInvalidCron, expr, err)
	}
	return expr, nil
}

// Start begins firing jobs. Safe to call once after Reload.
func (s *Scheduler) Start() {
	s.engine.Start()
}

// Stop halts the engine without interrupting in-flight job closures.
func (s *Scheduler) Stop() {
	s.engine.Stop()
}

// Add registers a schedule with the engine. The stored expression must
// already be canonical; Add re-validates anyway so a hand-edited row
// cannot wedge the engine.
func (s *Scheduler) Add(schedule *models.RecordingSchedule) error {
	expr, err := Canonicalize(schedule.CronExpression)
	if err != nil {
		return err
	}

	id := schedule.ID
	cameraID := schedule.CameraID
	name := schedule.Name
	duration := time.Duration(schedule.DurationMinutes) * time.Minute
	fps := schedule.FPS

	entryID, err := s.engine.AddFunc(expr, func() {
		s.runJob(id, cameraID, name, duration, fps)
	})
	if err != nil {
		return fmt.Errorf("%w: %q: %w", models.ErrInvalidCron, expr, err)
	}

	s.mu.Lock()
	s.entries[id] = entryID
	s.mu.Unlock()

	s.logger.Info("schedule armed",
		slog.Int64("schedule_id", id),
		slog.Int64("camera_id", cameraID),
		slog.String("name", name),
		slog.String("cron", expr),
	)
	return nil
}

// Remove disarms a schedule. Unknown ids are a no-op; a fired closure
// already in flight is not interrupted.
func (s *Scheduler) Remove(scheduleID int64) {
	s.mu.Lock()
	entryID, ok := s.entries[scheduleID]
	if ok {
		delete(s.entries, scheduleID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.engine.Remove(entryID)
	s.logger.Info("schedule disarmed", slog.Int64("schedule_id", scheduleID))
}

// Update re-arms a schedule under its new definition. Expressed as
// remove-then-add so the engine never holds two entries for one row.
func (s *Scheduler) Update(schedule *models.RecordingSchedule) error {
	s.Remove(schedule.ID)
	if !schedule.IsEnabled {
		return nil
	}
	return s.Add(schedule)
}

// Firing returns a snapshot of schedule_id -> camera_id for job
// closures currently between start and stop.
func (s *Scheduler) Firing() map[int64]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[int64]int64, len(s.firing))
	for id, cam := range s.firing {
		snapshot[id] = cam
	}
	return snapshot
}

// Armed reports whether a schedule currently has an engine entry.
func (s *Scheduler) Armed(scheduleID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[scheduleID]
	return ok
}

// Reload arms every enabled schedule from persistence. Called once on
// startup before Start. A schedule that fails to arm is logged and
// skipped; the rest still run.
func (s *Scheduler) Reload(ctx context.Context) error {
	schedules, err := s.schedules.GetEnabled(ctx)
	if err != nil {
		return fmt.Errorf("loading enabled schedules: %w", err)
	}
	for _, schedule := range schedules {
		if err := s.Add(schedule); err != nil {
			s.logger.Error("arming persisted schedule failed",
				slog.Int64("schedule_id", schedule.ID),
				slog.String("cron", schedule.CronExpression),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.Info("schedules reloaded", slog.Int("count", len(schedules)))
	return nil
}

// runJob is the fired closure: start, hold for the duration, stop.
// Failures are logged and swallowed so one bad fire never takes the
// engine down. Not cancellable once fired.
func (s *Scheduler) runJob(scheduleID, cameraID int64, name string, duration time.Duration, fps *int) {
	log := s.logger.With(
		slog.Int64("schedule_id", scheduleID),
		slog.Int64("camera_id", cameraID),
		slog.String("name", name),
	)
	log.Info("schedule fired", slog.Duration("duration", duration))

	ctx := context.Background()
	if err := s.recorder.StartRecording(ctx, cameraID, fps); err != nil {
		log.Error("scheduled recording failed to start", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.firing[scheduleID] = cameraID
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.firing, scheduleID)
		s.mu.Unlock()
	}()

	s.sleepFn(duration)

	if err := s.recorder.StopRecording(ctx, cameraID); err != nil {
		log.Error("scheduled recording failed to stop", slog.String("error", err.Error()))
		return
	}
	log.Info("scheduled recording completed")
}
