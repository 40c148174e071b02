package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/models"
	"example.com/sawmill/services/mill/internal/scheduling"
)

// ShiftStore is the repository surface the schedule service needs.
type ShiftStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	CreateBatch(ctx context.Context, shifts []models.Shift) error
	ListAll(ctx context.Context) ([]models.Shift, error)
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]models.Shift, error)
	ListByEmployeeExcluding(ctx context.Context, employeeID, excludeShiftID uuid.UUID) ([]models.Shift, error)
	Update(ctx context.Context, shift *models.Shift) error
	DeleteBySchedule(ctx context.Context, scheduleID uuid.UUID) (int64, error)
}

// ScheduleService arbitrates and persists work schedules
type ScheduleService struct {
	builder *scheduling.Builder
	locks   *scheduling.SubjectLocks
	shifts  ShiftStore
	metrics *metrics.Metrics
}

// NewScheduleService creates a new schedule service
func NewScheduleService(builder *scheduling.Builder, shifts ShiftStore, m *metrics.Metrics) *ScheduleService {
	return &ScheduleService{
		builder: builder,
		locks:   scheduling.NewSubjectLocks(),
		shifts:  shifts,
		metrics: m,
	}
}

// CreateScheduleInput is the proposed schedule.
type CreateScheduleInput struct {
	ShiftDetails   []scheduling.ShiftRequest   `json:"shift_details" binding:"required"`
	EquipmentUsage []scheduling.EquipmentUsage `json:"equipment_usage"`
}

// CreateSchedule runs conflict arbitration over the proposed shifts and
// equipment usages, then persists the accepted shifts. The whole
// check-and-persist sequence holds per-subject locks so two concurrent
// proposals touching the same employee or equipment cannot both commit
// overlapping intervals.
func (s *ScheduleService) CreateSchedule(ctx context.Context, input CreateScheduleInput) (scheduling.Result, error) {
	subjects := make([]uuid.UUID, 0, len(input.ShiftDetails)+len(input.EquipmentUsage))
	for _, shift := range input.ShiftDetails {
		subjects = append(subjects, shift.EmployeeID)
	}
	for _, usage := range input.EquipmentUsage {
		subjects = append(subjects, usage.EquipmentID)
	}
	release := s.locks.LockAll(subjects)
	defer release()

	result, err := s.builder.Build(ctx, input.ShiftDetails, input.EquipmentUsage)
	if err != nil {
		return scheduling.Result{}, err
	}
	if result.Status != scheduling.StatusSuccess {
		s.metrics.IncrementCounter("schedules.rejected")
		return result, nil
	}

	committed := make([]models.Shift, 0, len(input.ShiftDetails))
	for _, req := range input.ShiftDetails {
		committed = append(committed, models.Shift{
			ID:         uuid.New(),
			ScheduleID: result.ScheduleID,
			EmployeeID: req.EmployeeID,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
		})
	}
	if len(committed) > 0 {
		if err := s.shifts.CreateBatch(ctx, committed); err != nil {
			return scheduling.Result{}, err
		}
	}

	s.metrics.IncrementCounter("schedules.created")
	return result, nil
}

// GetSchedule lists the committed shifts for one schedule id
func (s *ScheduleService) GetSchedule(ctx context.Context, scheduleID uuid.UUID) ([]models.Shift, error) {
	shifts, err := s.shifts.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, errors.Wrapf(models.ErrNotFound, "schedule %s", scheduleID)
	}
	return shifts, nil
}

// ListSchedules lists all committed shifts
func (s *ScheduleService) ListSchedules(ctx context.Context) ([]models.Shift, error) {
	return s.shifts.ListAll(ctx)
}

// UpdateSchedule moves one shift to a new interval. Only the changed
// shift is re-validated; the conflict check excludes the shift being
// updated so a shift can always shrink or stay in place.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, shiftID uuid.UUID, req scheduling.ShiftRequest) (*models.Shift, error) {
	shift, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	employeeID := shift.EmployeeID
	if req.EmployeeID != uuid.Nil {
		employeeID = req.EmployeeID
	}

	candidate := scheduling.Interval{SubjectID: employeeID, Start: req.StartTime, End: req.EndTime}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	release := s.locks.LockAll([]uuid.UUID{employeeID})
	defer release()

	existing, err := s.shifts.ListByEmployeeExcluding(ctx, employeeID, shiftID)
	if err != nil {
		return nil, err
	}
	intervals := make([]scheduling.Interval, 0, len(existing))
	for _, other := range existing {
		intervals = append(intervals, scheduling.Interval{
			SubjectID: other.EmployeeID,
			Start:     other.StartTime,
			End:       other.EndTime,
		})
	}
	if scheduling.HasConflict(candidate, intervals) {
		return nil, errors.Wrapf(models.ErrShiftConflict, "employee %s", employeeID)
	}

	shift.EmployeeID = employeeID
	shift.StartTime = req.StartTime
	shift.EndTime = req.EndTime
	if err := s.shifts.Update(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// DeleteSchedule removes every shift committed under a schedule id
func (s *ScheduleService) DeleteSchedule(ctx context.Context, scheduleID uuid.UUID) error {
	removed, err := s.shifts.DeleteBySchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return errors.Wrapf(models.ErrNotFound, "schedule %s", scheduleID)
	}
	s.metrics.IncrementCounter("schedules.deleted")
	return nil
}
