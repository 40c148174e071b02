package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/sawmill/services/mill/internal/models"
)

// Status reports the outcome of a schedule build.
type Status string

const (
	StatusSuccess           Status = "Success"
	StatusShiftConflict     Status = "Failed due to shift conflict"
	StatusEquipmentConflict Status = "Failed due to equipment maintenance conflict"
)

// ShiftRequest is a proposed work shift for one employee.
type ShiftRequest struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// EquipmentUsage is a proposed usage window for one piece of equipment.
type EquipmentUsage struct {
	EquipmentID uuid.UUID `json:"equipment_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// Result is the outcome of conflict arbitration over a proposed schedule.
// On failure the shift and equipment lists are empty and no interval from
// the request has been committed.
type Result struct {
	ScheduleID    uuid.UUID        `json:"schedule_id"`
	Shifts        []ShiftRequest   `json:"shifts"`
	UsedEquipment []EquipmentUsage `json:"used_equipment"`
	Status        Status           `json:"creation_status"`
}

// ShiftReader supplies the committed shifts of an employee.
type ShiftReader interface {
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Shift, error)
}

// MaintenanceReader supplies the open maintenance windows of a piece of
// equipment. Open means the completion date is still null.
type MaintenanceReader interface {
	ListOpenByEquipment(ctx context.Context, equipmentID uuid.UUID) ([]models.MaintenanceLog, error)
}

// Builder arbitrates scheduling conflicts. It decides whether a proposed
// set of shifts and equipment usages can be committed; persistence of the
// accepted intervals is the caller's concern.
type Builder struct {
	shifts      ShiftReader
	maintenance MaintenanceReader
}

// NewBuilder creates a schedule builder over the given readers.
func NewBuilder(shifts ShiftReader, maintenance MaintenanceReader) *Builder {
	return &Builder{shifts: shifts, maintenance: maintenance}
}

// Build runs the two-phase conflict check: all shifts first, then all
// equipment usages, each in input order, aborting on the first conflict.
// Equipment conflicts are never reported while a shift conflict exists;
// that ordering is part of the contract.
func (b *Builder) Build(ctx context.Context, shifts []ShiftRequest, usages []EquipmentUsage) (Result, error) {
	for _, req := range shifts {
		candidate := Interval{SubjectID: req.EmployeeID, Start: req.StartTime, End: req.EndTime}
		if err := candidate.Validate(); err != nil {
			return Result{}, errors.Wrapf(err, "shift for employee %s", req.EmployeeID)
		}

		existing, err := b.shifts.ListByEmployee(ctx, req.EmployeeID)
		if err != nil {
			return Result{}, errors.Wrap(err, "failed to list shifts for conflict check")
		}
		if HasConflict(candidate, shiftIntervals(existing)) {
			return Result{Status: StatusShiftConflict}, nil
		}
	}

	for _, req := range usages {
		candidate := Interval{SubjectID: req.EquipmentID, Start: req.StartTime, End: req.EndTime}
		if err := candidate.Validate(); err != nil {
			return Result{}, errors.Wrapf(err, "usage for equipment %s", req.EquipmentID)
		}

		open, err := b.maintenance.ListOpenByEquipment(ctx, req.EquipmentID)
		if err != nil {
			return Result{}, errors.Wrap(err, "failed to list maintenance windows for conflict check")
		}
		if HasConflict(candidate, maintenanceIntervals(open)) {
			return Result{Status: StatusEquipmentConflict}, nil
		}
	}

	return Result{
		ScheduleID:    uuid.New(),
		Shifts:        shifts,
		UsedEquipment: usages,
		Status:        StatusSuccess,
	}, nil
}

func shiftIntervals(shifts []models.Shift) []Interval {
	intervals := make([]Interval, 0, len(shifts))
	for _, s := range shifts {
		intervals = append(intervals, Interval{SubjectID: s.EmployeeID, Start: s.StartTime, End: s.EndTime})
	}
	return intervals
}

func maintenanceIntervals(logs []models.MaintenanceLog) []Interval {
	intervals := make([]Interval, 0, len(logs))
	for _, l := range logs {
		intervals = append(intervals, Interval{SubjectID: l.EquipmentID, Start: l.StartTime, End: l.EndTime})
	}
	return intervals
}

// SubjectLocks serializes schedule commits per subject so that two
// concurrent builds touching the same employee or equipment cannot both
// pass validation and both persist an overlapping interval.
type SubjectLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewSubjectLocks creates an empty lock table.
func NewSubjectLocks() *SubjectLocks {
	return &SubjectLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (s *SubjectLocks) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// LockAll acquires the locks for every given subject in a stable order
// and returns a release function. Duplicate ids are locked once.
func (s *SubjectLocks) LockAll(subjects []uuid.UUID) func() {
	unique := make(map[uuid.UUID]struct{}, len(subjects))
	ordered := make([]uuid.UUID, 0, len(subjects))
	for _, id := range subjects {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		ordered = append(ordered, id)
	}
	// Stable acquisition order prevents deadlock between concurrent builds.
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, id := range ordered {
		l := s.lockFor(id)
		l.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
