package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/sawmill/services/mill/internal/models"
)

type stubShiftReader struct {
	shifts map[uuid.UUID][]models.Shift
	calls  int
}

func (s *stubShiftReader) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Shift, error) {
	s.calls++
	return s.shifts[employeeID], nil
}

type stubMaintenanceReader struct {
	open  map[uuid.UUID][]models.MaintenanceLog
	calls int
}

func (s *stubMaintenanceReader) ListOpenByEquipment(ctx context.Context, equipmentID uuid.UUID) ([]models.MaintenanceLog, error) {
	s.calls++
	return s.open[equipmentID], nil
}

func at(hour int) time.Time {
	return time.Date(2026, 9, 1, hour, 0, 0, 0, time.UTC)
}

func TestBuild_Success(t *testing.T) {
	employee := uuid.New()
	equipment := uuid.New()

	builder := NewBuilder(
		&stubShiftReader{shifts: map[uuid.UUID][]models.Shift{}},
		&stubMaintenanceReader{open: map[uuid.UUID][]models.MaintenanceLog{}},
	)

	result, err := builder.Build(context.Background(),
		[]ShiftRequest{{EmployeeID: employee, StartTime: at(8), EndTime: at(16)}},
		[]EquipmentUsage{{EquipmentID: equipment, StartTime: at(8), EndTime: at(16)}},
	)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.NotEqual(t, uuid.Nil, result.ScheduleID)
	assert.Len(t, result.Shifts, 1)
	assert.Len(t, result.UsedEquipment, 1)
}

func TestBuild_ShiftConflictShortCircuitsEquipmentChecks(t *testing.T) {
	employee := uuid.New()
	equipment := uuid.New()

	shiftReader := &stubShiftReader{shifts: map[uuid.UUID][]models.Shift{
		employee: {{EmployeeID: employee, StartTime: at(10), EndTime: at(18)}},
	}}
	maintReader := &stubMaintenanceReader{open: map[uuid.UUID][]models.MaintenanceLog{
		equipment: {{EquipmentID: equipment, StartTime: at(0), EndTime: at(23)}},
	}}

	builder := NewBuilder(shiftReader, maintReader)

	result, err := builder.Build(context.Background(),
		[]ShiftRequest{{EmployeeID: employee, StartTime: at(8), EndTime: at(16)}},
		[]EquipmentUsage{{EquipmentID: equipment, StartTime: at(8), EndTime: at(16)}},
	)
	require.NoError(t, err)
	assert.Equal(t, StatusShiftConflict, result.Status)
	assert.Empty(t, result.Shifts)
	assert.Empty(t, result.UsedEquipment)
	// The equipment phase never runs once a shift conflict is found.
	assert.Equal(t, 0, maintReader.calls)
}

func TestBuild_EquipmentMaintenanceConflict(t *testing.T) {
	employee := uuid.New()
	equipment := uuid.New()

	builder := NewBuilder(
		&stubShiftReader{shifts: map[uuid.UUID][]models.Shift{}},
		&stubMaintenanceReader{open: map[uuid.UUID][]models.MaintenanceLog{
			equipment: {{EquipmentID: equipment, StartTime: at(12), EndTime: at(20)}},
		}},
	)

	result, err := builder.Build(context.Background(),
		[]ShiftRequest{{EmployeeID: employee, StartTime: at(8), EndTime: at(16)}},
		[]EquipmentUsage{{EquipmentID: equipment, StartTime: at(8), EndTime: at(16)}},
	)
	require.NoError(t, err)
	assert.Equal(t, StatusEquipmentConflict, result.Status)
	assert.Equal(t, uuid.Nil, result.ScheduleID)
}

func TestBuild_SecondShiftConflicts(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	builder := NewBuilder(
		&stubShiftReader{shifts: map[uuid.UUID][]models.Shift{
			second: {{EmployeeID: second, StartTime: at(8), EndTime: at(16)}},
		}},
		&stubMaintenanceReader{},
	)

	result, err := builder.Build(context.Background(),
		[]ShiftRequest{
			{EmployeeID: first, StartTime: at(8), EndTime: at(16)},
			{EmployeeID: second, StartTime: at(9), EndTime: at(17)},
		},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, StatusShiftConflict, result.Status)
}

func TestBuild_InvalidIntervalRejected(t *testing.T) {
	employee := uuid.New()

	builder := NewBuilder(
		&stubShiftReader{shifts: map[uuid.UUID][]models.Shift{}},
		&stubMaintenanceReader{},
	)

	_, err := builder.Build(context.Background(),
		[]ShiftRequest{{EmployeeID: employee, StartTime: at(16), EndTime: at(8)}},
		nil,
	)
	assert.ErrorIs(t, err, models.ErrInvalidInterval)
}

func TestSubjectLocks_DuplicateSubjects(t *testing.T) {
	locks := NewSubjectLocks()
	id := uuid.New()

	// Locking the same subject twice in one request must not deadlock.
	release := locks.LockAll([]uuid.UUID{id, id})
	release()

	release = locks.LockAll([]uuid.UUID{id})
	release()
}

func TestSubjectLocks_SerializesSameSubject(t *testing.T) {
	locks := NewSubjectLocks()
	id := uuid.New()

	release := locks.LockAll([]uuid.UUID{id})

	acquired := make(chan struct{})
	go func() {
		r := locks.LockAll([]uuid.UUID{id})
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}
