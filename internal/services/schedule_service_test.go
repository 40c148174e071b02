package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/models"
	"example.com/sawmill/services/mill/internal/scheduling"
)

type MockShiftReader struct {
	mock.Mock
}

func (m *MockShiftReader) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Shift, error) {
	args := m.Called(ctx, employeeID)
	return args.Get(0).([]models.Shift), args.Error(1)
}

type MockMaintenanceReader struct {
	mock.Mock
}

func (m *MockMaintenanceReader) ListOpenByEquipment(ctx context.Context, equipmentID uuid.UUID) ([]models.MaintenanceLog, error) {
	args := m.Called(ctx, equipmentID)
	return args.Get(0).([]models.MaintenanceLog), args.Error(1)
}

type MockShiftStore struct {
	mock.Mock
}

func (m *MockShiftStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shift), args.Error(1)
}

func (m *MockShiftStore) CreateBatch(ctx context.Context, shifts []models.Shift) error {
	args := m.Called(ctx, shifts)
	return args.Error(0)
}

func (m *MockShiftStore) ListAll(ctx context.Context) ([]models.Shift, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Shift), args.Error(1)
}

func (m *MockShiftStore) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]models.Shift, error) {
	args := m.Called(ctx, scheduleID)
	return args.Get(0).([]models.Shift), args.Error(1)
}

func (m *MockShiftStore) ListByEmployeeExcluding(ctx context.Context, employeeID, excludeShiftID uuid.UUID) ([]models.Shift, error) {
	args := m.Called(ctx, employeeID, excludeShiftID)
	return args.Get(0).([]models.Shift), args.Error(1)
}

func (m *MockShiftStore) Update(ctx context.Context, shift *models.Shift) error {
	args := m.Called(ctx, shift)
	return args.Error(0)
}

func (m *MockShiftStore) DeleteBySchedule(ctx context.Context, scheduleID uuid.UUID) (int64, error) {
	args := m.Called(ctx, scheduleID)
	return args.Get(0).(int64), args.Error(1)
}

func scheduleServiceFor(shiftReader *MockShiftReader, maintReader *MockMaintenanceReader, store *MockShiftStore) *ScheduleService {
	return &ScheduleService{
		builder: scheduling.NewBuilder(shiftReader, maintReader),
		locks:   scheduling.NewSubjectLocks(),
		shifts:  store,
		metrics: metrics.NewMetrics(),
	}
}

func TestCreateSchedule_Success(t *testing.T) {
	employeeID := uuid.New()
	equipmentID := uuid.New()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	shiftReader := new(MockShiftReader)
	shiftReader.On("ListByEmployee", mock.Anything, employeeID).Return([]models.Shift{}, nil)
	maintReader := new(MockMaintenanceReader)
	maintReader.On("ListOpenByEquipment", mock.Anything, equipmentID).Return([]models.MaintenanceLog{}, nil)
	store := new(MockShiftStore)
	store.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]models.Shift")).Return(nil)

	service := scheduleServiceFor(shiftReader, maintReader, store)

	result, err := service.CreateSchedule(context.Background(), CreateScheduleInput{
		ShiftDetails: []scheduling.ShiftRequest{
			{EmployeeID: employeeID, StartTime: base, EndTime: base.Add(8 * time.Hour)},
		},
		EquipmentUsage: []scheduling.EquipmentUsage{
			{EquipmentID: equipmentID, StartTime: base, EndTime: base.Add(8 * time.Hour)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusSuccess, result.Status)
	assert.NotEqual(t, uuid.Nil, result.ScheduleID)
	require.Len(t, result.Shifts, 1)
	store.AssertExpectations(t)
}

func TestCreateSchedule_ShiftConflict(t *testing.T) {
	employeeID := uuid.New()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	shiftReader := new(MockShiftReader)
	shiftReader.On("ListByEmployee", mock.Anything, employeeID).Return([]models.Shift{
		{EmployeeID: employeeID, StartTime: base.Add(4 * time.Hour), EndTime: base.Add(12 * time.Hour)},
	}, nil)
	maintReader := new(MockMaintenanceReader)
	store := new(MockShiftStore)

	service := scheduleServiceFor(shiftReader, maintReader, store)

	result, err := service.CreateSchedule(context.Background(), CreateScheduleInput{
		ShiftDetails: []scheduling.ShiftRequest{
			{EmployeeID: employeeID, StartTime: base, EndTime: base.Add(8 * time.Hour)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusShiftConflict, result.Status)
	assert.Equal(t, uuid.Nil, result.ScheduleID)
	assert.Empty(t, result.Shifts)
	store.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestCreateSchedule_EquipmentConflict(t *testing.T) {
	employeeID := uuid.New()
	equipmentID := uuid.New()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	shiftReader := new(MockShiftReader)
	shiftReader.On("ListByEmployee", mock.Anything, employeeID).Return([]models.Shift{}, nil)
	maintReader := new(MockMaintenanceReader)
	maintReader.On("ListOpenByEquipment", mock.Anything, equipmentID).Return([]models.MaintenanceLog{
		{EquipmentID: equipmentID, StartTime: base, EndTime: base.Add(24 * time.Hour)},
	}, nil)
	store := new(MockShiftStore)

	service := scheduleServiceFor(shiftReader, maintReader, store)

	result, err := service.CreateSchedule(context.Background(), CreateScheduleInput{
		ShiftDetails: []scheduling.ShiftRequest{
			{EmployeeID: employeeID, StartTime: base, EndTime: base.Add(8 * time.Hour)},
		},
		EquipmentUsage: []scheduling.EquipmentUsage{
			{EquipmentID: equipmentID, StartTime: base, EndTime: base.Add(8 * time.Hour)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusEquipmentConflict, result.Status)
	store.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestCreateSchedule_TouchingShiftsAllowed(t *testing.T) {
	employeeID := uuid.New()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	// An existing shift ending exactly when the new one starts is not a
	// conflict under the open-interval rule.
	shiftReader := new(MockShiftReader)
	shiftReader.On("ListByEmployee", mock.Anything, employeeID).Return([]models.Shift{
		{EmployeeID: employeeID, StartTime: base.Add(-8 * time.Hour), EndTime: base},
	}, nil)
	maintReader := new(MockMaintenanceReader)
	store := new(MockShiftStore)
	store.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]models.Shift")).Return(nil)

	service := scheduleServiceFor(shiftReader, maintReader, store)

	result, err := service.CreateSchedule(context.Background(), CreateScheduleInput{
		ShiftDetails: []scheduling.ShiftRequest{
			{EmployeeID: employeeID, StartTime: base, EndTime: base.Add(8 * time.Hour)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusSuccess, result.Status)
}

func TestUpdateSchedule_ExcludesSelfFromConflictCheck(t *testing.T) {
	employeeID := uuid.New()
	shiftID := uuid.New()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	store := new(MockShiftStore)
	store.On("GetByID", mock.Anything, shiftID).Return(&models.Shift{
		ID:         shiftID,
		EmployeeID: employeeID,
		StartTime:  base,
		EndTime:    base.Add(8 * time.Hour),
	}, nil)
	store.On("ListByEmployeeExcluding", mock.Anything, employeeID, shiftID).Return([]models.Shift{}, nil)
	store.On("Update", mock.Anything, mock.AnythingOfType("*models.Shift")).Return(nil)

	service := scheduleServiceFor(new(MockShiftReader), new(MockMaintenanceReader), store)

	// Shrinking the same shift in place must not conflict with itself.
	updated, err := service.UpdateSchedule(context.Background(), shiftID, scheduling.ShiftRequest{
		StartTime: base.Add(time.Hour),
		EndTime:   base.Add(6 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), updated.StartTime)
	store.AssertExpectations(t)
}

func TestUpdateSchedule_Conflict(t *testing.T) {
	employeeID := uuid.New()
	shiftID := uuid.New()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	store := new(MockShiftStore)
	store.On("GetByID", mock.Anything, shiftID).Return(&models.Shift{
		ID:         shiftID,
		EmployeeID: employeeID,
		StartTime:  base,
		EndTime:    base.Add(4 * time.Hour),
	}, nil)
	store.On("ListByEmployeeExcluding", mock.Anything, employeeID, shiftID).Return([]models.Shift{
		{EmployeeID: employeeID, StartTime: base.Add(6 * time.Hour), EndTime: base.Add(14 * time.Hour)},
	}, nil)

	service := scheduleServiceFor(new(MockShiftReader), new(MockMaintenanceReader), store)

	_, err := service.UpdateSchedule(context.Background(), shiftID, scheduling.ShiftRequest{
		StartTime: base.Add(5 * time.Hour),
		EndTime:   base.Add(9 * time.Hour),
	})
	assert.ErrorIs(t, err, models.ErrShiftConflict)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateSchedule_NotFound(t *testing.T) {
	shiftID := uuid.New()

	store := new(MockShiftStore)
	store.On("GetByID", mock.Anything, shiftID).Return(nil, models.ErrNotFound)

	service := scheduleServiceFor(new(MockShiftReader), new(MockMaintenanceReader), store)

	_, err := service.UpdateSchedule(context.Background(), shiftID, scheduling.ShiftRequest{
		StartTime: time.Now(),
		EndTime:   time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteSchedule_NotFound(t *testing.T) {
	scheduleID := uuid.New()

	store := new(MockShiftStore)
	store.On("DeleteBySchedule", mock.Anything, scheduleID).Return(int64(0), nil)

	service := scheduleServiceFor(new(MockShiftReader), new(MockMaintenanceReader), store)

	err := service.DeleteSchedule(context.Background(), scheduleID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetSchedule_NotFound(t *testing.T) {
	scheduleID := uuid.New()

	store := new(MockShiftStore)
	store.On("ListBySchedule", mock.Anything, scheduleID).Return([]models.Shift{}, nil)

	service := scheduleServiceFor(new(MockShiftReader), new(MockMaintenanceReader), store)

	_, err := service.GetSchedule(context.Background(), scheduleID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
