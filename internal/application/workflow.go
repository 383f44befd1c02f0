package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

var (
	ErrNotCollecting  = errors.New("calibration is not started")
	ErrTooManyPhotos  = errors.New("too many photos")
	ErrNotAwaiting    = errors.New("no photo is expected")
	ErrUndistortEmpty = errors.New("undistortion produced no image")
)

const (
	// DefaultMaxPhotos предел снимков на одну калибровку
	DefaultMaxPhotos = 50
	// DefaultMaxBenches сколько рабочих мест держать в памяти; давно не используемые вытесняются
	DefaultMaxBenches = 100
)

// Workbench калибровка и исправление одного пользователя
type Workbench struct {
	Calibration *CalibrationService
	Undistorter *Undistorter
}

// WorkbenchFactory создаёт рабочее место для нового пользователя
type WorkbenchFactory func() *Workbench

type WorkflowService struct {
	users      *UserService
	codec      port.ImageCodec
	factory    WorkbenchFactory
	maxPhotos  int
	maxBenches int

	mu      sync.Mutex
	photos  map[int64][]entity.CalibrationImage
	benches map[int64]*Workbench
	used    map[int64]uint64
	tick    uint64
}

// NewWorkflowService создаёт сервис, который ведёт пользователя от снимков доски к исправленному фото.
func NewWorkflowService(users *UserService, codec port.ImageCodec, factory WorkbenchFactory) *WorkflowService {
	return &WorkflowService{
		users:      users,
		codec:      codec,
		factory:    factory,
		maxPhotos:  DefaultMaxPhotos,
		maxBenches: DefaultMaxBenches,
		photos:     make(map[int64][]entity.CalibrationImage),
		benches:    make(map[int64]*Workbench),
		used:       make(map[int64]uint64),
	}
}

// User текущее состояние пользователя.
func (s *WorkflowService) User(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.users.Get(ctx, userID, chatID)
}

// BeginCalibration начинает сбор снимков заново.
func (s *WorkflowService) BeginCalibration(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	s.mu.Lock()
	delete(s.photos, userID)
	s.mu.Unlock()

	return s.users.BeginCalibration(ctx, userID, chatID)
}

// AddPhoto добавляет снимок доски и возвращает, сколько снимков уже собрано.
func (s *WorkflowService) AddPhoto(ctx context.Context, userID, chatID int64, photo []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return 0, err
	}
	if user.State != entity.StateCollectingPhotos {
		return 0, ErrNotCollecting
	}

	n := len(s.photos[userID])
	if n >= s.maxPhotos {
		return n, ErrTooManyPhotos
	}
	name := fmt.Sprintf("image_%d.jpg", n+1)
	s.photos[userID] = append(s.photos[userID], entity.ImageFromBytes(name, photo))
	return n + 1, nil
}

// StartCalibration забирает собранные снимки, переводит пользователя в обработку
// и калибрует в фоне. Пока задача идёт, повторный вызов и новые снимки получают ErrNotCollecting.
func (s *WorkflowService) StartCalibration(ctx context.Context, userID, chatID int64) (*Task[*CalibrationReport], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.State != entity.StateCollectingPhotos {
		return nil, ErrNotCollecting
	}
	if _, err := s.users.SetState(ctx, userID, chatID, entity.StateProcessing); err != nil {
		return nil, err
	}

	photos := s.photos[userID]
	delete(s.photos, userID)
	bench := s.benchLocked(userID)

	return Go(ctx, func(ctx context.Context) (*CalibrationReport, error) {
		defer func() {
			_, _ = s.users.SetState(context.WithoutCancel(ctx), userID, chatID, entity.StateMainMenu)
		}()
		return bench.Calibration.Calibrate(ctx, photos)
	}), nil
}

// FinishCalibration калибрует по собранным снимкам и возвращает пользователя в главное меню.
func (s *WorkflowService) FinishCalibration(ctx context.Context, userID, chatID int64) (*CalibrationReport, error) {
	task, err := s.StartCalibration(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	return task.Wait(ctx)
}

// BeginUndistort ждёт от пользователя снимок для исправления выбранным способом.
func (s *WorkflowService) BeginUndistort(ctx context.Context, userID, chatID int64, method Method) (*entity.User, error) {
	if _, ok := s.Result(userID); !ok {
		return nil, entity.ErrNotCalibrated
	}

	return s.users.Update(ctx, userID, chatID, func(u *entity.User) {
		u.SetState(entity.StateAwaitingDistorted)
		u.Strategy = string(method)
	})
}

// Undistort исправляет снимок и отдаёт его в JPEG.
func (s *WorkflowService) Undistort(ctx context.Context, userID, chatID int64, photo []byte) ([]byte, error) {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.State != entity.StateAwaitingDistorted {
		return nil, ErrNotAwaiting
	}
	method, err := ParseMethod(user.Strategy)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.Cancel(ctx, userID, chatID); err != nil {
		return nil, err
	}

	out, ok := s.bench(userID).Undistorter.UndistortImage(entity.ImageFromBytes("photo.jpg", photo), method)
	if !ok {
		return nil, ErrUndistortEmpty
	}
	return s.codec.Encode(out, "jpeg")
}

// Result текущий результат калибровки пользователя.
func (s *WorkflowService) Result(userID int64) (*entity.CalibrationResult, bool) {
	s.mu.Lock()
	b, ok := s.benches[userID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return b.Calibration.Session().Result()
}

// PhotoCount сколько снимков собрано в текущей калибровке.
func (s *WorkflowService) PhotoCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.photos[userID])
}

// Cancel отменяет текущую операцию, результат калибровки сохраняется.
func (s *WorkflowService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	s.mu.Lock()
	delete(s.photos, userID)
	s.mu.Unlock()

	return s.users.Cancel(ctx, userID, chatID)
}

// Forget сбрасывает пользователя целиком: снимки, результат калибровки и состояние.
func (s *WorkflowService) Forget(ctx context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.photos, userID)
	err := s.releaseLocked(userID)
	s.mu.Unlock()

	return errors.Join(err, s.users.Forget(ctx, userID))
}

// Close освобождает ресурсы всех рабочих мест.
func (s *WorkflowService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id := range s.benches {
		errs = append(errs, s.releaseLocked(id))
	}
	return errors.Join(errs...)
}

func (s *WorkflowService) bench(userID int64) *Workbench {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.benchLocked(userID)
}

func (s *WorkflowService) benchLocked(userID int64) *Workbench {
	b, ok := s.benches[userID]
	if !ok {
		if len(s.benches) >= s.maxBenches {
			_ = s.releaseLocked(s.leastRecentlyUsed())
		}
		b = s.factory()
		s.benches[userID] = b
	}
	s.tick++
	s.used[userID] = s.tick
	return b
}

func (s *WorkflowService) leastRecentlyUsed() int64 {
	var (
		oldest     int64
		oldestTick uint64
	)
	for id, t := range s.used {
		if oldestTick == 0 || t < oldestTick {
			oldest, oldestTick = id, t
		}
	}
	return oldest
}

func (s *WorkflowService) releaseLocked(userID int64) error {
	b, ok := s.benches[userID]
	if !ok {
		return nil
	}
	delete(s.benches, userID)
	delete(s.used, userID)
	return b.Undistorter.Close()
}
