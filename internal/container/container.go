package container

import (
	"errors"

	"github.com/sirupsen/logrus"

	"camcalib/config"
	app "camcalib/internal/application"
	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
	"camcalib/internal/infrastructure/imagefile"
	"camcalib/internal/infrastructure/numeric"
	"camcalib/internal/infrastructure/storage"
	"camcalib/internal/infrastructure/vision"
)

type Container struct {
	Config  *config.Config
	Backend config.Backend

	Pattern   *entity.PatternGeometry
	Codec     *imagefile.Codec
	Source    *imagefile.FileSource
	Detector  port.PatternDetector
	Solver    port.CalibrationSolver
	Rectifier port.Rectifier
	Store     *storage.JSONResultStore

	UserService        *app.UserService
	CalibrationService *app.CalibrationService
	Undistorter        *app.Undistorter
	WorkflowService    *app.WorkflowService

	log logrus.FieldLogger
}

func New(cfg *config.Config, log logrus.FieldLogger) (*Container, error) {
	pattern, err := entity.NewPatternGeometry(cfg.Rows, cfg.Cols, cfg.SquareSize)
	if err != nil {
		return nil, err
	}

	backend, err := resolveBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if !vision.Enabled {
		log.Warn("built without the gocv tag: chessboard detection is unavailable")
	}

	c := &Container{
		Config:   cfg,
		Backend:  backend,
		Pattern:  pattern,
		Codec:    imagefile.NewCodec(),
		Source:   imagefile.NewFileSource(),
		Detector: vision.NewDetector(),
		Store:    storage.NewJSONResultStore(cfg.ResultFile),
		log:      log,
	}

	if backend == config.BackendOpenCV {
		c.Solver = vision.NewSolver()
		c.Rectifier = vision.NewRectifier()
	} else {
		c.Solver = numeric.NewSolver(log.WithField("component", "solver"))
		c.Rectifier = numeric.NewRectifier()
	}

	extractor := c.newExtractor()
	if cfg.DebugImages {
		extractor.SetObserver(imagefile.NewDebugWriter(c.Detector, c.Codec, cfg.DebugDir, log.WithField("component", "debug")))
	}
	session := c.newSession()

	c.CalibrationService = app.NewCalibrationService(extractor, session, c.Store, log.WithField("component", "calibration"))
	c.Undistorter = app.NewUndistorter(session, c.Rectifier, c.Source, c.Codec, log.WithField("component", "undistort"))

	c.UserService = app.NewUserService(storage.NewMemoryUserRepository())
	c.WorkflowService = app.NewWorkflowService(c.UserService, c.Codec, c.newWorkbench)

	log.WithFields(logrus.Fields{
		"backend": backend,
		"pattern": pattern.PatternSize(),
	}).Debug("container ready")

	return c, nil
}

// Close освобождает таблицы пересчёта.
func (c *Container) Close() error {
	return errors.Join(c.Undistorter.Close(), c.WorkflowService.Close())
}

// newWorkbench рабочее место пользователя бота: без файла результата и отладочных снимков.
func (c *Container) newWorkbench() *app.Workbench {
	session := c.newSession()
	return &app.Workbench{
		Calibration: app.NewCalibrationService(c.newExtractor(), session, nil, c.log.WithField("component", "calibration")),
		Undistorter: app.NewUndistorter(session, c.Rectifier, c.Source, c.Codec, c.log.WithField("component", "undistort")),
	}
}

func (c *Container) newExtractor() *app.CornerExtractor {
	return app.NewCornerExtractor(c.Pattern, c.Source, c.Codec, c.Detector, c.log.WithField("component", "extractor"))
}

func (c *Container) newSession() *app.CalibrationSession {
	evaluator := app.NewReprojectionErrorEvaluator(numeric.NewProjector())
	return app.NewCalibrationSession(c.Solver, evaluator, c.log.WithField("component", "session"))
}

func resolveBackend(b config.Backend) (config.Backend, error) {
	switch b {
	case config.BackendOpenCV:
		if !vision.Enabled {
			return "", errors.New("opencv backend requires building with -tags gocv")
		}
		return config.BackendOpenCV, nil
	case config.BackendNative:
		return config.BackendNative, nil
	default:
		if vision.Enabled {
			return config.BackendOpenCV, nil
		}
		return config.BackendNative, nil
	}
}
