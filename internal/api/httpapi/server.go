package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "camcalib/internal/application"
	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

const shutdownTimeout = 5 * time.Second

// Server HTTP-доступ к калибровке и исправлению снимков
type Server struct {
	calibration *app.CalibrationService
	undistorter *app.Undistorter
	codec       port.ImageCodec
	log         logrus.FieldLogger
	router      *gin.Engine
}

func NewServer(calibration *app.CalibrationService, undistorter *app.Undistorter, codec port.ImageCodec, log logrus.FieldLogger) *Server {
	s := &Server{
		calibration: calibration,
		undistorter: undistorter,
		codec:       codec,
		log:         log,
	}
	s.router = s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.log))
	router.GET("/healthz", s.healthz)
	router.GET("/calibration", s.getCalibration)
	router.POST("/calibration", s.calibrate)
	router.POST("/undistort", s.undistort)

	return router
}

// Handler корневой обработчик, удобен для httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает addr, пока не отменён ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("http server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

func (s *Server) healthz(c *gin.Context) {
	_, calibrated := s.calibration.Session().Result()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "calibrated": calibrated})
}

type calibrationResponse struct {
	entity.Artifact
	Views         int                     `json:"views"`
	ImageSize     [2]int                  `json:"imageSize"`
	PerViewErrors []float64               `json:"perViewErrors"`
	TotalError    float64                 `json:"totalError"`
	MeanError     float64                 `json:"meanError"`
	Stats         *entity.ExtractionStats `json:"stats,omitempty"`
	Warning       string                  `json:"warning,omitempty"`
}

func newCalibrationResponse(r *entity.CalibrationResult) calibrationResponse {
	size := r.ImageSize()
	return calibrationResponse{
		Artifact:      r.Artifact(),
		Views:         r.Views(),
		ImageSize:     [2]int{size.X, size.Y},
		PerViewErrors: r.PerViewErrors(),
		TotalError:    r.TotalError(),
		MeanError:     r.MeanError(),
	}
}

func (s *Server) getCalibration(c *gin.Context) {
	result, ok := s.calibration.Session().Result()
	if !ok {
		abort(c, http.StatusNotFound, entity.ErrNotCalibrated)
		return
	}
	c.IndentedJSON(http.StatusOK, newCalibrationResponse(result))
}

func (s *Server) calibrate(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		abort(c, http.StatusBadRequest, errors.New("no images in form field \"images\""))
		return
	}

	images := make([]entity.CalibrationImage, 0, len(files))
	for _, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
		images = append(images, entity.ImageFromBytes(fh.Filename, data))
	}

	report, err := s.calibration.Calibrate(c.Request.Context(), images)
	if err != nil && report == nil {
		abort(c, statusFor(err), err)
		return
	}

	resp := newCalibrationResponse(report.Result)
	resp.Stats = &report.Correspondences.Stats
	if err != nil {
		s.log.WithError(err).Warn("calibration result was not saved")
		resp.Warning = err.Error()
	}
	c.IndentedJSON(http.StatusCreated, resp)
}

func (s *Server) undistort(c *gin.Context) {
	method, err := app.ParseMethod(c.Query("method"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.calibration.Session().Result(); !ok {
		abort(c, http.StatusConflict, entity.ErrNotCalibrated)
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	data, err := readFormFile(fh)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	out, ok := s.undistorter.UndistortImage(entity.ImageFromBytes(fh.Filename, data), method)
	if !ok {
		abort(c, http.StatusUnprocessableEntity, app.ErrUndistortEmpty)
		return
	}

	encoded, err := s.codec.Encode(out, "jpeg")
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", encoded)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrInvalidInput), errors.Is(err, entity.ErrLoad):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrNotCalibrated):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
