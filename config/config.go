package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Backend реализация геометрии: OpenCV или чистый Go
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendOpenCV Backend = "opencv"
	BackendNative Backend = "native"
)

type Config struct {
	TelegramToken string
	HTTPAddr      string
	LogLevel      string

	Rows       int
	Cols       int
	SquareSize float64

	ImageGlob   string
	ResultFile  string
	DebugDir    string
	DebugImages bool
	Backend     Backend
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		HTTPAddr:      getString("HTTP_ADDR", ":8080"),
		LogLevel:      getString("LOG_LEVEL", "info"),
		ImageGlob:     getString("CALIB_IMAGE_GLOB", "image_*.jpg"),
		ResultFile:    getString("CALIB_RESULT_FILE", "CameraCalibration.json"),
		DebugDir:      os.Getenv("CALIB_DEBUG_DIR"),
	}

	var err error
	if cfg.Rows, err = getInt("CALIB_ROWS", 9); err != nil {
		return nil, err
	}
	if cfg.Cols, err = getInt("CALIB_COLS", 6); err != nil {
		return nil, err
	}
	if cfg.SquareSize, err = getFloat("CALIB_SQUARE_SIZE", 1); err != nil {
		return nil, err
	}
	if cfg.DebugImages, err = getBool("CALIB_DEBUG_IMAGES", true); err != nil {
		return nil, err
	}

	switch b := Backend(strings.ToLower(getString("CALIB_BACKEND", string(BackendAuto)))); b {
	case BackendAuto, BackendOpenCV, BackendNative:
		cfg.Backend = b
	default:
		return nil, fmt.Errorf("CALIB_BACKEND: unknown backend %q", b)
	}

	if cfg.Rows < 2 || cfg.Cols < 2 {
		return nil, fmt.Errorf("pattern must have at least 2x2 inner corners, got %dx%d", cfg.Rows, cfg.Cols)
	}
	if cfg.SquareSize <= 0 {
		return nil, fmt.Errorf("CALIB_SQUARE_SIZE must be positive, got %g", cfg.SquareSize)
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
