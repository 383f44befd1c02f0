package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	app "camcalib/internal/application"
	"camcalib/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для калибровки камеры по шахматной доске.

📸 Пришлите несколько снимков доски с разных ракурсов, и я посчитаю матрицу камеры и коэффициенты дисторсии.

📋 Команды:
/calibrate — начать калибровку
/done — посчитать по собранным снимкам
/undistort — исправить снимок напрямую
/remap — исправить снимок через таблицы пересчёта
/result — показать результат калибровки
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте /calibrate
2️⃣ Пришлите 10–20 снимков шахматной доски %dx%d внутренних углов
3️⃣ Отправьте /done и дождитесь результата
4️⃣ Отправьте /undistort или /remap и пришлите снимок для исправления

💡 Рекомендации:
• Доска должна быть целиком в кадре
• Меняйте наклон и положение доски
• Лучше присылать снимки файлом, без сжатия`

	msgCollecting      = "📸 Присылайте снимки доски %dx%d. Когда закончите, отправьте /done."
	msgPhotoAccepted   = "✅ Снимок %d принят."
	msgTooManyPhotos   = "⚠️ Снимков уже достаточно, отправьте /done."
	msgCalibrating     = "⏳ Калибрую по %d снимкам..."
	msgNoViews         = "⚠️ Доска не найдена ни на одном снимке. Начните заново: /calibrate"
	msgCalibrateError  = "⚠️ Не удалось откалибровать камеру. Попробуйте другие снимки."
	msgNotCalibrated   = "❓ Камера ещё не откалибрована. Начните с /calibrate"
	msgNotCollecting   = "❓ Сбор снимков не начат. Отправьте /calibrate"
	msgAwaitDistorted  = "📸 Пришлите снимок, который нужно исправить (%s)."
	msgUndistortError  = "⚠️ Не удалось исправить снимок."
	msgCancelled       = "❌ Операция отменена."
	msgSendCommand     = "📋 Выберите команду: /calibrate, /undistort или /help."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgBusy            = "⏳ Калибровка ещё идёт, подождите."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте ещё раз."
)

// Bot представляет Telegram-бота
type Bot struct {
	api      *tgbotapi.BotAPI
	workflow *app.WorkflowService
	pattern  *entity.PatternGeometry
	log      logrus.FieldLogger
}

// NewBot создаёт нового бота
func NewBot(token string, workflow *app.WorkflowService, pattern *entity.PatternGeometry, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:      api,
		workflow: workflow,
		pattern:  pattern,
		log:      log,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	user, err := b.workflow.User(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.log.WithError(err).Error("Error getting user")
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка фото и файлов
	if fileID, ok := imageFileID(msg); ok {
		b.handlePhoto(ctx, msg, user, fileID)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendCommand)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	if user.State == entity.StateProcessing && msg.Command() != "help" {
		b.sendMessage(chatID, msgBusy)
		return
	}

	switch msg.Command() {
	case "start":
		if err := b.workflow.Forget(ctx, userID); err != nil {
			b.log.WithError(err).Warn("Error resetting user")
		}
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, fmt.Sprintf(msgHelp, b.pattern.Rows(), b.pattern.Cols()))

	case "calibrate":
		if _, err := b.workflow.BeginCalibration(ctx, userID, chatID); err != nil {
			b.log.WithError(err).Error("Error starting calibration")
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(msgCollecting, b.pattern.Rows(), b.pattern.Cols()))

	case "done":
		b.finishCalibration(ctx, userID, chatID)

	case "undistort", "remap":
		method := app.MethodDirect
		if msg.Command() == "remap" {
			method = app.MethodRemap
		}
		if _, err := b.workflow.BeginUndistort(ctx, userID, chatID, method); err != nil {
			if errors.Is(err, entity.ErrNotCalibrated) {
				b.sendMessage(chatID, msgNotCalibrated)
				return
			}
			b.log.WithError(err).Error("Error starting undistortion")
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(msgAwaitDistorted, method))

	case "result":
		result, ok := b.workflow.Result(userID)
		if !ok {
			b.sendMessage(chatID, msgNotCalibrated)
			return
		}
		b.sendMessage(chatID, FormatResult(result))

	case "cancel":
		b.cancel(ctx, userID, chatID)
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handlePhoto обрабатывает входящее фото в зависимости от состояния пользователя
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, user *entity.User, fileID string) {
	chatID := msg.Chat.ID

	switch user.State {
	case entity.StateCollectingPhotos:
		data, err := b.downloadFile(fileID)
		if err != nil {
			b.log.WithError(err).Error("Error downloading photo")
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		n, err := b.workflow.AddPhoto(ctx, msg.From.ID, chatID, data)
		if errors.Is(err, app.ErrTooManyPhotos) {
			b.sendMessage(chatID, msgTooManyPhotos)
			return
		}
		if errors.Is(err, app.ErrNotCollecting) {
			b.sendMessage(chatID, msgBusy)
			return
		}
		if err != nil {
			b.log.WithError(err).Error("Error adding photo")
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(msgPhotoAccepted, n))

	case entity.StateAwaitingDistorted:
		b.sendMessage(chatID, msgProcessing)

		data, err := b.downloadFile(fileID)
		if err != nil {
			b.log.WithError(err).Error("Error downloading photo")
			b.sendMessage(chatID, msgProcessingError)
			b.cancel(ctx, msg.From.ID, chatID)
			return
		}
		out, err := b.workflow.Undistort(ctx, msg.From.ID, chatID, data)
		if err != nil {
			b.log.WithError(err).Warn("Undistortion failed")
			b.sendMessage(chatID, msgUndistortError)
			return
		}
		b.sendPhoto(chatID, out, "undistorted.jpg")

	case entity.StateProcessing:
		b.sendMessage(chatID, msgBusy)

	default:
		b.sendMessage(chatID, msgSendCommand)
	}
}

// finishCalibration забирает снимки сразу, а считает в фоне, чтобы не держать цикл обновлений
func (b *Bot) finishCalibration(ctx context.Context, userID, chatID int64) {
	n := b.workflow.PhotoCount(userID)

	task, err := b.workflow.StartCalibration(ctx, userID, chatID)
	if errors.Is(err, app.ErrNotCollecting) {
		b.sendMessage(chatID, msgNotCollecting)
		return
	}
	if err != nil {
		b.log.WithError(err).Error("Error starting calibration run")
		b.sendMessage(chatID, msgProcessingError)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(msgCalibrating, n))

	go func() {
		report, err := task.Wait(ctx)
		switch {
		case errors.Is(err, entity.ErrEmptyInput):
			b.sendMessage(chatID, msgNoViews)
		case err != nil:
			b.log.WithError(err).WithField("user", userID).Warn("Calibration failed")
			b.sendMessage(chatID, msgCalibrateError)
		default:
			b.sendMessage(chatID, FormatReport(report))
		}
	}()
}

func (b *Bot) cancel(ctx context.Context, userID, chatID int64) {
	if _, err := b.workflow.Cancel(ctx, userID, chatID); err != nil {
		b.log.WithError(err).Error("Error cancelling")
	}
}

// imageFileID берёт фото с максимальным разрешением или файл-изображение
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).Error("Error sending message")
	}
}

// sendPhoto отправляет изображение
func (b *Bot) sendPhoto(chatID int64, data []byte, name string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := b.api.Send(photo); err != nil {
		b.log.WithError(err).Error("Error sending photo")
	}
}
