package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu          UserState = "main_menu"          // В главном меню
	StateCollectingPhotos  UserState = "collecting_photos"  // Собираем снимки шахматной доски
	StateProcessing        UserState = "processing"         // Идёт калибровка
	StateAwaitingDistorted UserState = "awaiting_distorted" // Ждём снимок для исправления
)

// User представляет пользователя бота
type User struct {
	ID       int64     // Telegram User ID
	ChatID   int64     // Telegram Chat ID
	State    UserState // Текущее состояние пользователя
	Strategy string    // Способ исправления для следующего снимка (direct/remap)
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// Clone возвращает независимую копию, чтобы хранилище не делило указатель с вызывающим.
func (u *User) Clone() *User {
	c := *u
	return &c
}
