package models

import "time"

// SessionRowID pins the sessions table to a single row; the client holds at
// most one signed-in session at a time.
const SessionRowID = 1

// Session persists the signed-in user's token and profile, whole-row
// overwrite on every sign-in.
type Session struct {
	ID        int       `gorm:"column:id;primaryKey"`
	Token     string    `gorm:"column:token;not null"`
	UserID    string    `gorm:"column:user_id;not null"`
	Name      string    `gorm:"column:name"`
	Email     string    `gorm:"column:email"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Session) TableName() string {
	return "sessions"
}
