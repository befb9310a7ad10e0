package model

import "time"

// Topic — тема, под которой пользователь ведёт записи.
type Topic struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Text      string    `json:"text" gorm:"size:200;not null"`
	DateAdded time.Time `json:"date_added" gorm:"not null;index:idx_topics_owner_date,priority:2"`
	OwnerID   string    `json:"-" gorm:"type:varchar(36);not null;index:idx_topics_owner_date,priority:1"`
}

// OwnedBy сообщает, принадлежит ли тема пользователю.
func (t *Topic) OwnedBy(userID string) bool {
	return t != nil && userID != "" && t.OwnerID == userID
}

func (t *Topic) String() string {
	return t.Text
}
