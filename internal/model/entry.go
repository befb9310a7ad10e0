package model

import "time"

const summaryLen = 50

// Entry — датированная запись внутри одной темы.
type Entry struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TopicID   int64     `json:"topic_id" gorm:"not null;index:idx_entries_topic_date,priority:1"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	DateAdded time.Time `json:"date_added" gorm:"not null;index:idx_entries_topic_date,priority:2"`
}

// Summary возвращает первые 50 символов текста записи.
func (e *Entry) Summary() string {
	runes := []rune(e.Text)
	if len(runes) <= summaryLen {
		return e.Text
	}
	return string(runes[:summaryLen]) + "..."
}

func (e *Entry) String() string {
	return e.Summary()
}
