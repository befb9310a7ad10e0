package model

import "time"

// User — учётная запись владельца тем.
type User struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Username     string    `json:"username" gorm:"size:150;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"not null"`
	DateJoined   time.Time `json:"date_joined" gorm:"not null"`
}
