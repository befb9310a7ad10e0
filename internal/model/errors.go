package model

import "errors"

var (
	// ErrNotFound возвращается хранилищем, когда запись отсутствует.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate возвращается при нарушении уникальности (например, имени пользователя).
	ErrDuplicate = errors.New("record already exists")
)
