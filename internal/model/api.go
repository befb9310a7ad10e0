package model

// TopicResponse представляет тему в ответе JSON API.
type TopicResponse struct {
	Topic   *Topic   `json:"topic"`
	Entries []*Entry `json:"entries"`
}

// ErrorResponse представляет ошибку в ответе JSON API.
type ErrorResponse struct {
	Error string `json:"error"`
}
