package domain

import "time"

// Record — сохранённая запись партии.
type Record struct {
	Key       string    `json:"key" bson:"key"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	SGF       string    `json:"sgf" bson:"sgf"`
	BoardSize int       `json:"board_size" bson:"board_size"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Navigation — положение клиента в записи: какой файл открыт и на каком
// узле он стоит. Живёт в Redis по идентификатору сессии.
type Navigation struct {
	RecordKey   string `json:"record_key"`
	CurrentNode int    `json:"current_node"`
}
