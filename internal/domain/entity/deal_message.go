package entity

import "time"

// DealMessage — сообщение из переписки по сделке, используется как доказательство в спорах.
type DealMessage struct {
	ID        int64
	DealID    int64
	SenderID  int64
	Text      string
	CreatedAt time.Time
}
