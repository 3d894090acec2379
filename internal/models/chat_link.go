package models

import "time"

type ChatLink struct {
	ChatID   int64
	Nupcan   string
	LinkedAt time.Time
}
