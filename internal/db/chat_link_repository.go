package db

import (
	"database/sql"

	"github.com/ad/go-concours-candidature/internal/models"
)

type ChatLinkRepository struct {
	queue *DBQueue
}

func NewChatLinkRepository(queue *DBQueue) *ChatLinkRepository {
	return &ChatLinkRepository{queue: queue}
}

func (r *ChatLinkRepository) Link(chatID int64, nupcan string) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO chat_links (chat_id, nupcan) VALUES (?, ?)
			ON CONFLICT(chat_id, nupcan) DO NOTHING
		`, chatID, nupcan)
		return nil, err
	})
	return err
}

func (r *ChatLinkRepository) Unlink(chatID int64, nupcan string) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`DELETE FROM chat_links WHERE chat_id = ? AND nupcan = ?`, chatID, nupcan)
		return nil, err
	})
	return err
}

func (r *ChatLinkRepository) GetByChat(chatID int64) ([]*models.ChatLink, error) {
	return r.query(`
		SELECT chat_id, nupcan, linked_at FROM chat_links
		WHERE chat_id = ? ORDER BY linked_at, nupcan
	`, chatID)
}

func (r *ChatLinkRepository) GetByNupcan(nupcan string) ([]*models.ChatLink, error) {
	return r.query(`
		SELECT chat_id, nupcan, linked_at FROM chat_links
		WHERE nupcan = ? ORDER BY chat_id
	`, nupcan)
}

func (r *ChatLinkRepository) query(q string, arg interface{}) ([]*models.ChatLink, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(q, arg)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var links []*models.ChatLink
		for rows.Next() {
			var link models.ChatLink
			if err := rows.Scan(&link.ChatID, &link.Nupcan, &link.LinkedAt); err != nil {
				return nil, err
			}
			links = append(links, &link)
		}
		return links, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.ChatLink), nil
}
