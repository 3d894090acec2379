package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_progress_store_updated_at ON progress_store(updated_at);

CREATE TABLE IF NOT EXISTS chat_links (
    chat_id INTEGER NOT NULL,
    nupcan TEXT NOT NULL,
    linked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (chat_id, nupcan)
);

CREATE INDEX IF NOT EXISTS idx_chat_links_nupcan ON chat_links(nupcan);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const defaultSettings = `
INSERT OR IGNORE INTO settings (key, value) VALUES
    ('welcome_message', 'Bienvenue ! Envoyez /suivre <NUPCAN> pour suivre votre candidature.'),
    ('unknown_command_message', 'Commande inconnue. Commandes : /suivre, /oublier, /progression, /statut, /candidater, /confirmer, /renseigner, /abandonner'),
    ('completed_message', 'Votre candidature est complète.');
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return err
	}

	_, err = db.Exec(defaultSettings)
	return err
}
