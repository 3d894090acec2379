package services

import (
	"database/sql"
	"testing"

	"github.com/ad/go-concours-candidature/internal/db"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) (*db.DBQueue, func()) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.InitSchema(sqlDB); err != nil {
		t.Fatal(err)
	}

	queue := db.NewDBQueueForTest(sqlDB)
	return queue, func() {
		queue.Close()
		sqlDB.Close()
	}
}
