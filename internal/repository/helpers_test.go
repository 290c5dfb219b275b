package repository

import (
	"database/sql"
	"time"
)

func errNoRows() error {
	return sql.ErrNoRows
}

func testTime() time.Time {
	return time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC)
}
