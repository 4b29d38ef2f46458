package notify

import (
	"database/sql"
	"strings"
)

// SQLiteRepo implements Repository over SQLite. Event lists are stored
// comma-joined; event names never contain commas.
type SQLiteRepo struct {
	DB *sql.DB
}

func (r *SQLiteRepo) Create(c Channel) (int64, error) {
	res, err := r.DB.Exec(`
INSERT INTO notification_channels(name, url, events, enabled) VALUES(?,?,?,?)
`, c.Name, c.URL, strings.Join(c.Events, ","), boolInt(c.Enabled))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) Update(id int64, c Channel) error {
	_, err := r.DB.Exec(`
UPDATE notification_channels SET name=?, url=?, events=?, enabled=? WHERE id=?
`, c.Name, c.URL, strings.Join(c.Events, ","), boolInt(c.Enabled), id)
	return err
}

func (r *SQLiteRepo) Delete(id int64) error {
	_, err := r.DB.Exec(`DELETE FROM notification_channels WHERE id=?`, id)
	return err
}

func (r *SQLiteRepo) List() ([]Channel, error) {
	rows, err := r.DB.Query(`SELECT id, name, url, events, enabled FROM notification_channels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []Channel
	for rows.Next() {
		var c Channel
		var events string
		var enabled int
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &events, &enabled); err != nil {
			continue
		}
		if events != "" {
			c.Events = strings.Split(events, ",")
		}
		c.Enabled = enabled != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
