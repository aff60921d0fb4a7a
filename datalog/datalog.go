/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	datalog.go: Log air data samples to sqlite, bucketed into fixed time slots.
*/

package datalog

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	LOG_TIMESTAMP_RESOLUTION = 1 * time.Second
)

const schema = `CREATE TABLE IF NOT EXISTS samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	pressure_pa REAL NOT NULL,
	temperature_c REAL NOT NULL,
	count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS samples_timestamp ON samples(timestamp);`

var ErrClosed = errors.New("datalog: closed")

// Row is one bucket of averaged samples.
type Row struct {
	Time        time.Time
	Pressure    float64 // Pa
	Temperature float64 // degrees C
	Count       int
}

// Log writes averaged samples to a sqlite database. Add may be called from
// any goroutine.
type Log struct {
	mu     sync.Mutex
	db     *sql.DB
	insert *sql.Stmt

	bucket     time.Time
	pressSum   float64
	tempSum    float64
	count      int
	resolution time.Duration
}

func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	insert, err := db.Prepare("INSERT INTO samples (timestamp, pressure_pa, temperature_c, count) VALUES (?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db, insert: insert, resolution: LOG_TIMESTAMP_RESOLUTION}, nil
}

// Add accumulates a sample. When t leaves the current timestamp bucket the
// bucket's mean is written out.
func (l *Log) Add(t time.Time, pressure, temperature float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}
	slot := t.Truncate(l.resolution)
	var err error
	if !slot.Equal(l.bucket) {
		err = l.flush()
		l.bucket = slot
	}
	l.pressSum += pressure
	l.tempSum += temperature
	l.count++
	return err
}

// flush must be called with l.mu held.
func (l *Log) flush() error {
	if l.count == 0 {
		return nil
	}
	n := float64(l.count)
	_, err := l.insert.Exec(l.bucket.UnixMilli(), l.pressSum/n, l.tempSum/n, l.count)
	l.pressSum, l.tempSum, l.count = 0, 0, 0
	return err
}

// Since returns the rows at or after t in time order.
func (l *Log) Since(t time.Time) ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrClosed
	}
	rows, err := l.db.Query("SELECT timestamp, pressure_pa, temperature_c, count FROM samples WHERE timestamp >= ? ORDER BY timestamp", t.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			ms int64
			r  Row
		)
		if err := rows.Scan(&ms, &r.Pressure, &r.Temperature, &r.Count); err != nil {
			return nil, err
		}
		r.Time = time.UnixMilli(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes rows older than t and returns how many went.
func (l *Log) Prune(t time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return 0, ErrClosed
	}
	res, err := l.db.Exec("DELETE FROM samples WHERE timestamp < ?", t.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close flushes the open bucket and closes the database.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.flush()
	l.insert.Close()
	if cerr := l.db.Close(); err == nil {
		err = cerr
	}
	l.db = nil
	return err
}
