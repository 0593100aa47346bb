// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package journal

import (
	"context"
	"database/sql"
	"math/big"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/garnerfi/garner/garner"
)

const entryTableSchema = `
create table if not exists entry (
	seq integer primary key autoincrement,
	op text not null,
	caller blob(20),
	amount blob,
	reward blob,
	timestamp decimal(32,0)
);

CREATE INDEX if not exists entryOpIndex on entry(op);
CREATE INDEX if not exists entryCallerIndex on entry(caller);
CREATE INDEX if not exists entryTimestampIndex on entry(timestamp);
`

// Journal is the append-only audit log of settled ledger operations.
type Journal struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open the journal at the given path.
func New(path string) (journal *Journal, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if journal == nil {
			db.Close()
		}
	}()
	if path == ":memory:" {
		// every new connection to :memory: opens a fresh empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(entryTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &Journal{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem create a journal in ram.
func NewMem() (*Journal, error) {
	return New(":memory:")
}

// Close close the journal.
func (j *Journal) Close() {
	j.db.Close()
}

func (j *Journal) Path() string {
	return j.path
}

// Record appends one settled operation. The sequence number is assigned
// on insert and written back to the entry.
func (j *Journal) Record(e *Entry) error {
	res, err := j.db.Exec(
		"INSERT INTO entry(op, caller, amount, reward, timestamp) VALUES(?, ?, ?, ?, ?);",
		e.Op,
		e.Caller.Bytes(),
		amountValue(e.Amount),
		amountValue(e.Reward),
		e.Timestamp,
	)
	if err != nil {
		return err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.Sequence = uint64(seq)
	return nil
}

// Ping verifies the underlying database is still reachable.
func (j *Journal) Ping() error {
	return j.db.Ping()
}

// Filter returns the entries matching the given filter, a nil filter
// matches everything.
func (j *Journal) Filter(ctx context.Context, filter *Filter) ([]*Entry, error) {
	if filter == nil {
		return j.queryEntries(ctx, "SELECT * FROM entry")
	}
	metricsHandleFilter(filter)

	var args []any
	stmt := "SELECT * FROM entry WHERE 1"
	if filter.Op != "" {
		args = append(args, filter.Op)
		stmt += " AND op = ? "
	}
	if filter.Caller != nil {
		args = append(args, filter.Caller.Bytes())
		stmt += " AND caller = ? "
	}
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND timestamp >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND timestamp <= ? "
		}
	}
	if filter.AfterSequence > 0 {
		args = append(args, filter.AfterSequence)
		stmt += " AND seq > ? "
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return j.queryEntries(ctx, stmt, args...)
}

func (j *Journal) queryEntries(ctx context.Context, stmt string, args ...any) ([]*Entry, error) {
	rows, err := j.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq       uint64
			op        string
			caller    []byte
			amount    []byte
			reward    []byte
			timestamp uint64
		)
		if err := rows.Scan(
			&seq,
			&op,
			&caller,
			&amount,
			&reward,
			&timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &Entry{
			Sequence:  seq,
			Op:        op,
			Caller:    garner.BytesToAddress(caller),
			Amount:    new(big.Int).SetBytes(amount),
			Reward:    new(big.Int).SetBytes(reward),
			Timestamp: timestamp,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func amountValue(v *big.Int) []byte {
	if v == nil {
		return []byte{}
	}
	return v.Bytes()
}
