// Package history keeps a local ledger of mined rounds.
package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	xdr "github.com/nullstyle/go-xdr/xdr3"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ore-hq/pool-miner/logging"
)

var ErrNotFound = leveldb.ErrNotFound

var roundPrefix = []byte("round/")

// Record is the outcome of a single round.
type Record struct {
	RoundID    uint64
	Nonce      uint64
	Digest     []byte
	Difficulty uint32
	Hashes     uint64
	Outcome    string
	// SubmittedAt in unix milliseconds.
	SubmittedAt int64
}

func (r *Record) Time() time.Time {
	return time.UnixMilli(r.SubmittedAt)
}

// implement zap.ObjectMarshaler interface.
func (r *Record) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("round", r.RoundID)
	enc.AddUint64("nonce", r.Nonce)
	enc.AddUint32("difficulty", r.Difficulty)
	enc.AddUint64("hashes", r.Hashes)
	enc.AddString("outcome", r.Outcome)
	enc.AddTime("submitted_at", r.Time())
	return nil
}

// DB is a LevelDB backed round ledger. Records are keyed by round id,
// a later record of the same round overwrites the earlier one.
type DB struct {
	db *leveldb.DB
}

func Open(dbPath string) (*DB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database @ %s: %w", dbPath, err)
	}
	return &DB{db: db}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func roundKey(roundID uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", roundPrefix, roundID))
}

func (db *DB) Save(ctx context.Context, rec Record) error {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, rec); err != nil {
		return fmt.Errorf("serialization failure: %w", err)
	}
	if err := db.db.Put(roundKey(rec.RoundID), buf.Bytes(), &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("storing round %d in DB: %w", rec.RoundID, err)
	}
	logging.FromContext(ctx).Debug("saved round record", zap.Object("record", &rec))
	return nil
}

func (db *DB) Get(roundID uint64) (*Record, error) {
	data, err := db.db.Get(roundKey(roundID), nil)
	if err != nil {
		return nil, fmt.Errorf("get round %d from DB: %w", roundID, err)
	}
	return deserialize(data)
}

// LastRound returns the highest recorded round id. ok is false for an empty ledger.
func (db *DB) LastRound() (roundID uint64, ok bool, err error) {
	iter := db.db.NewIterator(util.BytesPrefix(roundPrefix), nil)
	defer iter.Release()
	if !iter.Last() {
		return 0, false, iter.Error()
	}
	rec, err := deserialize(iter.Value())
	if err != nil {
		return 0, false, err
	}
	return rec.RoundID, true, nil
}

// Recent returns up to n records, newest round first. n <= 0 returns all of them.
func (db *DB) Recent(n int) ([]Record, error) {
	iter := db.db.NewIterator(util.BytesPrefix(roundPrefix), nil)
	defer iter.Release()

	var records []Record
	for ok := iter.Last(); ok && (n <= 0 || len(records) < n); ok = iter.Prev() {
		rec, err := deserialize(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", iter.Key(), err)
		}
		records = append(records, *rec)
	}
	if err := iter.Error(); err != nil && !errors.Is(err, leveldb.ErrNotFound) {
		return nil, err
	}
	return records, nil
}

func deserialize(data []byte) (*Record, error) {
	rec := &Record{}
	if _, err := xdr.Unmarshal(bytes.NewReader(data), rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize: %w", err)
	}
	return rec, nil
}
