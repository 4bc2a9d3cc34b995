// Package journal persists the last acknowledged snapshot per room so a
// restarted host can rebuild its in-memory state instead of silently
// reverting the game. Only the rejoin snapshot is durable; room metadata
// persistence lives elsewhere.
package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("no journaled snapshot for room")

type Store interface {
	Save(ctx context.Context, roomCode string, version int, snapshot []byte) error
	Load(ctx context.Context, roomCode string) (version int, snapshot []byte, err error)
	Delete(ctx context.Context, roomCode string) error
}

type snapshotRecord struct {
	RoomCode  string `gorm:"primaryKey;size:16"`
	Version   int
	Payload   []byte
	UpdatedAt time.Time
}

func (snapshotRecord) TableName() string { return "room_snapshots" }

type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects and migrates the snapshot table.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&snapshotRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, roomCode string, version int, snapshot []byte) error {
	rec := snapshotRecord{RoomCode: roomCode, Version: version, Payload: snapshot}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "payload", "updated_at"}),
	}).Create(&rec).Error
}

func (s *GormStore) Load(ctx context.Context, roomCode string) (int, []byte, error) {
	var rec snapshotRecord
	err := s.db.WithContext(ctx).First(&rec, "room_code = ?", roomCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil, ErrNotFound
	}
	if err != nil {
		return 0, nil, err
	}
	return rec.Version, rec.Payload, nil
}

func (s *GormStore) Delete(ctx context.Context, roomCode string) error {
	return s.db.WithContext(ctx).Delete(&snapshotRecord{}, "room_code = ?", roomCode).Error
}

// MemStore is the in-process fallback used when no DSN is configured,
// and by tests.
type MemStore struct {
	mu   sync.Mutex
	rows map[string]snapshotRecord
}

func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[string]snapshotRecord)}
}

func (s *MemStore) Save(_ context.Context, roomCode string, version int, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := append([]byte(nil), snapshot...)
	s.rows[roomCode] = snapshotRecord{RoomCode: roomCode, Version: version, Payload: payload, UpdatedAt: time.Now()}
	return nil
}

func (s *MemStore) Load(_ context.Context, roomCode string) (int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[roomCode]
	if !ok {
		return 0, nil, ErrNotFound
	}
	return rec.Version, append([]byte(nil), rec.Payload...), nil
}

func (s *MemStore) Delete(_ context.Context, roomCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, roomCode)
	return nil
}
