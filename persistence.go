package main

import (
	"encoding/json"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// SnapshotStore persists host-view game snapshots so a host can resume a game
// after the server restarts. Implementations must be safe for concurrent use.
type SnapshotStore interface {
	SaveGameState(userID, gameCode string, state *GameState) error
	// LoadGameState returns (nil, nil) when no snapshot exists.
	LoadGameState(userID, gameCode string) (*GameState, error)
	Close() error
}

var errIncompatibleSnapshot = errors.New("this saved game is no longer compatible with the current server version")

const snapshotBucket = "snapshots"

// boltStore keeps snapshots in a single-bucket bbolt file, keyed by
// userID/gameCode, as JSON blobs.
type boltStore struct {
	db *bolt.DB
}

func newBoltStore(path string) (*boltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snapshot store: %w", err)
	}

	return &boltStore{db: db}, nil
}

func snapshotKey(userID, gameCode string) []byte {
	return []byte(userID + "/" + gameCode)
}

func (s *boltStore) SaveGameState(userID, gameCode string, state *GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(snapshotBucket)).Put(snapshotKey(userID, gameCode), data)
	})
}

func (s *boltStore) LoadGameState(userID, gameCode string) (*GameState, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(snapshotBucket)).Get(snapshotKey(userID, gameCode)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	state := &GameState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, errIncompatibleSnapshot
	}

	return state, nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

// noopStore is used when no database path is configured. Saves vanish, loads
// find nothing.
type noopStore struct{}

func (noopStore) SaveGameState(string, string, *GameState) error   { return nil }
func (noopStore) LoadGameState(string, string) (*GameState, error) { return nil, nil }
func (noopStore) Close() error                                     { return nil }
