package client

import (
	"errors"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// TokenKey is the fixed key the bearer token is kept under.
const TokenKey = "auth_token"

var bucketClient = []byte("client")

// TokenStore persists the bearer token between calls. An empty token means
// signed out.
type TokenStore interface {
	Token() (string, error)
	SetToken(tok string) error
	ClearToken() error
}

type MemoryTokenStore struct {
	mu  sync.RWMutex
	tok string
}

func (m *MemoryTokenStore) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tok, nil
}

func (m *MemoryTokenStore) SetToken(tok string) error {
	m.mu.Lock()
	m.tok = tok
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) ClearToken() error { return m.SetToken("") }

// BoltTokenStore keeps the token in a bbolt file so it survives restarts,
// like browser local storage.
type BoltTokenStore struct {
	db *bbolt.DB
}

func OpenBoltTokenStore(path string) (*BoltTokenStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketClient)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltTokenStore{db: db}, nil
}

func (s *BoltTokenStore) Close() error { return s.db.Close() }

func (s *BoltTokenStore) Token() (string, error) {
	var tok string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketClient)
		if b == nil {
			return errors.New("client bucket not found")
		}
		if v := b.Get([]byte(TokenKey)); v != nil {
			tok = string(v)
		}
		return nil
	})
	return tok, err
}

func (s *BoltTokenStore) SetToken(tok string) error {
	if tok == "" {
		return s.ClearToken()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClient).Put([]byte(TokenKey), []byte(tok))
	})
}

func (s *BoltTokenStore) ClearToken() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClient).Delete([]byte(TokenKey))
	})
}
