package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory
	// (~/.gallery-sync/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	appBucket   = []byte("app")
	tokenKey    = []byte("token")
	positionKey = []byte("last_position")
)

// LastPosition records where the user was when the client last shut down,
// so the next session can attempt to resume there. AlbumID is empty when
// the user was browsing folders rather than inside an album.
type LastPosition struct {
	NodeID  string `json:"node_id"`
	AlbumID string `json:"album_id"`
	Name    string `json:"name"`
}

// State wraps a bbolt database for locally cached session data: the auth
// token and the last navigation position. The remote store remains the
// sole source of truth for everything else.
type State struct {
	db *bolt.DB
}

// Load opens the state database at ~/.gallery-sync/state.db, creating it
// if it does not exist.
func Load() (*State, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}

	return LoadAt(path)
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. Useful for tests that need an isolated database.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(appBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// Token returns the cached authentication token, or empty string.
func (s *State) Token() string {
	var token string

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(tokenKey)
		if v != nil {
			token = string(v)
		}

		return nil
	})

	return token
}

// SetToken persists the authentication token.
func (s *State) SetToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(tokenKey, []byte(token))
	})
}

// ClearToken removes the cached authentication token.
func (s *State) ClearToken() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Delete(tokenKey)
	})
}

// LastPosition returns the saved navigation position, or nil when the
// client has never recorded one.
func (s *State) LastPosition() (*LastPosition, error) {
	var pos *LastPosition

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(positionKey)
		if v == nil {
			return nil
		}

		pos = &LastPosition{}

		return json.Unmarshal(v, pos)
	})

	return pos, err
}

// SetLastPosition persists the navigation position for the next session.
func (s *State) SetLastPosition(pos LastPosition) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(pos)
		if err != nil {
			return err
		}

		return tx.Bucket(appBucket).Put(positionKey, data)
	})
}

// ClearLastPosition removes the saved navigation position.
func (s *State) ClearLastPosition() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Delete(positionKey)
	})
}

func dbPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(dir, ".gallery-sync", "state.db"), nil
}
