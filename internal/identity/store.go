// File: internal/identity/store.go
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Metrics counts the interactions performed by one account across all
// sessions.
type Metrics struct {
	Likes    int `json:"likes"`
	Reposts  int `json:"reposts"`
	Replies  int `json:"replies"`
	Quotes   int `json:"quotes"`
	Follows  int `json:"follows"`
	Comments int `json:"comments"`
}

// Record is the stored metadata for one account, keyed by handle. The
// token is kept verbatim so a later run can reuse it without the token
// file; masking is a logging concern, never a storage one.
type Record struct {
	AuthToken   string    `json:"auth_token"`
	TokenMask   string    `json:"token_mask"`
	LastSession time.Time `json:"last_session"`
	Metrics     Metrics   `json:"metrics"`
}

// Store persists per-account metadata as a JSON object keyed by handle.
// Every mutation is a full read-modify-write so concurrent runs against
// the same file never see a torn state.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// NewStore creates a store backed by the given file. The file need not
// exist yet; the first write creates it along with its parent directory.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand store path %q: %w", path, err)
	}
	return &Store{path: expanded, logger: logger.Named("identity.store")}, nil
}

// Get returns the record for a handle, or a zero record if none exists.
func (s *Store) Get(handle string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Record{}, err
	}
	return records[handle], nil
}

// Upsert updates the record for a handle in place.
func (s *Store) Upsert(handle string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	rec := records[handle]
	fn(&rec)
	records[handle] = rec
	return s.save(records)
}

// TouchSession records a session start for the handle, stamping the
// token, its display mask, and the current time.
func (s *Store) TouchSession(handle, token string) error {
	return s.Upsert(handle, func(r *Record) {
		r.AuthToken = token
		r.TokenMask = MaskToken(token)
		r.LastSession = time.Now().UTC()
	})
}

// IncrementMetric bumps one named counter for the handle.
func (s *Store) IncrementMetric(handle, metric string) error {
	return s.Upsert(handle, func(r *Record) {
		switch metric {
		case "likes":
			r.Metrics.Likes++
		case "reposts":
			r.Metrics.Reposts++
		case "replies":
			r.Metrics.Replies++
		case "quotes":
			r.Metrics.Quotes++
		case "follows":
			r.Metrics.Follows++
		case "comments":
			r.Metrics.Comments++
		default:
			s.logger.Warn("Unknown metric name ignored.", zap.String("metric", metric))
		}
	})
}

// load reads the whole store file. A missing file yields an empty map.
func (s *Store) load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]Record), nil
		}
		return nil, fmt.Errorf("failed to read metadata store: %w", err)
	}

	records := make(map[string]Record)
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		// A corrupt store should not kill the run; start fresh and keep
		// the damaged file aside for inspection.
		s.logger.Warn("Metadata store is corrupt; starting fresh.",
			zap.String("path", s.path),
			zap.Error(err),
		)
		_ = os.Rename(s.path, s.path+".corrupt")
		return make(map[string]Record), nil
	}
	return records, nil
}

// save writes the store atomically: marshal to a temp file in the same
// directory, then rename over the target.
func (s *Store) save(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata store: %w", err)
	}
	return nil
}
