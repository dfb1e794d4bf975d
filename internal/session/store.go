// Package session persists per-session state as JSON files on disk, one file
// per session id.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"github.com/trytheo/outreach/internal/outreach"
)

// Data is everything a session accumulates across upload, generation and
// review.
type Data struct {
	Template      string                        `json:"template,omitempty"`
	Columns       []string                      `json:"columns,omitempty"`
	Organizations []outreach.Organization       `json:"organizations,omitempty"`
	Results       []outreach.OrganizationResult `json:"results,omitempty"`
	Export        []outreach.ExportRow          `json:"export,omitempty"`
}

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

var idRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Load returns the session's data, or empty data when none exists yet.
func (s *Store) Load(id string) (Data, error) {
	path, err := s.path(id)
	if err != nil {
		return Data{}, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Data{}, nil
	}
	if err != nil {
		return Data{}, err
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return d, nil
}

// Save writes the session's data atomically.
func (s *Store) Save(id string, d Data) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) path(id string) (string, error) {
	if !idRe.MatchString(id) {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}
