// Package client is the Go client for the OBD SuperStar service: it starts
// pipeline runs, follows their progress stream, resumes interrupted runs
// from a durable handle, polls audio render jobs, and joins per-campaign
// collaboration channels.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RunStore is the single durable slot holding the job id of the one pipeline
// run being tracked. It is written when a run starts and cleared exactly once
// when the run is observed to be terminal; everything else about a run is
// reconstructed from the server.
type RunStore interface {
	Get() (jobID string, ok bool)
	Set(jobID string) error
	Clear() error
}

// FileRunStore keeps the slot in a small JSON file so it survives process
// restarts, the same role browser localStorage plays for a web client.
type FileRunStore struct {
	mu   sync.Mutex
	path string
}

type runRecord struct {
	JobID string `json:"jobId"`
}

// NewFileRunStore stores the slot at the given path.
func NewFileRunStore(path string) *FileRunStore {
	return &FileRunStore{path: path}
}

// DefaultFileRunStore places the slot under the user config directory.
func DefaultFileRunStore() (*FileRunStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config dir: %w", err)
	}
	base := filepath.Join(dir, "obdsuperstar")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}
	return NewFileRunStore(filepath.Join(base, "active_run.json")), nil
}

func (s *FileRunStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	var rec runRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.JobID == "" {
		return "", false
	}
	return rec.JobID, true
}

func (s *FileRunStore) Set(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(runRecord{JobID: jobID})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileRunStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryRunStore is an in-process RunStore for tests.
type MemoryRunStore struct {
	mu    sync.Mutex
	jobID string
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{}
}

func (s *MemoryRunStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID, s.jobID != ""
}

func (s *MemoryRunStore) Set(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobID = jobID
	return nil
}

func (s *MemoryRunStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobID = ""
	return nil
}
