package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PositionStatus tracks the lifecycle of a managed position.
type PositionStatus string

const (
	StatusActive  PositionStatus = "active"
	StatusPaused  PositionStatus = "paused"
	StatusStopped PositionStatus = "stopped"
)

// PositionRecord is the persisted decision state of one managed position.
// The monitor is the only writer; the calculation engine never touches it.
type PositionRecord struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Timeframe string `json:"timeframe"`

	Status         PositionStatus `json:"status"`
	CurrentStop    *float64       `json:"current_stop,omitempty"`
	CalculatedStop float64        `json:"calculated_stop"`
	LastRegime     int            `json:"last_regime"`
	BarsSinceOpen  int            `json:"bars_since_open"`

	EntryPrice    float64   `json:"entry_price,omitempty"`
	Size          float64   `json:"size,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OperationRecord is one entry of the append-only operation log.
type OperationRecord struct {
	Time       time.Time `json:"time"`
	PositionID string    `json:"position_id"`
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"` // "update_stop", "info", "error"
	Message    string    `json:"message"`
	OldValue   *float64  `json:"old_value,omitempty"`
	NewValue   *float64  `json:"new_value,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// Store persists position records and the operation log under a state
// directory. Writes go through a temp file plus rename so a crash never
// leaves a half-written record behind.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates the state directory if needed and returns a store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, fmt.Sprintf("position_%s.json", id))
}

func (s *Store) operationsPath() string {
	return filepath.Join(s.dir, "operations.jsonl")
}

// SavePosition writes the record for one position.
func (s *Store) SavePosition(rec *PositionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal position record: %w", err)
	}

	path := s.recordPath(rec.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write position record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit position record: %w", err)
	}
	return nil
}

// LoadPosition reads the record for one position. The boolean reports whether
// a record existed.
func (s *Store) LoadPosition(id string) (*PositionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.recordPath(id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read position record: %w", err)
	}

	var rec PositionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to parse position record %s: %w", id, err)
	}
	return &rec, true, nil
}

// RetirePosition removes the record of a closed position.
func (s *Store) RetirePosition(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.recordPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to retire position record: %w", err)
	}
	return nil
}

// AppendOperation appends one entry to the operation log.
func (s *Store) AppendOperation(op OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op.Time.IsZero() {
		op.Time = time.Now().UTC()
	}

	line, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation record: %w", err)
	}

	f, err := os.OpenFile(s.operationsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open operation log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append operation record: %w", err)
	}
	return nil
}

// ReadOperations returns all entries of the operation log, oldest first.
func (s *Store) ReadOperations() ([]OperationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.operationsPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}

	var ops []OperationRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var op OperationRecord
		if err := dec.Decode(&op); err != nil {
			return nil, fmt.Errorf("failed to parse operation log: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}
