package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tron-bridge/pkg/types"
)

const (
	DefaultHistoryFileName = ".tron-bridge-history.json"
)

// History persists submitted transfer records to a local JSON file
type History struct {
	filePath string
	mu       sync.RWMutex
	records  []types.TransferStatus
}

// historyFile represents the JSON structure on disk
type historyFile struct {
	Transfers []types.TransferStatus `json:"transfers"`
}

// NewHistory creates a history store backed by the given file
func NewHistory(filePath string) (*History, error) {
	if filePath == "" {
		// Default to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultHistoryFileName)
	}

	history := &History{
		filePath: filePath,
	}

	// Load existing records if the file exists
	if err := history.load(); err != nil {
		// Missing file is fine - it gets created on first append
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load transfer history: %w", err)
		}
	}

	return history, nil
}

// load reads records from the history file
func (h *History) load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := os.ReadFile(h.filePath)
	if err != nil {
		return err
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal transfer history: %w", err)
	}

	h.records = file.Transfers
	return nil
}

// save writes records to the history file
func (h *History) save() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	file := historyFile{
		Transfers: h.records,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transfer history: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(h.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := h.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write transfer history: %w", err)
	}

	if err := os.Rename(tempFile, h.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Append records a new transfer, newest first
func (h *History) Append(status types.TransferStatus) error {
	h.mu.Lock()
	h.records = append([]types.TransferStatus{status}, h.records...)
	h.mu.Unlock()

	return h.save()
}

// List returns all recorded transfers, newest first
func (h *History) List() []types.TransferStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := make([]types.TransferStatus, len(h.records))
	copy(records, h.records)
	return records
}

// Count returns the number of recorded transfers
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.records)
}

// GetFilePath returns the history file path
func (h *History) GetFilePath() string {
	return h.filePath
}
