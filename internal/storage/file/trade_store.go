package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/PxPatel/matching-service/internal/types"
)

// FileTradeStore implements TradeStore as an append-only JSON-lines audit log.
// Writes are synchronous and serialized, so the file order is the ledger order.
// GetRecent reads the log back; put an in-memory store in front of it for hot reads.
type FileTradeStore struct {
	path    string
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mutex   sync.Mutex
}

// NewFileTradeStore creates a new file-based trade store
func NewFileTradeStore(filePath string) (*FileTradeStore, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create trade log directory: %w", err)
		}
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log: %w", err)
	}

	writer := bufio.NewWriter(file)
	return &FileTradeStore{
		path:    filePath,
		file:    file,
		writer:  writer,
		encoder: json.NewEncoder(writer),
	}, nil
}

func (s *FileTradeStore) Save(ctx context.Context, trade *types.Trade) error {
	return s.SaveBatch(ctx, []*types.Trade{trade})
}

func (s *FileTradeStore) SaveBatch(_ context.Context, trades []*types.Trade) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, trade := range trades {
		if err := s.encoder.Encode(trade); err != nil {
			return fmt.Errorf("append trade %d: %w", trade.TradeID, err)
		}
	}
	return s.writer.Flush()
}

// GetRecent scans the whole log; it is meant for recovery and audits, not hot paths
func (s *FileTradeStore) GetRecent(_ context.Context, symbol string, limit int) ([]*types.Trade, error) {
	s.mutex.Lock()
	if err := s.writer.Flush(); err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	s.mutex.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	var all []*types.Trade
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var trade types.Trade
		if err := json.Unmarshal(scanner.Bytes(), &trade); err != nil {
			// a torn last line after a crash is skipped
			continue
		}
		if symbol != "" && trade.Symbol != symbol {
			continue
		}
		all = append(all, &trade)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	result := make([]*types.Trade, 0, limit)
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, all[i])
	}
	return result, nil
}

func (s *FileTradeStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.file == nil {
		return nil
	}
	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
