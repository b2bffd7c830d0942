package execution

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// OrderStore persists order responses.
type OrderStore interface {
	SaveOrders(responses []types.OrderResponse) error
}

// OrderLog is a JSON file holding every order response in submission order.
// Saving reads the whole file, appends and rewrites it; the write is not atomic.
type OrderLog struct {
	path string
	mu   sync.Mutex
}

// NewOrderLog creates an order log backed by path. The file is created on first save.
func NewOrderLog(path string) *OrderLog {
	return &OrderLog{path: path, mu: sync.Mutex{}}
}

// Path returns the file path of the log.
func (l *OrderLog) Path() string {
	return l.path
}

// Load returns the logged responses. A missing or empty file yields an empty list.
func (l *OrderLog) Load() ([]types.OrderResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.load()
}

// SaveOrders appends responses to the log.
func (l *OrderLog) SaveOrders(responses []types.OrderResponse) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.load()
	if err != nil {
		return err
	}

	existing = append(existing, responses...)

	data, err := json.MarshalIndent(existing, "", "    ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeOrderLogWriteFailed, "failed to encode order log", err)
	}

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(errors.ErrCodeOrderLogWriteFailed, err, "failed to create order log directory %s", dir)
		}
	}

	if err := os.WriteFile(l.path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrapf(errors.ErrCodeOrderLogWriteFailed, err, "failed to write order log %s", l.path)
	}

	return nil
}

func (l *OrderLog) load() ([]types.OrderResponse, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.OrderResponse{}, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeOrderLogReadFailed, err, "failed to read order log %s", l.path)
	}

	responses := []types.OrderResponse{}
	if len(data) == 0 {
		return responses, nil
	}

	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeOrderLogReadFailed, err, "failed to decode order log %s", l.path)
	}

	return responses, nil
}
