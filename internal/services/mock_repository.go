package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"breeze/internal/infrastructure/errors"
	"breeze/internal/repository"
	"breeze/internal/types"
)

// MockRepository implements the StateRepository interface for testing
type MockRepository struct {
	mu           sync.RWMutex
	kv           map[string][]byte
	accumulators map[types.Metric]map[int64]int64
	heartbeats   []types.ActivityHeartbeat

	putCallCount       int
	getCallCount       int
	accumulatorCalls   int
	heartbeatCallCount int
	transactionCalls   int
	deleteCallCount    int

	shouldFailSave bool
	shouldFailLoad bool
	shouldFailTx   bool
}

var _ repository.StateRepository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		kv:           make(map[string][]byte),
		accumulators: make(map[types.Metric]map[int64]int64),
	}
}

// SetFailureModes configures the mock to simulate failures
func (m *MockRepository) SetFailureModes(save, load, tx bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailSave = save
	m.shouldFailLoad = load
	m.shouldFailTx = tx
}

// CallCounts is a snapshot of how often each group of methods ran
type CallCounts struct {
	Put, Get, Accumulators, Heartbeats, Transactions, Deletes int
}

func (m *MockRepository) GetCallCounts() CallCounts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CallCounts{
		Put:          m.putCallCount,
		Get:          m.getCallCount,
		Accumulators: m.accumulatorCalls,
		Heartbeats:   m.heartbeatCallCount,
		Transactions: m.transactionCalls,
		Deletes:      m.deleteCallCount,
	}
}

func (m *MockRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCallCount++
	if m.shouldFailLoad {
		return nil, errors.NewRepositoryError("Get", fmt.Errorf("mock load failure"), errors.ErrCodeConnection)
	}

	v, ok := m.kv[key]
	if !ok {
		return nil, errors.HandleNotFound("Get", "kv", key)
	}
	return append([]byte(nil), v...), nil
}

func (m *MockRepository) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.putCallCount++
	if m.shouldFailSave {
		return errors.NewRepositoryError("Put", fmt.Errorf("mock save failure"), errors.ErrCodeConnection)
	}

	m.kv[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailSave {
		return errors.NewRepositoryError("Delete", fmt.Errorf("mock delete failure"), errors.ErrCodeConnection)
	}
	delete(m.kv, key)
	return nil
}

func (m *MockRepository) SaveAccumulators(ctx context.Context, accs []types.DailyAccumulator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accumulatorCalls++
	if m.shouldFailSave {
		return errors.NewRepositoryError("SaveAccumulators", fmt.Errorf("mock save failure"), errors.ErrCodeConnection)
	}

	for _, acc := range accs {
		if m.accumulators[acc.Metric] == nil {
			m.accumulators[acc.Metric] = make(map[int64]int64)
		}
		m.accumulators[acc.Metric][acc.Day] = acc.Seconds
	}
	return nil
}

func (m *MockRepository) GetAccumulators(ctx context.Context, day int64) ([]types.DailyAccumulator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCallCount++
	if m.shouldFailLoad {
		return nil, errors.NewRepositoryError("GetAccumulators", fmt.Errorf("mock load failure"), errors.ErrCodeConnection)
	}

	var out []types.DailyAccumulator
	for _, metric := range types.AllMetrics {
		if seconds, ok := m.accumulators[metric][day]; ok {
			out = append(out, types.DailyAccumulator{Metric: metric, Day: day, Seconds: seconds})
		}
	}
	return out, nil
}

func (m *MockRepository) GetAccumulatorHistory(ctx context.Context, metric types.Metric, fromDay, toDay int64) ([]types.DailyAccumulator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCallCount++
	if m.shouldFailLoad {
		return nil, errors.NewRepositoryError("GetAccumulatorHistory", fmt.Errorf("mock load failure"), errors.ErrCodeConnection)
	}

	var out []types.DailyAccumulator
	for day, seconds := range m.accumulators[metric] {
		if day >= fromDay && day <= toDay {
			out = append(out, types.DailyAccumulator{Metric: metric, Day: day, Seconds: seconds})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (m *MockRepository) SaveHeartbeat(ctx context.Context, hb types.ActivityHeartbeat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.heartbeatCallCount++
	if m.shouldFailSave {
		return errors.NewRepositoryError("SaveHeartbeat", fmt.Errorf("mock save failure"), errors.ErrCodeConnection)
	}
	m.heartbeats = append(m.heartbeats, hb)
	return nil
}

func (m *MockRepository) GetHeartbeats(ctx context.Context, sinceMs int64, limit int) ([]types.ActivityHeartbeat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailLoad {
		return nil, errors.NewRepositoryError("GetHeartbeats", fmt.Errorf("mock load failure"), errors.ErrCodeConnection)
	}

	var out []types.ActivityHeartbeat
	for _, hb := range m.heartbeats {
		if hb.Timestamp >= sinceMs {
			out = append(out, hb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRepository) DeleteOldData(ctx context.Context, olderThan time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteCallCount++
	if m.shouldFailSave {
		return errors.NewRepositoryError("DeleteOldData", fmt.Errorf("mock delete failure"), errors.ErrCodeConnection)
	}

	cutoff := olderThan.UnixMilli()
	for _, days := range m.accumulators {
		for day := range days {
			if day < cutoff {
				delete(days, day)
			}
		}
	}
	kept := m.heartbeats[:0]
	for _, hb := range m.heartbeats {
		if hb.Timestamp >= cutoff {
			kept = append(kept, hb)
		}
	}
	m.heartbeats = kept
	return nil
}

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repo repository.StateRepository) error) error {
	m.mu.Lock()
	m.transactionCalls++
	fail := m.shouldFailTx
	m.mu.Unlock()

	if fail {
		return errors.NewRepositoryError("WithTransaction", fmt.Errorf("mock transaction failure"), errors.ErrCodeTransaction)
	}
	return fn(m)
}

func (m *MockRepository) Health(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.shouldFailLoad {
		return errors.HandleConnectionError("Health", "mock repository unavailable")
	}
	return nil
}

// Heartbeats returns a copy of every saved heartbeat
func (m *MockRepository) Heartbeats() []types.ActivityHeartbeat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.ActivityHeartbeat(nil), m.heartbeats...)
}

// Raw returns the stored bytes for key without counting a call
func (m *MockRepository) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.kv[key]
	return v, ok
}

// Seconds returns the stored accumulator for {metric, day}
func (m *MockRepository) Seconds(metric types.Metric, day int64) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.accumulators[metric][day]
	return v, ok
}
