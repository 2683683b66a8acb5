package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockPruner struct {
	mu       sync.Mutex
	calls    int
	lastDays int
	err      error
}

func (m *mockPruner) Prune(retentionDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastDays = retentionDays
	if m.err != nil {
		return 0, m.err
	}
	return 3, nil
}

func (m *mockPruner) snapshot() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, m.lastDays
}

func TestRunMaintenance(t *testing.T) {
	p := &mockPruner{}
	s := NewService(p, 14)
	s.runMaintenance()

	calls, days := p.snapshot()
	if calls != 1 {
		t.Errorf("prune calls = %d, want 1", calls)
	}
	if days != 14 {
		t.Errorf("retention days = %d, want 14", days)
	}
}

func TestRunMaintenance_ErrorIsLoggedNotFatal(t *testing.T) {
	p := &mockPruner{err: errors.New("db locked")}
	s := NewService(p, 14)
	s.runMaintenance()
	if calls, _ := p.snapshot(); calls != 1 {
		t.Errorf("prune calls = %d, want 1", calls)
	}
}

func TestStartStop_SchedulerFires(t *testing.T) {
	p := &mockPruner{}
	s := NewService(p, 7)
	s.SetSpec("* * * * * *")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		if calls, _ := p.snapshot(); calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("maintenance never fired")
		case <-time.After(50 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestStart_BadSpec(t *testing.T) {
	s := NewService(&mockPruner{}, 7)
	s.SetSpec("not a cron spec")
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
