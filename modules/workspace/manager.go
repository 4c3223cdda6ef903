package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"illustration-variation-server/modules/common/metrics"
)

const (
	// MaxWorkspaceAge - 활동과 무관하게 24시간 후 정리
	MaxWorkspaceAge = 24 * time.Hour

	idleCleanupInterval    = 5 * time.Minute
	expiredCleanupInterval = 30 * time.Minute
)

// Manager - workspace 관리 (세션 ID → Workspace)
type Manager struct {
	mu          sync.RWMutex
	workspaces  map[string]*Workspace
	idleTimeout time.Duration
	metrics     *metrics.Collector
	startTime   time.Time
}

// NewManager - metrics는 nil 허용
func NewManager(idleTimeout time.Duration, m *metrics.Collector) *Manager {
	return &Manager{
		workspaces:  make(map[string]*Workspace),
		idleTimeout: idleTimeout,
		metrics:     m,
		startTime:   time.Now(),
	}
}

// Create - 새 workspace 생성
func (m *Manager) Create() *Workspace {
	return m.GetOrCreate(uuid.New().String())
}

// GetOrCreate - workspace 가져오기 또는 생성
func (m *Manager) GetOrCreate(id string) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, exists := m.workspaces[id]
	if !exists {
		ws = newWorkspace(id)
		m.workspaces[id] = ws
		if m.metrics != nil {
			m.metrics.WorkspaceOpened()
		}
		log.Info().Msgf("✅ Created new workspace: %s (Active: %d)", id, len(m.workspaces))
	}
	return ws
}

// Get - 존재하는 workspace 조회
func (m *Manager) Get(id string) (*Workspace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, ok := m.workspaces[id]
	return ws, ok
}

// Count - 현재 workspace 수
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// CleanupIdle removes workspaces that have had no activity for idleTimeout, no
// connected clients and no run in flight. Returns the number removed.
func (m *Manager) CleanupIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cleaned := 0
	for id, ws := range m.workspaces {
		ws.mu.RLock()
		idle := now.Sub(ws.lastActivity) > m.idleTimeout &&
			len(ws.clients) == 0 &&
			!ws.outcome.IsPending()
		ws.mu.RUnlock()

		if idle {
			m.remove(id)
			cleaned++
			log.Info().Msgf("🧹 Cleaned up idle workspace: %s", id)
		}
	}

	if cleaned > 0 {
		log.Info().Msgf("🗑️  Cleaned up %d idle workspaces (Active: %d)", cleaned, len(m.workspaces))
	}
	return cleaned
}

// CleanupExpired removes workspaces older than MaxWorkspaceAge and disconnects
// their clients. Returns the number removed.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cleaned := 0
	for id, ws := range m.workspaces {
		ws.mu.RLock()
		age := now.Sub(ws.createdAt)
		ws.mu.RUnlock()

		if age > MaxWorkspaceAge {
			ws.disconnectAll()
			m.remove(id)
			cleaned++
			log.Info().Msgf("⏰ Cleaned up expired workspace: %s (Age: %v)", id, age)
		}
	}

	if cleaned > 0 {
		log.Info().Msgf("🧼 Cleaned up %d expired workspaces (Active: %d)", cleaned, len(m.workspaces))
	}
	return cleaned
}

// remove must be called with m.mu held.
func (m *Manager) remove(id string) {
	delete(m.workspaces, id)
	if m.metrics != nil {
		m.metrics.WorkspaceClosed()
	}
}

// StartCleanupRoutine - 정기적 정리 작업 시작 (ctx 종료 시 중단)
func (m *Manager) StartCleanupRoutine(ctx context.Context) {
	go m.every(ctx, idleCleanupInterval, func() { m.CleanupIdle() })
	go m.every(ctx, expiredCleanupInterval, func() { m.CleanupExpired() })

	log.Info().Msgf("🔄 Started workspace cleanup routines (Idle: %s after %s, Expired: %s)",
		idleCleanupInterval, m.idleTimeout, expiredCleanupInterval)
}

func (m *Manager) every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Uptime - 서버 시작 후 경과 시간
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startTime)
}
