package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lopan-production/internal/metrics"
	"lopan-production/internal/policy"
	"lopan-production/internal/types"
)

// StatusProvider 是机台状态采集协作方的接口
// 采集失败返回包装了 ErrMachineUnreachable 的错误
type StatusProvider interface {
	FetchStatus(ctx context.Context, id types.MachineID) (types.MachineReadinessState, error)
}

// Tracker 维护每台机台的就绪状态缓存
// 缓存写入全部经过内部互斥锁串行化，避免撕裂读；
// 缓存超过 TTL 的读数在 Lookup 中被降级为未就绪，防止用过期状态放行审批
type Tracker struct {
	provider       StatusProvider
	clock          policy.Clock
	ttl            time.Duration
	refreshTimeout time.Duration
	sem            chan struct{} // 并发刷新信号量，限制同时访问物理设备的数量
	logger         *slog.Logger

	mu    sync.RWMutex
	cache map[types.MachineID]types.MachineReadinessState
}

// NewTracker 创建就绪追踪器
// maxConcurrent 限制 RefreshAll 同时发起的采集调用数量
func NewTracker(provider StatusProvider, clock policy.Clock, ttl, refreshTimeout time.Duration, maxConcurrent int, logger *slog.Logger) *Tracker {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Tracker{
		provider:       provider,
		clock:          clock,
		ttl:            ttl,
		refreshTimeout: refreshTimeout,
		sem:            make(chan struct{}, maxConcurrent),
		logger:         logger.With("component", "readiness-tracker"),
	}
}

// Current 返回机台的缓存状态（可能已过期），无读数时返回 nil
func (t *Tracker) Current(id types.MachineID) *types.MachineReadinessState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if state, ok := t.cache[id]; ok {
		cp := state
		return &cp
	}
	return nil
}

// Lookup 供冲突检测器使用的查询
// 过期读数即使最后一次为就绪也按未就绪返回，防止对过期机台状态做审批
func (t *Tracker) Lookup(id types.MachineID) *types.MachineReadinessState {
	state := t.Current(id)
	if state == nil {
		return nil
	}
	if t.clock.Now().Sub(state.LastChecked) > t.ttl {
		stale := *state
		stale.IsReady = false
		return &stale
	}
	return state
}

// Refresh 采集单台机台的最新状态并写入缓存
// 采集失败不会中断审批流程：缓存被写入一条未就绪读数，
// 让冲突检测器产生一个需要人工处理的冲突，而不是静默放行
func (t *Tracker) Refresh(ctx context.Context, id types.MachineID) (types.MachineReadinessState, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, t.refreshTimeout)
	defer cancel()

	start := t.clock.Now()
	state, err := t.provider.FetchStatus(fetchCtx, id)
	metrics.ReadinessRefreshDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())

	if err != nil {
		// 超时或不可达一律降级为未就绪，绝不默认就绪
		t.logger.Warn("机台状态采集失败，降级为未就绪", "machine_id", id, "error", err)
		state = types.MachineReadinessState{
			MachineID:   id,
			IsReady:     false,
			LastChecked: t.clock.Now(),
		}
		t.store(state)
		return state, fmt.Errorf("%w: %s: %v", types.ErrMachineUnreachable, id, err)
	}

	state.MachineID = id
	state.LastChecked = t.clock.Now()
	t.store(state)
	t.logger.Info("机台状态已刷新", "machine_id", id, "is_ready", state.IsReady, "is_running", state.IsRunning)
	return state, nil
}

// RefreshAll 并发刷新一组机台的状态
// 并发数受信号量约束；全部结果仍经过同一串行写入路径
func (t *Tracker) RefreshAll(ctx context.Context, ids []types.MachineID) {
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(machineID types.MachineID) {
			defer wg.Done()
			// 获取信号量凭证（控制并发数）
			select {
			case t.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-t.sem }()
			_, _ = t.Refresh(ctx, machineID)
		}(id)
	}
	wg.Wait()
}

// Seed 直接写入一条状态读数
// 启动恢复和测试使用
func (t *Tracker) Seed(state types.MachineReadinessState) {
	t.store(state)
}

func (t *Tracker) store(state types.MachineReadinessState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cache == nil {
		t.cache = make(map[types.MachineID]types.MachineReadinessState)
	}
	t.cache[state.MachineID] = state
}
