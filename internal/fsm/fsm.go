package fsm

import (
	"fmt"
	"sync"

	"lopan-production/internal/types"
)

// Event 定义触发批次状态转移的事件
type Event string

const (
	EventSubmit   Event = "SUBMIT"   // 提交审批: DRAFT -> PENDING_APPROVAL
	EventApprove  Event = "APPROVE"  // 审批通过: PENDING_APPROVAL -> APPROVED
	EventSchedule Event = "SCHEDULE" // 确认执行时间: APPROVED -> PENDING_EXECUTION
	EventStart    Event = "START"    // 开始执行: PENDING_EXECUTION -> EXECUTING
	EventFinish   Event = "FINISH"   // 执行完成: EXECUTING -> COMPLETED
	EventReject   Event = "REJECT"   // 驳回: PENDING_APPROVAL -> REJECTED
	EventCancel   Event = "CANCEL"   // 取消: DRAFT / PENDING_APPROVAL -> CANCELLED
)

// FSM 批次有限状态机
// 任何转移都不允许跳过中间状态；非法转移返回 ErrInvalidTransition
type FSM struct {
	Current types.BatchStatus
	BatchID string // 关联的批次 ID
	mu      sync.Mutex
	// transitions 定义状态转移表: CurrentState -> Event -> NextState
	transitions map[types.BatchStatus]map[Event]types.BatchStatus
	// callbacks 定义进入某状态后的回调: State -> func()
	callbacks map[types.BatchStatus]func(batchID string)
}

// New 创建一个批次状态机，起始状态可指定（从持久化恢复时使用）
func New(batchID string, current types.BatchStatus) *FSM {
	if current == "" {
		current = types.StatusDraft
	}
	f := &FSM{
		Current:     current,
		BatchID:     batchID,
		transitions: make(map[types.BatchStatus]map[Event]types.BatchStatus),
		callbacks:   make(map[types.BatchStatus]func(string)),
	}
	f.initTransitions()
	return f
}

func (f *FSM) initTransitions() {
	f.addTransition(types.StatusDraft, EventSubmit, types.StatusPendingApproval)
	f.addTransition(types.StatusDraft, EventCancel, types.StatusCancelled)

	f.addTransition(types.StatusPendingApproval, EventApprove, types.StatusApproved)
	f.addTransition(types.StatusPendingApproval, EventReject, types.StatusRejected)
	f.addTransition(types.StatusPendingApproval, EventCancel, types.StatusCancelled)

	f.addTransition(types.StatusApproved, EventSchedule, types.StatusPendingExecution)
	f.addTransition(types.StatusPendingExecution, EventStart, types.StatusExecuting)
	f.addTransition(types.StatusExecuting, EventFinish, types.StatusCompleted)
}

func (f *FSM) addTransition(from types.BatchStatus, event Event, to types.BatchStatus) {
	if _, ok := f.transitions[from]; !ok {
		f.transitions[from] = make(map[Event]types.BatchStatus)
	}
	f.transitions[from][event] = to
}

// RegisterCallback 注册进入某状态后的回调
func (f *FSM) RegisterCallback(state types.BatchStatus, callback func(batchID string)) {
	f.callbacks[state] = callback
}

// CanFire 判断事件在当前状态下是否合法，不实际转移
func (f *FSM) CanFire(event Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.transitions[f.Current][event]
	return ok
}

// Fire 触发事件，执行状态转移
func (f *FSM) Fire(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// 查找合法的转移
	nextState, ok := f.transitions[f.Current][event]
	if !ok {
		return fmt.Errorf("%w: cannot fire event %s from state %s (batch %s)",
			types.ErrInvalidTransition, event, f.Current, f.BatchID)
	}

	f.Current = nextState

	// 触发回调
	// 同步执行，回调中不要再调用 Fire，避免死锁
	if cb, exists := f.callbacks[nextState]; exists {
		cb(f.BatchID)
	}

	return nil
}
