package web

import (
	"sync"

	"lopan-production/internal/types"
)

// BatchCard 定义了审批看板上展示的单个批次卡片
// 这是一个简化的视图，只包含前端需要的数据
type BatchCard struct {
	ID          string               `json:"id"`
	BatchNumber string               `json:"batch_number"`
	MachineID   types.MachineID      `json:"machine_id"`
	Mode        types.ProductionMode `json:"mode"`
	TargetDate  string               `json:"target_date,omitempty"`
	Shift       string               `json:"shift,omitempty"`
	Status      types.BatchStatus    `json:"status"`
	Message     string               `json:"message,omitempty"` // 最近一次操作的说明（如驳回原因）
}

// BulkProgress 定义批量审批的进度视图
type BulkProgress struct {
	Progress float64 `json:"progress"` // [0,1]
	Message  string  `json:"message"`
}

// BoardState 代表审批看板的实时状态快照
type BoardState struct {
	Batches  map[string]BatchCard `json:"batches"`
	Progress BulkProgress         `json:"progress"`
}

// BoardTracker 负责追踪审批看板的实时状态，并通知前端更新
// 仅供展示消费，不参与任何正确性判断
type BoardTracker struct {
	mu    sync.RWMutex
	state BoardState
	hub   *Hub
}

// NewBoardTracker 创建一个新的 BoardTracker 实例
func NewBoardTracker(hub *Hub) *BoardTracker {
	return &BoardTracker{
		state: BoardState{Batches: make(map[string]BatchCard)},
		hub:   hub,
	}
}

// UpsertBatch 写入或更新一个批次卡片，并向所有客户端广播最新的看板状态
func (bt *BoardTracker) UpsertBatch(b *types.ProductionBatch, message string) {
	if b == nil {
		return
	}
	bt.mu.Lock()
	card := BatchCard{
		ID:          b.ID,
		BatchNumber: b.BatchNumber,
		MachineID:   b.MachineID,
		Mode:        b.Mode,
		Status:      b.Status,
		Message:     message,
	}
	if b.TargetDate != nil {
		card.TargetDate = b.TargetDate.Format("2006-01-02")
	}
	if b.Shift != nil {
		card.Shift = string(*b.Shift)
	}
	bt.state.Batches[b.ID] = card
	bt.mu.Unlock()

	bt.broadcast()
}

// UpdateProgress 更新批量审批进度并广播
func (bt *BoardTracker) UpdateProgress(progress float64, message string) {
	bt.mu.Lock()
	bt.state.Progress = BulkProgress{Progress: progress, Message: message}
	bt.mu.Unlock()

	bt.broadcast()
}

func (bt *BoardTracker) broadcast() {
	bt.hub.BroadcastState(bt.Snapshot())
}

// Snapshot 返回当前看板状态的一个深拷贝副本
// 用于新客户端连接时获取一次全量数据
func (bt *BoardTracker) Snapshot() BoardState {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	// 创建深拷贝以避免并发问题
	newState := BoardState{Batches: make(map[string]BatchCard), Progress: bt.state.Progress}
	for id, card := range bt.state.Batches {
		newState.Batches[id] = card
	}
	return newState
}
