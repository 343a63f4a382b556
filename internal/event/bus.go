package event

import (
	"sync"

	"lopan-production/internal/types"
)

// EventType 定义事件的类型
type EventType string

// 定义所有业务事件类型
const (
	BatchCreated        EventType = "BatchCreated"        // 批次创建
	BatchSubmitted      EventType = "BatchSubmitted"      // 批次提交审批
	BatchApproved       EventType = "BatchApproved"       // 批次审批通过
	BatchApprovalFailed EventType = "BatchApprovalFailed" // 批次审批失败（单批次级）
	BatchExecuting      EventType = "BatchExecuting"      // 批次开始执行
	BatchCompleted      EventType = "BatchCompleted"      // 批次完成
	BatchRejected       EventType = "BatchRejected"       // 批次被驳回
	BatchCancelled      EventType = "BatchCancelled"      // 批次被取消
	ConflictDetected    EventType = "ConflictDetected"    // 检测到配置冲突
	ConflictResolved    EventType = "ConflictResolved"    // 冲突被消解
	GroupCreated        EventType = "GroupCreated"        // 审批组创建
	ApprovalProgress    EventType = "ApprovalProgress"    // 批量审批进度更新
)

// Event 结构体定义了事件的数据负载
type Event struct {
	Type       EventType                    // 事件类型
	BatchID    string                       // 关联的批次 ID
	Batch      *types.ProductionBatch       // 完整的批次数据（批次相关事件）
	Conflict   *types.ConfigurationConflict // 冲突数据（仅冲突相关事件）
	Resolution *types.ConflictResolution    // 消解记录（仅 ConflictResolved）
	Group      *types.ApprovalGroup         // 审批组（仅 GroupCreated）
	Progress   float64                      // 进度 [0,1]（仅 ApprovalProgress）
	Message    string                       // 人类可读的状态描述
	Error      error                        // 错误信息（仅失败事件）
}

// Handler 是事件处理函数的签名
type Handler func(e Event)

// Bus 是一个简单的内存事件总线
// 将监控、UI、审计日志等关注点与协调器解耦
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler // 存储事件类型到多个处理函数的映射
}

// NewBus 创建一个新的事件总线实例
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe 订阅一个特定类型的事件
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish 发布一个事件，所有订阅了该事件类型的处理器都将被调用
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if handlers, ok := b.handlers[e.Type]; ok {
		// 遍历所有处理器并异步执行
		// 使用 goroutine 避免单个处理器的阻塞影响其他处理器
		for _, handler := range handlers {
			go handler(e)
		}
	}
}
