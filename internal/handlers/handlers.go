package handlers

import (
	"log/slog"

	"lopan-production/internal/event"
	"lopan-production/internal/metrics"
	"lopan-production/internal/web"
)

// RegisterEventHandlers 将所有事件处理器注册到事件总线
// 这是事件驱动架构的核心，将不同的业务关注点（监控、UI、审计日志）与协调器解耦
func RegisterEventHandlers(bus *event.Bus, bt *web.BoardTracker, logger *slog.Logger) {
	// --- 指标处理器 (Metrics Handler) ---
	// 批次进入各状态时累加转移计数
	forEachBatchEvent(bus, func(e event.Event) {
		if e.Batch != nil {
			metrics.StateTransitionsTotal.WithLabelValues(string(e.Batch.Status)).Inc()
		}
	})

	// --- 看板处理器 (Board Handler) ---
	// 批次状态变化时刷新看板卡片
	forEachBatchEvent(bus, func(e event.Event) {
		bt.UpsertBatch(e.Batch, e.Message)
	})
	// 批量审批进度推送到看板
	bus.Subscribe(event.ApprovalProgress, func(e event.Event) {
		bt.UpdateProgress(e.Progress, e.Message)
	})

	// --- 审计日志处理器 (Audit Handler) ---
	// 订阅关键业务事件，记录审计日志
	bus.Subscribe(event.BatchApproved, func(e event.Event) {
		logger.Info("批次审批通过", "batch_id", e.BatchID)
	})
	bus.Subscribe(event.BatchApprovalFailed, func(e event.Event) {
		logger.Warn("批次审批失败", "batch_id", e.BatchID, "error", e.Error)
	})
	bus.Subscribe(event.ConflictDetected, func(e event.Event) {
		if e.Conflict != nil {
			logger.Warn("检测到配置冲突", "conflict_id", e.Conflict.ID,
				"type", e.Conflict.Type, "severity", e.Conflict.Severity,
				"machines", e.Conflict.AffectedMachineIDs, "description", e.Conflict.Description)
		}
	})
	bus.Subscribe(event.ConflictResolved, func(e event.Event) {
		if e.Resolution != nil {
			logger.Info("冲突已消解", "conflict_id", e.Resolution.ConflictID,
				"type", e.Resolution.Type, "strategy", e.Resolution.Strategy,
				"mutations", e.Resolution.Mutations)
		}
	})
	bus.Subscribe(event.GroupCreated, func(e event.Event) {
		if e.Group != nil {
			logger.Info("审批组已创建", "group_id", e.Group.ID,
				"group_name", e.Group.GroupName, "batches", len(e.Group.BatchIDs))
		}
	})
	bus.Subscribe(event.BatchRejected, func(e event.Event) {
		logger.Info("批次被驳回", "batch_id", e.BatchID, "reason", e.Message)
	})
}

// forEachBatchEvent 对所有批次生命周期事件注册同一个处理器
func forEachBatchEvent(bus *event.Bus, handler event.Handler) {
	for _, t := range []event.EventType{
		event.BatchCreated, event.BatchSubmitted, event.BatchApproved,
		event.BatchApprovalFailed, event.BatchExecuting, event.BatchCompleted,
		event.BatchRejected, event.BatchCancelled,
	} {
		bus.Subscribe(t, handler)
	}
}
