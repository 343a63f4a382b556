package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"lopan-production/internal/conflict"
	"lopan-production/internal/event"
	"lopan-production/internal/fsm"
	"lopan-production/internal/metrics"
	"lopan-production/internal/policy"
	"lopan-production/internal/types"
	"lopan-production/internal/util"

	"github.com/google/uuid"
)

// Store 是持久化协作方的接口
// 只保证单实体级别的持久化；部分失败的记账由协调器自己完成
type Store interface {
	SaveBatch(*types.ProductionBatch) error
	SaveGroup(*types.ApprovalGroup) error
}

// ReadinessSource 提供机台就绪状态查询（就绪追踪器实现）
type ReadinessSource interface {
	Lookup(types.MachineID) *types.MachineReadinessState
}

// ProgressFunc 是批量操作的进度回调
// progress 取值 [0,1]，message 为人类可读的状态描述；仅供展示，不影响正确性
type ProgressFunc func(progress float64, message string)

// CreateBatchRequest 定义创建批次的请求
type CreateBatchRequest struct {
	MachineID       types.MachineID       `json:"machine_id"`
	Mode            types.ProductionMode  `json:"mode"`
	TargetDate      time.Time             `json:"target_date"`
	Shift           *types.Shift          `json:"shift,omitempty"`
	SubmittedBy     types.UserRef         `json:"submitted_by"`
	Configs         []types.ProductConfig `json:"configs,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	Priority        int                   `json:"priority,omitempty"`
	Deadline        *time.Time            `json:"deadline,omitempty"`
	AllowCoexisting bool                  `json:"allow_coexisting,omitempty"` // 显式允许与占用同档期的批次并存草稿
}

// Coordinator 批次审批协调器
// 独占批次状态转移和审批组创建；所有变更操作经过同一把写锁串行执行，
// 两次批量审批不可能在同一机台档期上竞争；读操作并发执行并返回拷贝
type Coordinator struct {
	mu        sync.RWMutex
	batches   map[string]*types.ProductionBatch
	groups    map[string]*types.ApprovalGroup
	sequences map[string]int // "<prefix>-<yyyymmdd>" -> 已分配的最大序号，单调递增永不复用

	store    Store
	tracker  ReadinessSource
	detector *conflict.Detector
	resolver *conflict.Resolver
	policy   *policy.Policy
	clock    policy.Clock
	bus      *event.Bus
	logger   *slog.Logger
}

// New 创建批次审批协调器
// 全部协作方显式注入，便于确定性测试
func New(store Store, tracker ReadinessSource, detector *conflict.Detector, resolver *conflict.Resolver,
	pol *policy.Policy, clock policy.Clock, bus *event.Bus, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		batches:   make(map[string]*types.ProductionBatch),
		groups:    make(map[string]*types.ApprovalGroup),
		sequences: make(map[string]int),
		store:     store,
		tracker:   tracker,
		detector:  detector,
		resolver:  resolver,
		policy:    pol,
		clock:     clock,
		bus:       bus,
		logger:    logger.With("component", "coordinator"),
	}
}

// Recover 从持久化快照恢复内存状态
// 在系统启动时调用；同时根据已有批次编号重建序号计数器，
// 保证编号即使跨驳回/取消的批次也单调递增、永不复用
func (c *Coordinator) Recover(batches []*types.ProductionBatch, groups []*types.ApprovalGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range batches {
		c.batches[b.ID] = b
		if key, seq, ok := parseBatchNumber(b.BatchNumber); ok && seq > c.sequences[key] {
			c.sequences[key] = seq
		}
	}
	for _, g := range groups {
		c.groups[g.ID] = g
	}
	c.logger.Info("协调器状态已恢复", "batches", len(batches), "groups", len(groups))
}

// parseBatchNumber 解析 "<PREFIX>-<YYYYMMDD>-<NNNN>" 格式的批次编号
func parseBatchNumber(num string) (key string, seq int, ok bool) {
	parts := strings.Split(num, "-")
	if len(parts) != 3 {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	return parts[0] + "-" + parts[1], n, true
}

// CreateBatch 创建一个新批次，初始状态为草稿
// 若该机台档期已被非终态批次占用且调用方未显式要求并存，
// 返回 ErrDuplicateMachineSlot
func (c *Coordinator) CreateBatch(req CreateBatchRequest) (*types.ProductionBatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	targetDate := policy.DateOnly(req.TargetDate)

	if req.Shift != nil && !req.AllowCoexisting {
		for _, b := range c.batches {
			if b.Status.Terminal() || !b.Scheduled() {
				continue
			}
			if b.MachineID == req.MachineID && b.TargetDate.Equal(targetDate) && *b.Shift == *req.Shift {
				return nil, fmt.Errorf("%w: 机台 %s 在 %s %s 班已被批次 %s 占用",
					types.ErrDuplicateMachineSlot, req.MachineID, targetDate.Format("2006-01-02"), *req.Shift, b.BatchNumber)
			}
		}
	}

	batch := &types.ProductionBatch{
		ID:          uuid.NewString(),
		BatchNumber: c.nextBatchNumber(req.Mode, targetDate),
		MachineID:   req.MachineID,
		Mode:        req.Mode,
		SubmittedBy: req.SubmittedBy,
		SubmittedAt: c.clock.Now(),
		TargetDate:  &targetDate,
		Shift:       req.Shift,
		Status:      types.StatusDraft,
		Configs:     append([]types.ProductConfig(nil), req.Configs...),
		Notes:       req.Notes,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
	}

	c.batches[batch.ID] = batch
	if err := c.store.SaveBatch(batch); err != nil {
		c.logger.Error("批次落盘失败", "batch_id", batch.ID, "error", err)
	}

	c.logger.Info("批次已创建", "batch_id", batch.ID, "batch_number", batch.BatchNumber, "machine_id", batch.MachineID)
	c.bus.Publish(event.Event{Type: event.BatchCreated, BatchID: batch.ID, Batch: batch.Clone()})
	return batch.Clone(), nil
}

// nextBatchNumber 分配下一个批次编号
// 编号格式 "<MODE-PREFIX>-<YYYYMMDD>-<4位序号>"，按模式前缀 + 日期独立计数，
// 序号单调递增，驳回/取消的批次占用的序号不会被复用
func (c *Coordinator) nextBatchNumber(mode types.ProductionMode, targetDate time.Time) string {
	key := mode.NumberPrefix() + "-" + targetDate.Format("20060102")
	c.sequences[key]++
	return fmt.Sprintf("%s-%04d", key, c.sequences[key])
}

// SubmitForApproval 将一组草稿批次提交审批
// 逐批次校验配置完整性；单个批次失败不影响其余批次（部分成功语义）
func (c *Coordinator) SubmitForApproval(batchIDs []string) []types.BatchOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcomes := make([]types.BatchOutcome, 0, len(batchIDs))
	for _, id := range batchIDs {
		b, ok := c.batches[id]
		if !ok {
			outcomes = append(outcomes, failureOutcome(id, "", types.ErrBatchNotFound))
			continue
		}
		if err := validateComplete(b); err != nil {
			outcomes = append(outcomes, failureOutcome(id, b.BatchNumber, err))
			continue
		}
		if err := c.transition(b, fsm.EventSubmit); err != nil {
			outcomes = append(outcomes, failureOutcome(id, b.BatchNumber, err))
			continue
		}
		c.bus.Publish(event.Event{Type: event.BatchSubmitted, BatchID: b.ID, Batch: b.Clone()})
		outcomes = append(outcomes, types.BatchOutcome{BatchID: id, BatchNumber: b.BatchNumber, Approved: true})
	}
	return outcomes
}

// validateComplete 校验批次配置是否完整：至少一条产品配置且已排期
func validateComplete(b *types.ProductionBatch) error {
	if len(b.Configs) == 0 {
		return fmt.Errorf("%w: 批次 %s 没有产品配置", types.ErrIncompleteConfiguration, b.BatchNumber)
	}
	if !b.Scheduled() {
		return fmt.Errorf("%w: 批次 %s 未排期（缺少目标日期或班次）", types.ErrIncompleteConfiguration, b.BatchNumber)
	}
	return nil
}

// ProcessBulkApproval 执行批量审批
// 流程：加载批次 -> 冲突检测 -> 高危冲突整体中止（零变更）-> 自动消解中危冲突
// -> 逐批次校验班次/截单策略并转移状态 -> 创建审批组 -> 汇总结果。
// 单批次的策略失败只影响自己；调用方可通过 ctx 在批次间取消，
// 已审批的批次保持审批状态（至少部分进展语义，恢复需重新提交）
func (c *Coordinator) ProcessBulkApproval(ctx context.Context, batchIDs []string, approverUserID, notes string, progress ProgressFunc) (types.BatchApprovalResult, error) {
	return c.processBulk(ctx, batchIDs, approverUserID, notes, progress, nil)
}

// ProcessBatchApproval 对预先创建的审批组执行批量审批
// 操作审批组绑定的全部批次，不再创建新的审批组
func (c *Coordinator) ProcessBatchApproval(ctx context.Context, groupID, approverUserID, notes string, progress ProgressFunc) (types.BatchApprovalResult, error) {
	c.mu.RLock()
	g, ok := c.groups[groupID]
	if !ok {
		c.mu.RUnlock()
		return types.BatchApprovalResult{}, fmt.Errorf("%w: %s", types.ErrGroupNotFound, groupID)
	}
	ids := append([]string(nil), g.BatchIDs...)
	group := *g
	c.mu.RUnlock()

	return c.processBulk(ctx, ids, approverUserID, notes, progress, &group)
}

func (c *Coordinator) processBulk(ctx context.Context, batchIDs []string, approverUserID, notes string, progress ProgressFunc, existingGroup *types.ApprovalGroup) (types.BatchApprovalResult, error) {
	traceID := util.NewTraceID()
	ctx = util.ContextWithTraceID(ctx, traceID)
	logger := c.logger.With("trace_id", traceID, "approver", approverUserID)

	start := time.Now()
	defer func() {
		metrics.BulkApprovalDuration.Observe(time.Since(start).Seconds())
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	report := func(p float64, msg string) {
		if progress != nil {
			progress(p, msg)
		}
		c.bus.Publish(event.Event{Type: event.ApprovalProgress, Progress: p, Message: msg})
	}

	var result types.BatchApprovalResult

	// 1. 加载批次：必须全部处于待审批状态，其余的逐批记为 InvalidState 失败并排除出事务
	report(0.05, "加载批次")
	var candidates []*types.ProductionBatch
	for _, id := range batchIDs {
		b, ok := c.batches[id]
		if !ok {
			result.Outcomes = append(result.Outcomes, failureOutcome(id, "", types.ErrBatchNotFound))
			continue
		}
		if b.Status != types.StatusPendingApproval {
			result.Outcomes = append(result.Outcomes, failureOutcome(id, b.BatchNumber,
				fmt.Errorf("%w: 批次 %s 处于 %s，不在待审批状态", types.ErrInvalidState, b.BatchNumber, b.Status)))
			continue
		}
		candidates = append(candidates, b)
	}

	// 2. 对剩余集合执行冲突检测
	report(0.15, "检测配置冲突")
	conflicts := c.detector.Detect(candidates, c.tracker.Lookup)
	for i := range conflicts {
		metrics.ConflictsDetectedTotal.WithLabelValues(string(conflicts[i].Type)).Inc()
		c.bus.Publish(event.Event{Type: event.ConflictDetected, Conflict: &conflicts[i]})
	}

	// 3. 存在高危冲突则整体中止，零审批零变更
	// 这是唯一不允许部分成功的情况：绕过未消解的重复占用审批会破坏机台排期
	for _, cf := range conflicts {
		if cf.Severity >= types.SeverityHigh {
			logger.Warn("存在未消解的高危冲突，批量审批整体中止", "conflict_id", cf.ID, "type", cf.Type)
			report(1.0, "存在未消解的高危冲突，已中止")
			return types.BatchApprovalResult{}, fmt.Errorf("%w: %s", types.ErrConflictsUnresolved, cf.Description)
		}
	}

	// 4. 自动消解中危且可消解的冲突，逐条记录消解日志
	report(0.25, "自动消解冲突")
	byID := make(map[string]*types.ProductionBatch, len(candidates))
	for _, b := range candidates {
		byID[b.ID] = b
	}
	resolutions, unresolved := c.resolver.Apply(conflicts, byID)
	for i := range resolutions {
		metrics.ConflictsResolvedTotal.WithLabelValues(string(resolutions[i].Type)).Inc()
		c.bus.Publish(event.Event{Type: event.ConflictResolved, Resolution: &resolutions[i]})
	}
	for _, b := range byID {
		// 消解可能调整了批次（如生产顺序），持久化最新快照
		if err := c.store.SaveBatch(b); err != nil {
			logger.Error("批次落盘失败", "batch_id", b.ID, "error", err)
		}
	}
	if len(unresolved) > 0 {
		logger.Info("仍有未消解的中危冲突，将随结果一并上报", "count", len(unresolved))
	}

	// 5. 逐批次：校验班次/截单策略，转移状态，记入审批组
	// 批次之间检查取消信号；取消只阻止后续批次，已审批的保持审批（不隐式回滚）
	now := c.clock.Now()
	var approved []*types.ProductionBatch
	cancelled := false
	for i, b := range candidates {
		if ctx.Err() != nil {
			cancelled = true
			result.Outcomes = append(result.Outcomes, types.BatchOutcome{
				BatchID: b.ID, BatchNumber: b.BatchNumber,
				Code: types.CodeCancelled, Reason: "批量审批被调用方取消，该批次未处理",
			})
			continue
		}

		if err := c.approveOne(b, now); err != nil {
			logger.Warn("批次审批失败", "batch_id", b.ID, "batch_number", b.BatchNumber, "error", err)
			metrics.BatchesApprovedTotal.WithLabelValues("failed").Inc()
			c.bus.Publish(event.Event{Type: event.BatchApprovalFailed, BatchID: b.ID, Batch: b.Clone(), Error: err})
			result.Outcomes = append(result.Outcomes, failureOutcome(b.ID, b.BatchNumber, err))
		} else {
			metrics.BatchesApprovedTotal.WithLabelValues("approved").Inc()
			c.bus.Publish(event.Event{Type: event.BatchApproved, BatchID: b.ID, Batch: b.Clone()})
			result.Outcomes = append(result.Outcomes, types.BatchOutcome{BatchID: b.ID, BatchNumber: b.BatchNumber, Approved: true})
			approved = append(approved, b)
		}

		report(0.3+0.6*float64(i+1)/float64(len(candidates)),
			fmt.Sprintf("已处理 %d/%d 个批次", i+1, len(candidates)))
	}

	// 6. 有至少一个批次审批成功时创建审批组（每次调用至多一个）
	if len(approved) > 0 {
		group := existingGroup
		if group == nil {
			group = &types.ApprovalGroup{
				ID:                uuid.NewString(),
				GroupName:         fmt.Sprintf("审批组 %s", now.Format("20060102-150405")),
				TargetDate:        *approved[0].TargetDate,
				BatchIDs:          batchIDsOf(approved),
				CoordinatorUserID: approverUserID,
				Notes:             notes,
				CreatedAt:         now,
			}
			c.groups[group.ID] = group
			if err := c.store.SaveGroup(group); err != nil {
				logger.Error("审批组落盘失败", "group_id", group.ID, "error", err)
			}
			c.bus.Publish(event.Event{Type: event.GroupCreated, Group: group})
		}
		result.GroupID = group.ID
	}

	for _, o := range result.Outcomes {
		if o.Approved {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}

	msg := fmt.Sprintf("批量审批完成：成功 %d，失败 %d", result.SuccessCount, result.FailureCount)
	if cancelled {
		msg = fmt.Sprintf("批量审批被取消：已审批 %d，未处理 %d", result.SuccessCount, result.FailureCount)
	}
	logger.Info(msg, "group_id", result.GroupID)
	report(1.0, msg)
	return result, nil
}

// approveOne 对单个批次应用完整性与班次/截单策略校验并转移到已审批状态
func (c *Coordinator) approveOne(b *types.ProductionBatch, now time.Time) error {
	if err := validateComplete(b); err != nil {
		return err
	}
	// 截单策略：过了截单时刻后当日不可再新排早班；不追溯既往已审批的批次
	if !c.policy.ShiftSchedulable(*b.Shift, *b.TargetDate, now) {
		return fmt.Errorf("%w: 批次 %s 的 %s 班在当前时刻已不可排期（截单时刻 %s）",
			types.ErrInvalidExecutionTime, b.BatchNumber, *b.Shift, c.policy.Cutoff)
	}
	return c.transition(b, fsm.EventApprove)
}

// CreateApprovalGroup 预先创建一个审批组，绑定一组待审批批次
// 供 ProcessBatchApproval 使用；组一经创建不可变
func (c *Coordinator) CreateApprovalGroup(groupName string, targetDate time.Time, batchIDs []string, coordinatorUserID string) (*types.ApprovalGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(batchIDs) == 0 {
		return nil, fmt.Errorf("审批组批次列表不能为空")
	}
	seen := make(map[string]bool, len(batchIDs))
	for _, id := range batchIDs {
		if seen[id] {
			return nil, fmt.Errorf("审批组批次列表存在重复 ID: %s", id)
		}
		seen[id] = true
		if _, ok := c.batches[id]; !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrBatchNotFound, id)
		}
	}

	group := &types.ApprovalGroup{
		ID:                uuid.NewString(),
		GroupName:         groupName,
		TargetDate:        policy.DateOnly(targetDate),
		BatchIDs:          append([]string(nil), batchIDs...),
		CoordinatorUserID: coordinatorUserID,
		CreatedAt:         c.clock.Now(),
	}
	c.groups[group.ID] = group
	if err := c.store.SaveGroup(group); err != nil {
		c.logger.Error("审批组落盘失败", "group_id", group.ID, "error", err)
	}
	c.bus.Publish(event.Event{Type: event.GroupCreated, Group: group})
	return group, nil
}

// MarkExecuting 人工确认执行时间并将批次推进到执行中
// 执行时间必须不晚于当前时间且落在批次班次窗口内，否则返回
// ErrInvalidExecutionTime 且状态保持不变
func (c *Coordinator) MarkExecuting(batchID string, executionTime time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.batches[batchID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrBatchNotFound, batchID)
	}
	if b.Status != types.StatusApproved {
		return fmt.Errorf("%w: 批次 %s 处于 %s，只有已审批的批次可以标记执行",
			types.ErrInvalidState, b.BatchNumber, b.Status)
	}
	if !b.Scheduled() {
		return fmt.Errorf("%w: 批次 %s 未排期", types.ErrIncompleteConfiguration, b.BatchNumber)
	}

	now := c.clock.Now()
	if executionTime.After(now) {
		return fmt.Errorf("%w: 执行时间 %s 晚于当前时间", types.ErrInvalidExecutionTime, executionTime.Format("15:04"))
	}
	if err := policy.ValidateExecutionTime(*b.Shift, executionTime); err != nil {
		return err
	}

	// 校验全部通过后才开始转移：approved -> pendingExecution -> executing，不跳状态
	if err := c.transition(b, fsm.EventSchedule); err != nil {
		return err
	}
	if err := c.transition(b, fsm.EventStart); err != nil {
		return err
	}
	t := executionTime
	b.ExecutionTime = &t
	if err := c.store.SaveBatch(b); err != nil {
		c.logger.Error("批次落盘失败", "batch_id", b.ID, "error", err)
	}
	c.bus.Publish(event.Event{Type: event.BatchExecuting, BatchID: b.ID, Batch: b.Clone()})
	return nil
}

// CompleteBatch 将执行中的批次标记为已完成
func (c *Coordinator) CompleteBatch(batchID string) error {
	return c.terminalTransition(batchID, fsm.EventFinish, event.BatchCompleted, "")
}

// RejectBatch 驳回待审批的批次
func (c *Coordinator) RejectBatch(batchID, reason string) error {
	return c.terminalTransition(batchID, fsm.EventReject, event.BatchRejected, reason)
}

// CancelBatch 取消草稿或待审批的批次
func (c *Coordinator) CancelBatch(batchID string) error {
	return c.terminalTransition(batchID, fsm.EventCancel, event.BatchCancelled, "")
}

func (c *Coordinator) terminalTransition(batchID string, ev fsm.Event, evType event.EventType, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.batches[batchID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrBatchNotFound, batchID)
	}
	if err := c.transition(b, ev); err != nil {
		return err
	}
	if reason != "" {
		if b.Notes != "" {
			b.Notes += "\n"
		}
		b.Notes += "驳回原因: " + reason
		if err := c.store.SaveBatch(b); err != nil {
			c.logger.Error("批次落盘失败", "batch_id", b.ID, "error", err)
		}
	}
	c.bus.Publish(event.Event{Type: evType, BatchID: b.ID, Batch: b.Clone(), Message: reason})
	return nil
}

// transition 通过状态机触发一次转移并持久化结果
// 调用方必须持有写锁
func (c *Coordinator) transition(b *types.ProductionBatch, ev fsm.Event) error {
	machine := fsm.New(b.ID, b.Status)
	if err := machine.Fire(ev); err != nil {
		return err
	}
	b.Status = machine.Current
	if err := c.store.SaveBatch(b); err != nil {
		c.logger.Error("批次落盘失败", "batch_id", b.ID, "error", err)
	}
	return nil
}

// GetBatch 返回批次的拷贝
func (c *Coordinator) GetBatch(batchID string) (*types.ProductionBatch, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrBatchNotFound, batchID)
	}
	return b.Clone(), nil
}

// ListBatches 返回全部批次的拷贝，按批次编号排序
func (c *Coordinator) ListBatches() []*types.ProductionBatch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.ProductionBatch, 0, len(c.batches))
	for _, b := range c.batches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchNumber < out[j].BatchNumber })
	return out
}

// GetGroup 返回审批组的拷贝
func (c *Coordinator) GetGroup(groupID string) (*types.ApprovalGroup, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrGroupNotFound, groupID)
	}
	cp := *g
	cp.BatchIDs = append([]string(nil), g.BatchIDs...)
	return &cp, nil
}

// ListGroups 返回全部审批组的拷贝，按创建时间排序
func (c *Coordinator) ListGroups() []*types.ApprovalGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.ApprovalGroup, 0, len(c.groups))
	for _, g := range c.groups {
		cp := *g
		cp.BatchIDs = append([]string(nil), g.BatchIDs...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// CurrentConflicts 对当前全部待审批批次执行一轮冲突检测
// 观察性接口：结果是瞬时值，每次调用重新计算
func (c *Coordinator) CurrentConflicts() []types.ConfigurationConflict {
	c.mu.RLock()
	var pending []*types.ProductionBatch
	for _, b := range c.batches {
		if b.Status == types.StatusPendingApproval {
			pending = append(pending, b.Clone())
		}
	}
	c.mu.RUnlock()
	return c.detector.Detect(pending, c.tracker.Lookup)
}

func failureOutcome(batchID, batchNumber string, err error) types.BatchOutcome {
	return types.BatchOutcome{
		BatchID:     batchID,
		BatchNumber: batchNumber,
		Code:        types.CodeForError(err),
		Reason:      err.Error(),
	}
}

func batchIDsOf(batches []*types.ProductionBatch) []string {
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	return ids
}
