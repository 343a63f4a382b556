package conflict

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"lopan-production/internal/policy"
	"lopan-production/internal/types"

	"github.com/google/uuid"
)

// ReadinessLookup 提供机台就绪状态的查询
// 返回 nil 表示无可用读数，检测器按未就绪处理；
// 缓存过期的处理在就绪追踪器一侧完成，这里拿到的已经是降级后的结果
type ReadinessLookup func(types.MachineID) *types.MachineReadinessState

// Detector 负责在提交审批前找出候选批次之间的机台级和配置级争用
// 无内部状态，每次评估重新计算全部冲突
type Detector struct {
	logger *slog.Logger
}

// NewDetector 创建一个冲突检测器
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{logger: logger.With("component", "conflict-detector")}
}

// slotKey 标识一个机台档期：机台 + 日期 + 班次
type slotKey struct {
	machine types.MachineID
	date    string
	shift   types.Shift
}

// Detect 对候选批次集合执行一轮完整的冲突检测
// 返回结果按严重程度降序、机台 ID 升序排序，保证 UI 展示顺序确定
func (d *Detector) Detect(batches []*types.ProductionBatch, lookup ReadinessLookup) []types.ConfigurationConflict {
	var conflicts []types.ConfigurationConflict

	// 1. 按机台分组
	byMachine := make(map[types.MachineID][]*types.ProductionBatch)
	var machines []types.MachineID
	for _, b := range batches {
		if _, ok := byMachine[b.MachineID]; !ok {
			machines = append(machines, b.MachineID)
		}
		byMachine[b.MachineID] = append(byMachine[b.MachineID], b)
	}
	sort.Slice(machines, func(i, j int) bool { return machines[i] < machines[j] })

	for _, m := range machines {
		group := byMachine[m]
		state := lookup(m)

		// 2. 同机台同 (日期, 班次) 出现多个批次 -> 机台重复占用，高危，不可自动消解
		bySlot := make(map[slotKey][]*types.ProductionBatch)
		byDay := make(map[string][]*types.ProductionBatch)
		for _, b := range group {
			if !b.Scheduled() {
				continue
			}
			key := slotKey{machine: m, date: dateKey(*b.TargetDate), shift: *b.Shift}
			bySlot[key] = append(bySlot[key], b)
			byDay[key.date] = append(byDay[key.date], b)
		}
		for _, key := range sortedSlotKeys(bySlot) {
			slot := bySlot[key]
			if len(slot) < 2 {
				continue
			}
			conflicts = append(conflicts, types.ConfigurationConflict{
				ID:                 uuid.NewString(),
				Type:               types.ConflictMachineDoubleBooked,
				Severity:           types.ConflictMachineDoubleBooked.DefaultSeverity(),
				AffectedMachineIDs: []types.MachineID{m},
				AffectedBatchIDs:   batchIDs(slot),
				Description: fmt.Sprintf("机台 %s 在 %s %s 班被 %d 个批次重复占用，需人工指定保留哪个批次",
					m, key.date, shiftLabel(key.shift), len(slot)),
				CanAutoResolve: false, // 必须由人工决定哪个批次胜出
			})
		}

		// 3. 同机台同日早晚班衔接，且机台尚未确认空闲 -> 班次重叠，中危
		// 机台已确认空闲时早晚班窗口本身不相交，不构成冲突；
		// 晚班批次的期限允许顺延时可自动消解
		for _, day := range sortedKeys(byDay) {
			dayGroup := byDay[day]
			morning := filterShift(dayGroup, types.ShiftMorning)
			evening := filterShift(dayGroup, types.ShiftEvening)
			machineBusy := state == nil || state.IsRunning
			if len(morning) > 0 && len(evening) > 0 && machineBusy {
				pair := append(append([]*types.ProductionBatch{}, morning...), evening...)
				conflicts = append(conflicts, types.ConfigurationConflict{
					ID:                 uuid.NewString(),
					Type:               types.ConflictShiftOverlap,
					Severity:           types.ConflictShiftOverlap.DefaultSeverity(),
					AffectedMachineIDs: []types.MachineID{m},
					AffectedBatchIDs:   batchIDs(pair),
					Description: fmt.Sprintf("机台 %s 在 %s 早晚班衔接：晚班批次需等早班批次确认空闲后才能开工",
						m, day),
					CanAutoResolve: canDeferEvening(evening),
				})
			}

			// 4. 同日同机台配置指纹不一致 -> 配置不一致，中危，可按提交顺序自动重排
			if len(dayGroup) >= 2 && distinctFingerprints(dayGroup) > 1 {
				conflicts = append(conflicts, types.ConfigurationConflict{
					ID:                 uuid.NewString(),
					Type:               types.ConflictConfigurationMismatch,
					Severity:           types.ConflictConfigurationMismatch.DefaultSeverity(),
					AffectedMachineIDs: []types.MachineID{m},
					AffectedBatchIDs:   batchIDs(dayGroup),
					Description: fmt.Sprintf("机台 %s 在 %s 的批次配置指纹不一致，需要重排生产顺序以减少换型",
						m, day),
					CanAutoResolve: true,
				})
			}
		}

		// 5. 机台未就绪（含状态过期、不可达降级）-> 高危，不可自动消解
		if state == nil || !state.IsReady {
			reason := "无可用状态读数"
			if state != nil {
				reason = fmt.Sprintf("最近一次检查于 %s 未就绪", state.LastChecked.Format("15:04:05"))
			}
			conflicts = append(conflicts, types.ConfigurationConflict{
				ID:                 uuid.NewString(),
				Type:               types.ConflictReadinessNotMet,
				Severity:           types.ConflictReadinessNotMet.DefaultSeverity(),
				AffectedMachineIDs: []types.MachineID{m},
				AffectedBatchIDs:   batchIDs(group),
				Description:        fmt.Sprintf("机台 %s 未就绪（%s），不能对其排产", m, reason),
				CanAutoResolve:     false,
			})
		}
	}

	sortConflicts(conflicts)
	d.logger.Info("冲突检测完成", "candidates", len(batches), "conflicts", len(conflicts))
	return conflicts
}

// sortConflicts 按严重程度降序、机台 ID 升序、类型升序排序
// 严重程度使用显式整数等级，排序在冲突类型增删后依然稳定
func sortConflicts(conflicts []types.ConfigurationConflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.AffectedMachineIDs[0] != b.AffectedMachineIDs[0] {
			return a.AffectedMachineIDs[0] < b.AffectedMachineIDs[0]
		}
		return a.Type < b.Type
	})
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func shiftLabel(s types.Shift) string {
	if s == types.ShiftEvening {
		return "晚"
	}
	return "早"
}

func batchIDs(batches []*types.ProductionBatch) []string {
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	sort.Strings(ids)
	return ids
}

func filterShift(batches []*types.ProductionBatch, shift types.Shift) []*types.ProductionBatch {
	var out []*types.ProductionBatch
	for _, b := range batches {
		if b.Shift != nil && *b.Shift == shift {
			out = append(out, b)
		}
	}
	return out
}

// canDeferEvening 判断全部晚班批次是否都允许顺延
// 没有期限或期限晚于当日晚班开始时刻即可顺延
func canDeferEvening(evening []*types.ProductionBatch) bool {
	for _, b := range evening {
		if b.Deadline == nil {
			continue
		}
		day := *b.TargetDate
		eveningStart := time.Date(day.Year(), day.Month(), day.Day(),
			policy.MorningEnd.Hour, policy.MorningEnd.Minute, 0, 0, day.Location())
		if b.Deadline.Before(eveningStart) {
			return false
		}
	}
	return true
}

func distinctFingerprints(batches []*types.ProductionBatch) int {
	seen := make(map[string]bool)
	for _, b := range batches {
		seen[b.ConfigFingerprint()] = true
	}
	return len(seen)
}

func sortedKeys(m map[string][]*types.ProductionBatch) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSlotKeys(m map[slotKey][]*types.ProductionBatch) []slotKey {
	keys := make([]slotKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].machine != keys[j].machine {
			return keys[i].machine < keys[j].machine
		}
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].shift < keys[j].shift
	})
	return keys
}
