package conflict

import (
	"fmt"
	"log/slog"
	"sort"

	"lopan-production/internal/policy"
	"lopan-production/internal/types"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// Resolver 负责对可自动消解的冲突应用消解策略
// 排序规则是可配置策略：默认按提交时间先后，业务可通过 expr 表达式改为按优先级等
type Resolver struct {
	program *vm.Program // 编译后的排序规则，env 为 a/b 两个批次
	rule    string
	clock   policy.Clock
	logger  *slog.Logger
}

// NewResolver 创建一个消解器并预编译排序规则
// 规则表达式必须返回布尔值，表示批次 a 是否应排在批次 b 之前
func NewResolver(tieBreakRule string, clock policy.Clock, logger *slog.Logger) (*Resolver, error) {
	program, err := expr.Compile(tieBreakRule, expr.Env(map[string]interface{}{
		"a": &types.ProductionBatch{},
		"b": &types.ProductionBatch{},
	}))
	if err != nil {
		return nil, fmt.Errorf("编译排序规则失败: %w", err)
	}
	return &Resolver{
		program: program,
		rule:    tieBreakRule,
		clock:   clock,
		logger:  logger.With("component", "conflict-resolver"),
	}, nil
}

// precedes 按配置的规则判断批次 a 是否应排在批次 b 之前
func (r *Resolver) precedes(a, b *types.ProductionBatch) (bool, error) {
	result, err := expr.Run(r.program, map[string]interface{}{"a": a, "b": b})
	if err != nil {
		return false, fmt.Errorf("规则执行失败: %w", err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("规则结果不是布尔值: %v", result)
	}
	return ok, nil
}

// Apply 按检测结果的顺序（严重程度降序、机台升序）逐条应用自动消解
// 只尝试 CanAutoResolve 的冲突；遇到第一个消解失败的冲突立即停止，
// 返回已完成的消解记录和全部仍未消解的冲突——从不静默丢弃任何冲突
func (r *Resolver) Apply(conflicts []types.ConfigurationConflict, batches map[string]*types.ProductionBatch) ([]types.ConflictResolution, []types.ConfigurationConflict) {
	var resolutions []types.ConflictResolution
	var unresolved []types.ConfigurationConflict

	for i, c := range conflicts {
		if !c.CanAutoResolve {
			unresolved = append(unresolved, c)
			continue
		}

		res, err := r.resolveOne(c, batches)
		if err != nil {
			r.logger.Warn("自动消解失败，停止后续消解", "conflict_id", c.ID, "type", c.Type, "error", err)
			// 失败的冲突与尚未尝试的冲突全部保留为未消解
			unresolved = append(unresolved, conflicts[i:]...)
			return resolutions, unresolved
		}

		r.logger.Info("冲突已自动消解", "conflict_id", c.ID, "type", c.Type, "mutations", res.Mutations)
		resolutions = append(resolutions, res)
	}

	return resolutions, unresolved
}

// resolveOne 对单条冲突应用对应的消解策略
func (r *Resolver) resolveOne(c types.ConfigurationConflict, batches map[string]*types.ProductionBatch) (types.ConflictResolution, error) {
	affected := make([]*types.ProductionBatch, 0, len(c.AffectedBatchIDs))
	for _, id := range c.AffectedBatchIDs {
		b, ok := batches[id]
		if !ok {
			return types.ConflictResolution{}, fmt.Errorf("%w: %s", types.ErrBatchNotFound, id)
		}
		affected = append(affected, b)
	}

	var mutations []string
	switch c.Type {
	case types.ConflictShiftOverlap:
		// 顺延晚班批次：机台确认空闲前不开工
		// 检测阶段已验证期限允许顺延，这里记录实际应用的变更
		for _, b := range affected {
			if b.Shift != nil && *b.Shift == types.ShiftEvening {
				mutations = append(mutations,
					fmt.Sprintf("批次 %s 顺延：等待机台 %s 早班批次确认空闲后开工", b.BatchNumber, b.MachineID))
			}
		}
		if len(mutations) == 0 {
			return types.ConflictResolution{}, fmt.Errorf("冲突 %s 中没有可顺延的晚班批次", c.ID)
		}

	case types.ConflictConfigurationMismatch:
		// 按配置的排序规则重排生产顺序，并将顺序写入批次优先级
		// 默认规则为提交时间先后
		ordered := append([]*types.ProductionBatch{}, affected...)
		var ruleErr error
		sort.SliceStable(ordered, func(i, j int) bool {
			ok, err := r.precedes(ordered[i], ordered[j])
			if err != nil && ruleErr == nil {
				ruleErr = err
			}
			return ok
		})
		if ruleErr != nil {
			return types.ConflictResolution{}, ruleErr
		}
		for rank, b := range ordered {
			b.Priority = len(ordered) - rank // 越靠前优先级越高
			mutations = append(mutations,
				fmt.Sprintf("批次 %s 生产顺序调整为第 %d 位 (规则: %s)", b.BatchNumber, rank+1, r.rule))
		}

	default:
		return types.ConflictResolution{}, fmt.Errorf("冲突类型 %s 没有自动消解策略", c.Type)
	}

	return types.ConflictResolution{
		ConflictID: c.ID,
		Type:       c.Type,
		Strategy:   types.ResolutionAuto,
		Mutations:  mutations,
		ResolvedAt: r.clock.Now(),
	}, nil
}
