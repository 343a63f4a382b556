package conflict

import (
	"strings"
	"testing"
	"time"

	"lopan-production/internal/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestResolver(t *testing.T, rule string) *Resolver {
	t.Helper()
	r, err := NewResolver(rule, fixedClock{t: time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)}, testLogger())
	if err != nil {
		t.Fatalf("创建消解器失败: %v", err)
	}
	return r
}

func TestNewResolver_InvalidRule(t *testing.T) {
	_, err := NewResolver("a.SubmittedAt.Before(", fixedClock{}, testLogger())
	if err == nil {
		t.Fatal("非法规则表达式应当在编译期报错")
	}
}

func TestApply_MismatchReorderBySubmissionTime(t *testing.T) {
	r := newTestResolver(t, "a.SubmittedAt.Before(b.SubmittedAt)")
	date := day(t, "2025-01-10")
	now := time.Now()

	// b2 先提交，应当排在第一位
	b1 := makeBatch("b1", "M1", date, types.ShiftMorning, now.Add(time.Hour))
	b2 := makeBatch("b2", "M1", date, types.ShiftMorning, now)
	batches := map[string]*types.ProductionBatch{"b1": b1, "b2": b2}

	c := types.ConfigurationConflict{
		ID:               "c1",
		Type:             types.ConflictConfigurationMismatch,
		Severity:         types.SeverityMedium,
		AffectedBatchIDs: []string{"b1", "b2"},
		CanAutoResolve:   true,
	}

	resolutions, unresolved := r.Apply([]types.ConfigurationConflict{c}, batches)
	if len(unresolved) != 0 {
		t.Fatalf("不应当有未消解的冲突, 得到 %d 个", len(unresolved))
	}
	if len(resolutions) != 1 {
		t.Fatalf("应当有一条消解记录, 得到 %d 条", len(resolutions))
	}
	res := resolutions[0]
	if res.ConflictID != "c1" || res.Strategy != types.ResolutionAuto {
		t.Errorf("消解记录内容不正确: %+v", res)
	}
	// 先提交的批次优先级应当更高
	if b2.Priority <= b1.Priority {
		t.Errorf("先提交的批次应当获得更高优先级: b2=%d b1=%d", b2.Priority, b1.Priority)
	}
	if len(res.Mutations) != 2 {
		t.Errorf("应当记录两条变更, 得到 %d 条", len(res.Mutations))
	}
}

func TestApply_MismatchCustomPriorityRule(t *testing.T) {
	r := newTestResolver(t, "a.Priority > b.Priority")
	date := day(t, "2025-01-10")
	now := time.Now()

	b1 := makeBatch("b1", "M1", date, types.ShiftMorning, now)
	b1.Priority = 1
	b2 := makeBatch("b2", "M1", date, types.ShiftMorning, now.Add(time.Minute))
	b2.Priority = 9
	batches := map[string]*types.ProductionBatch{"b1": b1, "b2": b2}

	c := types.ConfigurationConflict{
		ID:               "c1",
		Type:             types.ConflictConfigurationMismatch,
		Severity:         types.SeverityMedium,
		AffectedBatchIDs: []string{"b1", "b2"},
		CanAutoResolve:   true,
	}

	resolutions, unresolved := r.Apply([]types.ConfigurationConflict{c}, batches)
	if len(unresolved) != 0 || len(resolutions) != 1 {
		t.Fatalf("消解结果不符合预期: resolutions=%d unresolved=%d", len(resolutions), len(unresolved))
	}
	// 自定义规则下原优先级高的批次排在前
	if b2.Priority <= b1.Priority {
		t.Errorf("原优先级高的批次应当排在前: b2=%d b1=%d", b2.Priority, b1.Priority)
	}
}

func TestApply_ShiftOverlapDefersEvening(t *testing.T) {
	r := newTestResolver(t, "a.SubmittedAt.Before(b.SubmittedAt)")
	date := day(t, "2025-01-10")
	now := time.Now()

	b1 := makeBatch("b1", "M1", date, types.ShiftMorning, now)
	b2 := makeBatch("b2", "M1", date, types.ShiftEvening, now.Add(time.Minute))
	batches := map[string]*types.ProductionBatch{"b1": b1, "b2": b2}

	c := types.ConfigurationConflict{
		ID:                 "c1",
		Type:               types.ConflictShiftOverlap,
		Severity:           types.SeverityMedium,
		AffectedMachineIDs: []types.MachineID{"M1"},
		AffectedBatchIDs:   []string{"b1", "b2"},
		CanAutoResolve:     true,
	}

	resolutions, unresolved := r.Apply([]types.ConfigurationConflict{c}, batches)
	if len(unresolved) != 0 || len(resolutions) != 1 {
		t.Fatalf("消解结果不符合预期: resolutions=%d unresolved=%d", len(resolutions), len(unresolved))
	}
	if len(resolutions[0].Mutations) != 1 {
		t.Fatalf("应当只顺延晚班批次, 得到 %d 条变更", len(resolutions[0].Mutations))
	}
	if !strings.Contains(resolutions[0].Mutations[0], b2.BatchNumber) {
		t.Errorf("变更记录应当指向晚班批次: %s", resolutions[0].Mutations[0])
	}
}

func TestApply_NonAutoResolvableKept(t *testing.T) {
	r := newTestResolver(t, "a.SubmittedAt.Before(b.SubmittedAt)")

	c := types.ConfigurationConflict{
		ID:               "c1",
		Type:             types.ConflictMachineDoubleBooked,
		Severity:         types.SeverityHigh,
		AffectedBatchIDs: []string{"b1", "b2"},
		CanAutoResolve:   false,
	}

	resolutions, unresolved := r.Apply([]types.ConfigurationConflict{c}, nil)
	if len(resolutions) != 0 {
		t.Errorf("不可自动消解的冲突不应当产生消解记录")
	}
	if len(unresolved) != 1 || unresolved[0].ID != "c1" {
		t.Fatalf("不可自动消解的冲突应当原样保留: %+v", unresolved)
	}
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	r := newTestResolver(t, "a.SubmittedAt.Before(b.SubmittedAt)")
	date := day(t, "2025-01-10")
	now := time.Now()

	b1 := makeBatch("b1", "M1", date, types.ShiftMorning, now)
	b2 := makeBatch("b2", "M1", date, types.ShiftMorning, now.Add(time.Minute))
	batches := map[string]*types.ProductionBatch{"b1": b1, "b2": b2}

	ok := types.ConfigurationConflict{
		ID:               "c1",
		Type:             types.ConflictConfigurationMismatch,
		Severity:         types.SeverityMedium,
		AffectedBatchIDs: []string{"b1", "b2"},
		CanAutoResolve:   true,
	}
	// 引用缺失的批次，消解必然失败
	bad := types.ConfigurationConflict{
		ID:               "c2",
		Type:             types.ConflictConfigurationMismatch,
		Severity:         types.SeverityMedium,
		AffectedBatchIDs: []string{"missing"},
		CanAutoResolve:   true,
	}
	notTried := types.ConfigurationConflict{
		ID:               "c3",
		Type:             types.ConflictShiftOverlap,
		Severity:         types.SeverityMedium,
		AffectedBatchIDs: []string{"b1", "b2"},
		CanAutoResolve:   true,
	}

	resolutions, unresolved := r.Apply([]types.ConfigurationConflict{ok, bad, notTried}, batches)
	if len(resolutions) != 1 || resolutions[0].ConflictID != "c1" {
		t.Fatalf("失败前已完成的消解应当保留: %+v", resolutions)
	}
	// 失败的冲突与尚未尝试的冲突全部保留
	if len(unresolved) != 2 {
		t.Fatalf("失败及其后的冲突应当全部保留, 得到 %d 个", len(unresolved))
	}
	if unresolved[0].ID != "c2" || unresolved[1].ID != "c3" {
		t.Errorf("未消解冲突顺序不正确: %s, %s", unresolved[0].ID, unresolved[1].ID)
	}
}
