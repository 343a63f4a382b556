package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MachineID 定义生产机台 ID
// 使用字符串类型，方便在日志和配置中直接使用
type MachineID string

// Shift 定义生产班次
type Shift string

const (
	ShiftMorning Shift = "morning" // 早班：07:00 - 19:00
	ShiftEvening Shift = "evening" // 晚班：19:00 - 次日 07:00（跨午夜）
)

// ProductionMode 定义生产模式
type ProductionMode string

const (
	ModeSingleColor ProductionMode = "single_color" // 单色生产
	ModeMultiColor  ProductionMode = "multi_color"  // 多色生产
)

// NumberPrefix 返回批次编号中使用的模式前缀
// 编号格式: <MODE-PREFIX>-<YYYYMMDD>-<4位序号>
func (m ProductionMode) NumberPrefix() string {
	switch m {
	case ModeMultiColor:
		return "MC"
	default:
		return "SC"
	}
}

// BatchStatus 定义批次状态机的状态
// 状态转移由协调器独占管理，见 internal/fsm
type BatchStatus string

const (
	StatusDraft            BatchStatus = "DRAFT"             // 草稿：刚创建，配置未完成
	StatusPendingApproval  BatchStatus = "PENDING_APPROVAL"  // 待审批：已提交，等待批量审批
	StatusApproved         BatchStatus = "APPROVED"          // 已审批：通过冲突检测和班次校验
	StatusPendingExecution BatchStatus = "PENDING_EXECUTION" // 待执行：已确认执行时间
	StatusExecuting        BatchStatus = "EXECUTING"         // 执行中：机台正在生产
	StatusCompleted        BatchStatus = "COMPLETED"         // 已完成（终态）
	StatusRejected         BatchStatus = "REJECTED"          // 已驳回（终态）
	StatusCancelled        BatchStatus = "CANCELLED"         // 已取消（终态）
)

// Terminal 判断状态是否为终态
// 终态批次不再占用机台档期
func (s BatchStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// RequiresSchedule 判断该状态是否要求批次已排期
// 不变式：达到待执行及之后的状态，TargetDate 和 Shift 必须非空
func (s BatchStatus) RequiresSchedule() bool {
	switch s {
	case StatusPendingExecution, StatusExecuting, StatusCompleted:
		return true
	}
	return false
}

// UserRef 表示一个业务用户的引用
// 身份由外部认证协作方提供，这里只作为不透明字符串携带
type UserRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ProductConfig 表示批次中的一条产品配置
type ProductConfig struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ColorID     string `json:"color_id"`
	Quantity    int    `json:"quantity"`
}

// ProductionBatch 表示一个生产批次
// 绑定一台机台和一个班次窗口，是审批工作流的基本单元
type ProductionBatch struct {
	ID            string          `json:"id"`
	BatchNumber   string          `json:"batch_number"`
	MachineID     MachineID       `json:"machine_id"`
	Mode          ProductionMode  `json:"mode"`
	SubmittedBy   UserRef         `json:"submitted_by"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	TargetDate    *time.Time      `json:"target_date,omitempty"` // 目标生产日期，排期前为空，一经设置不可变
	Shift         *Shift          `json:"shift,omitempty"`       // 班次，排期前为空
	Status        BatchStatus     `json:"status"`
	Configs       []ProductConfig `json:"configs,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Priority      int             `json:"priority"`                 // 优先级：数值越大优先级越高，供可配置的冲突排序规则使用
	Deadline      *time.Time      `json:"deadline,omitempty"`       // 最晚执行期限，限制班次重叠冲突的自动顺延
	ExecutionTime *time.Time      `json:"execution_time,omitempty"` // 人工确认的执行时间，标记执行时写入
}

// Scheduled 判断批次是否已排期（日期和班次均已设置）
func (b *ProductionBatch) Scheduled() bool {
	return b.TargetDate != nil && b.Shift != nil
}

// ConfigFingerprint 计算产品配置的稳定指纹
// 对配置条目排序后哈希，与条目顺序无关；用于检测同机台配置不一致
func (b *ProductionBatch) ConfigFingerprint() string {
	if len(b.Configs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(b.Configs))
	for _, c := range b.Configs {
		lines = append(lines, fmt.Sprintf("%s|%s|%d", c.ProductID, c.ColorID, c.Quantity))
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:8])
}

// Clone 返回批次的深拷贝
// 读操作返回拷贝，避免调用方直接修改协调器内部状态
func (b *ProductionBatch) Clone() *ProductionBatch {
	cp := *b
	if b.TargetDate != nil {
		d := *b.TargetDate
		cp.TargetDate = &d
	}
	if b.Shift != nil {
		s := *b.Shift
		cp.Shift = &s
	}
	if b.Deadline != nil {
		d := *b.Deadline
		cp.Deadline = &d
	}
	if b.ExecutionTime != nil {
		t := *b.ExecutionTime
		cp.ExecutionTime = &t
	}
	cp.Configs = append([]ProductConfig(nil), b.Configs...)
	return &cp
}

// MachineReadinessState 表示机台的就绪状态
// 由就绪追踪器独占维护，协调器和冲突检测器只读
type MachineReadinessState struct {
	MachineID         MachineID `json:"machine_id"`
	IsReady           bool      `json:"is_ready"`
	IsRunning         bool      `json:"is_running"`
	LastChecked       time.Time `json:"last_checked"`
	ConfigFingerprint string    `json:"config_fingerprint,omitempty"` // 机台当前装载的配置指纹，可能为空
}

// ConflictType 定义配置冲突的类型
type ConflictType string

const (
	ConflictMachineDoubleBooked   ConflictType = "MACHINE_DOUBLE_BOOKED"  // 机台被重复占用：同机台同日期同班次
	ConflictShiftOverlap          ConflictType = "SHIFT_OVERLAP"          // 班次重叠：同机台相邻班次衔接存在风险
	ConflictConfigurationMismatch ConflictType = "CONFIGURATION_MISMATCH" // 配置不一致：同机台相邻批次配置指纹不同
	ConflictReadinessNotMet       ConflictType = "READINESS_NOT_MET"      // 机台未就绪：含状态过期或不可达
)

// Severity 定义冲突严重程度
// 使用显式整数等级而非枚举声明顺序，保证排序在重构后保持稳定
type Severity int

const (
	SeverityLow    Severity = 1
	SeverityMedium Severity = 2
	SeverityHigh   Severity = 3
)

// DefaultSeverity 返回冲突类型对应的严重程度
func (t ConflictType) DefaultSeverity() Severity {
	switch t {
	case ConflictMachineDoubleBooked, ConflictReadinessNotMet:
		return SeverityHigh
	case ConflictShiftOverlap, ConflictConfigurationMismatch:
		return SeverityMedium
	}
	return SeverityLow
}

// ConfigurationConflict 表示一条检测到的配置冲突
// 冲突是瞬时值：每次评估重新计算，从不直接持久化，只持久化消解记录
type ConfigurationConflict struct {
	ID                 string       `json:"id"`
	Type               ConflictType `json:"type"`
	Severity           Severity     `json:"severity"`
	AffectedMachineIDs []MachineID  `json:"affected_machine_ids"` // 非空
	AffectedBatchIDs   []string     `json:"affected_batch_ids"`
	Description        string       `json:"description"`
	CanAutoResolve     bool         `json:"can_auto_resolve"`
}

// ResolutionStrategy 定义冲突消解方式
type ResolutionStrategy string

const (
	ResolutionAuto   ResolutionStrategy = "auto"
	ResolutionManual ResolutionStrategy = "manual"
)

// ConflictResolution 表示一条冲突消解记录
type ConflictResolution struct {
	ConflictID string             `json:"conflict_id"`
	Type       ConflictType       `json:"type"`
	Strategy   ResolutionStrategy `json:"strategy"`
	Mutations  []string           `json:"mutations"` // 实际应用的批次/机台变更描述
	ResolvedAt time.Time          `json:"resolved_at"`
	ResolvedBy string             `json:"resolved_by,omitempty"` // 自动消解时为空
}

// ApprovalGroup 表示一次批量审批产生的审批组
// 创建后不可变，是批量审批的审计单元
type ApprovalGroup struct {
	ID                string    `json:"id"`
	GroupName         string    `json:"group_name"`
	TargetDate        time.Time `json:"target_date"`
	BatchIDs          []string  `json:"batch_ids"` // 非空且不重复
	CoordinatorUserID string    `json:"coordinator_user_id"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// BatchOutcome 表示批量操作中单个批次的处理结果
type BatchOutcome struct {
	BatchID     string      `json:"batch_id"`
	BatchNumber string      `json:"batch_number,omitempty"`
	Approved    bool        `json:"approved"`
	Code        FailureCode `json:"code,omitempty"`
	Reason      string      `json:"reason,omitempty"` // 人类可读的失败原因
}

// BatchApprovalResult 表示一次批量审批的总结果
// UI 按"成功数 + 失败清单"展示，而不是整体报错
type BatchApprovalResult struct {
	Outcomes     []BatchOutcome `json:"outcomes"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	GroupID      string         `json:"group_id,omitempty"` // 零成功时为空，不创建审批组
}
