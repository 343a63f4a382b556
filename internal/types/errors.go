package types

import "errors"

// 审批工作流的错误种类
// 批量操作内部的单批次错误会被捕获进结果集，不会抛出整个调用；
// 只有整体性错误（如未消解的高危冲突）才中止调用且不产生任何变更
var (
	ErrIncompleteConfiguration = errors.New("incomplete configuration")  // 批次配置不完整（缺产品配置或未排期）
	ErrInvalidState            = errors.New("invalid state")             // 批次不处于操作要求的状态
	ErrInvalidTransition       = errors.New("invalid transition")        // 非法状态转移
	ErrInvalidExecutionTime    = errors.New("invalid execution time")    // 执行时间不在班次窗口内或晚于当前时间
	ErrDuplicateMachineSlot    = errors.New("duplicate machine slot")    // 机台档期已被非终态批次占用
	ErrConflictsUnresolved     = errors.New("conflicts unresolved")      // 存在未消解的高危冲突，整体中止
	ErrMachineUnreachable      = errors.New("machine unreachable")       // 机台状态服务不可达
	ErrBatchNotFound           = errors.New("batch not found")
	ErrGroupNotFound           = errors.New("approval group not found")
)

// FailureCode 是单批次失败结果中携带的机器可读错误码
// 字符串编码便于 JSON 序列化和日志排查
type FailureCode string

const (
	CodeIncompleteConfiguration FailureCode = "INCOMPLETE_CONFIGURATION"
	CodeInvalidState            FailureCode = "INVALID_STATE"
	CodeInvalidTransition       FailureCode = "INVALID_TRANSITION"
	CodeInvalidExecutionTime    FailureCode = "INVALID_EXECUTION_TIME"
	CodeDuplicateMachineSlot    FailureCode = "DUPLICATE_MACHINE_SLOT"
	CodeConflictsUnresolved     FailureCode = "CONFLICTS_UNRESOLVED"
	CodeMachineUnreachable      FailureCode = "MACHINE_UNREACHABLE"
	CodeBatchNotFound           FailureCode = "BATCH_NOT_FOUND"
	CodeCancelled               FailureCode = "CANCELLED" // 批量操作被调用方取消，该批次未被处理
)

// CodeForError 将错误映射为失败码
func CodeForError(err error) FailureCode {
	switch {
	case errors.Is(err, ErrIncompleteConfiguration):
		return CodeIncompleteConfiguration
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrInvalidExecutionTime):
		return CodeInvalidExecutionTime
	case errors.Is(err, ErrDuplicateMachineSlot):
		return CodeDuplicateMachineSlot
	case errors.Is(err, ErrConflictsUnresolved):
		return CodeConflictsUnresolved
	case errors.Is(err, ErrMachineUnreachable):
		return CodeMachineUnreachable
	case errors.Is(err, ErrBatchNotFound):
		return CodeBatchNotFound
	}
	return "INTERNAL"
}
