package policy

import (
	"fmt"
	"time"

	"lopan-production/internal/types"
)

// Clock 时钟抽象
// 策略本身是纯函数，唯一的外部输入是当前时间，通过该接口注入以便测试
type Clock interface {
	Now() time.Time
}

// SystemClock 使用系统时间的默认时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TimeOfDay 表示一天中的时刻（不含日期），用于表达班次窗口和截单时间
type TimeOfDay struct {
	Hour   int `mapstructure:"hour" json:"hour"`
	Minute int `mapstructure:"minute" json:"minute"`
}

// Minutes 返回从零点起的分钟数
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// 班次窗口边界
// 早班 [07:00, 19:00)，晚班 [19:00, 次日07:00) 跨午夜
var (
	MorningStart = TimeOfDay{Hour: 7}
	MorningEnd   = TimeOfDay{Hour: 19}
)

// ShiftWindow 返回班次的起止时刻
// 晚班的结束时刻小于开始时刻，表示窗口跨越午夜
func ShiftWindow(shift types.Shift) (start, end TimeOfDay) {
	if shift == types.ShiftEvening {
		return MorningEnd, MorningStart
	}
	return MorningStart, MorningEnd
}

// IsAfterCutoff 判断当前时间是否已过截单时刻
func IsAfterCutoff(now time.Time, cutoff TimeOfDay) bool {
	nowMins := now.Hour()*60 + now.Minute()
	return nowMins >= cutoff.Minutes()
}

// ValidateExecutionTime 校验执行时间是否落在班次窗口内
// 窗口外的执行时间返回 ErrInvalidExecutionTime
func ValidateExecutionTime(shift types.Shift, execTime time.Time) error {
	mins := execTime.Hour()*60 + execTime.Minute()
	switch shift {
	case types.ShiftMorning:
		if mins >= MorningStart.Minutes() && mins < MorningEnd.Minutes() {
			return nil
		}
	case types.ShiftEvening:
		// 晚班窗口跨午夜：19:00 之后或次日 07:00 之前都合法
		if mins >= MorningEnd.Minutes() || mins < MorningStart.Minutes() {
			return nil
		}
	}
	start, end := ShiftWindow(shift)
	return fmt.Errorf("%w: %s 不在 %s 班次窗口 [%s, %s) 内",
		types.ErrInvalidExecutionTime, execTime.Format("15:04"), shift, start, end)
}

// Policy 班次与截单策略
// 纯函数集合，无内部状态，配置即全部状态
type Policy struct {
	Cutoff TimeOfDay // 每日截单时刻，默认正午，可由业务配置
}

// New 创建策略实例
func New(cutoff TimeOfDay) *Policy {
	return &Policy{Cutoff: cutoff}
}

// DateOnly 截取时间的日期部分（保留时区）
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AllowedShift 返回目标日期当前还可以新排期的班次
// 过了截单时刻后，当日只能新排晚班；该规则不追溯已审批的早班批次。
// 目标日期已过去时返回 false，表示无可排班次。
func (p *Policy) AllowedShift(targetDate, now time.Time) (types.Shift, bool) {
	target := DateOnly(targetDate)
	today := DateOnly(now)

	switch {
	case target.Before(today):
		return "", false
	case target.After(today):
		return types.ShiftMorning, true
	case IsAfterCutoff(now, p.Cutoff):
		return types.ShiftEvening, true
	default:
		return types.ShiftMorning, true
	}
}

// ShiftSchedulable 判断某个具体班次当前是否还能为目标日期新排期
// 早班在截单后不可再排当日；晚班当日始终可排
func (p *Policy) ShiftSchedulable(shift types.Shift, targetDate, now time.Time) bool {
	target := DateOnly(targetDate)
	today := DateOnly(now)

	if target.Before(today) {
		return false
	}
	if target.After(today) {
		return true
	}
	if shift == types.ShiftMorning && IsAfterCutoff(now, p.Cutoff) {
		return false
	}
	return true
}
