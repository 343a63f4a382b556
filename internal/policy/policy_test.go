package policy

import (
	"errors"
	"testing"
	"time"

	"lopan-production/internal/types"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("解析时间失败: %v", err)
	}
	return parsed
}

func TestValidateExecutionTime_MorningWindow(t *testing.T) {
	cases := []struct {
		exec string
		ok   bool
	}{
		{"2025-01-10 07:00", true},  // 窗口起点包含
		{"2025-01-10 09:30", true},
		{"2025-01-10 18:59", true},
		{"2025-01-10 19:00", false}, // 窗口终点不包含
		{"2025-01-10 20:00", false},
		{"2025-01-10 06:59", false},
	}
	for _, c := range cases {
		err := ValidateExecutionTime(types.ShiftMorning, mustTime(t, c.exec))
		if c.ok && err != nil {
			t.Errorf("早班执行时间 %s 应当合法, 得到错误: %v", c.exec, err)
		}
		if !c.ok {
			if !errors.Is(err, types.ErrInvalidExecutionTime) {
				t.Errorf("早班执行时间 %s 应当返回 ErrInvalidExecutionTime, 得到: %v", c.exec, err)
			}
		}
	}
}

func TestValidateExecutionTime_EveningWrapsMidnight(t *testing.T) {
	// 晚班窗口跨午夜：19:00 之后和次日 07:00 之前都合法
	valid := []string{"2025-01-10 19:00", "2025-01-10 23:59", "2025-01-11 00:30", "2025-01-11 06:59"}
	for _, v := range valid {
		if err := ValidateExecutionTime(types.ShiftEvening, mustTime(t, v)); err != nil {
			t.Errorf("晚班执行时间 %s 应当合法, 得到错误: %v", v, err)
		}
	}
	invalid := []string{"2025-01-10 07:00", "2025-01-10 12:00", "2025-01-10 18:59"}
	for _, v := range invalid {
		if err := ValidateExecutionTime(types.ShiftEvening, mustTime(t, v)); !errors.Is(err, types.ErrInvalidExecutionTime) {
			t.Errorf("晚班执行时间 %s 应当返回 ErrInvalidExecutionTime, 得到: %v", v, err)
		}
	}
}

func TestIsAfterCutoff(t *testing.T) {
	cutoff := TimeOfDay{Hour: 12}
	if IsAfterCutoff(mustTime(t, "2025-01-10 11:59"), cutoff) {
		t.Error("11:59 不应当过截单时刻")
	}
	if !IsAfterCutoff(mustTime(t, "2025-01-10 12:00"), cutoff) {
		t.Error("12:00 应当已过截单时刻")
	}
}

func TestAllowedShift(t *testing.T) {
	p := New(TimeOfDay{Hour: 12})
	today := mustTime(t, "2025-01-10 09:00")

	// 截单前当日可排早班
	if shift, ok := p.AllowedShift(today, today); !ok || shift != types.ShiftMorning {
		t.Errorf("截单前应当允许早班, 得到 %s / %v", shift, ok)
	}

	// 截单后当日只能新排晚班
	afternoon := mustTime(t, "2025-01-10 13:00")
	if shift, ok := p.AllowedShift(today, afternoon); !ok || shift != types.ShiftEvening {
		t.Errorf("截单后应当只允许晚班, 得到 %s / %v", shift, ok)
	}

	// 未来日期不受当日截单影响
	future := mustTime(t, "2025-01-12 00:00")
	if shift, ok := p.AllowedShift(future, afternoon); !ok || shift != types.ShiftMorning {
		t.Errorf("未来日期应当允许早班, 得到 %s / %v", shift, ok)
	}

	// 过去的日期无可排班次
	past := mustTime(t, "2025-01-09 00:00")
	if _, ok := p.AllowedShift(past, afternoon); ok {
		t.Error("过去的日期不应当有可排班次")
	}
}

func TestShiftSchedulable(t *testing.T) {
	p := New(TimeOfDay{Hour: 12})
	day := mustTime(t, "2025-01-10 00:00")

	// 截单后当日早班不可排，晚班可排
	afternoon := mustTime(t, "2025-01-10 14:00")
	if p.ShiftSchedulable(types.ShiftMorning, day, afternoon) {
		t.Error("截单后当日早班不应当可排")
	}
	if !p.ShiftSchedulable(types.ShiftEvening, day, afternoon) {
		t.Error("截单后当日晚班应当仍可排")
	}

	// 截单前两个班次都可排
	morning := mustTime(t, "2025-01-10 08:00")
	if !p.ShiftSchedulable(types.ShiftMorning, day, morning) {
		t.Error("截单前当日早班应当可排")
	}
}
