package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"qatrack/backend/internal/model"
	"qatrack/backend/pkg/clock"
)

// Frequency QA 频率策略
//
// 约定：NextDueDate 结果不早于 completed，且对相同输入确定。
type Frequency interface {
	// NextDueDate 根据完成日期与当前到期日计算下一到期日
	NextDueDate(completed time.Time, currentDue *time.Time) time.Time
	// OverdueWindowDays 到期后转为逾期前的天数
	OverdueWindowDays() int
}

// recurrenceAnchor 未声明 DTSTART 的重复规则统一从此日期起算
var recurrenceAnchor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// window 两种频率共用的到期窗口
type window struct {
	start *int // 到期前可提前完成的天数，nil 表示不限
	end   int
}

// keepsCurrent 早于 due-window_start 完成的 QA 不推进排程
func (w window) keepsCurrent(completed time.Time, currentDue *time.Time) bool {
	if currentDue == nil || w.start == nil {
		return false
	}
	earliest := clock.DateOf(*currentDue).AddDate(0, 0, -*w.start)
	return completed.Before(earliest)
}

func (w window) OverdueWindowDays() int { return w.end }

// ── 固定间隔 ──

// FixedIntervalFrequency 每 Interval 天一次
type FixedIntervalFrequency struct {
	window
	Interval int
}

// NewFixedIntervalFrequency 创建固定间隔频率
func NewFixedIntervalFrequency(interval int, windowStart *int, windowEnd int) *FixedIntervalFrequency {
	return &FixedIntervalFrequency{window: window{start: windowStart, end: windowEnd}, Interval: interval}
}

func (f *FixedIntervalFrequency) NextDueDate(completed time.Time, currentDue *time.Time) time.Time {
	completed = clock.DateOf(completed)
	if f.keepsCurrent(completed, currentDue) {
		return clock.DateOf(*currentDue)
	}
	return completed.AddDate(0, 0, f.Interval)
}

// ── 日历重复 ──

// CalendarFrequency 按 RFC 5545 重复规则排程（如每月第一个周一）
// 规则在完成日期之后无发生时间时退化为完成日期 + 名义间隔
type CalendarFrequency struct {
	window
	set      *rrule.Set
	fallback int
}

// NewCalendarFrequency 解析重复规则文本，支持多行 DTSTART/RRULE/EXDATE
func NewCalendarFrequency(recurrences string, nominalInterval int, windowStart *int, windowEnd int) (*CalendarFrequency, error) {
	if nominalInterval <= 0 {
		return nil, fmt.Errorf("%w: 名义间隔必须为正", ErrInvalidFrequency)
	}
	lines := strings.Split(strings.ReplaceAll(recurrences, "\r\n", "\n"), "\n")
	hasStart := false
	normalized := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(line), "DTSTART") {
			hasStart = true
		} else if !strings.Contains(line, ":") {
			line = "RRULE:" + line
		}
		normalized = append(normalized, line)
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: 重复规则为空", ErrInvalidFrequency)
	}

	set, err := rrule.StrSliceToRRuleSetInLoc(normalized, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrequency, err)
	}
	if !hasStart {
		set.DTStart(recurrenceAnchor)
	}
	return &CalendarFrequency{
		window:   window{start: windowStart, end: windowEnd},
		set:      set,
		fallback: nominalInterval,
	}, nil
}

func (f *CalendarFrequency) NextDueDate(completed time.Time, currentDue *time.Time) time.Time {
	completed = clock.DateOf(completed)
	if f.keepsCurrent(completed, currentDue) {
		return clock.DateOf(*currentDue)
	}
	// 完成日当天 23:59:59 之后的第一个发生日
	next := f.set.After(completed.Add(day-time.Second), false)
	if next.IsZero() {
		return completed.AddDate(0, 0, f.fallback)
	}
	return clock.DateOf(next)
}

// FrequencyFromModel 按数据选择频率实现：Recurrences 非空为日历重复，否则为固定间隔
// f 为 nil 时返回 nil
func FrequencyFromModel(f *model.Frequency) (Frequency, error) {
	if f == nil {
		return nil, nil
	}
	if f.WindowEnd < 0 || (f.WindowStart != nil && *f.WindowStart < 0) {
		return nil, fmt.Errorf("%w: 窗口天数不能为负", ErrInvalidFrequency)
	}
	if f.NominalInterval <= 0 {
		return nil, fmt.Errorf("%w: 名义间隔必须为正", ErrInvalidFrequency)
	}
	if f.Recurrences != nil && strings.TrimSpace(*f.Recurrences) != "" {
		return NewCalendarFrequency(*f.Recurrences, f.NominalInterval, f.WindowStart, f.WindowEnd)
	}
	return NewFixedIntervalFrequency(f.NominalInterval, f.WindowStart, f.WindowEnd), nil
}
