package clock

import "time"

// Clock 当前时间提供者，便于测试注入
type Clock interface {
	Now() time.Time
}

// Real 系统时钟，Now 返回指定时区的当前时间
type Real struct {
	Location *time.Location
}

// NewReal 创建系统时钟；loc 为 nil 时使用 UTC
func NewReal(loc *time.Location) Real {
	if loc == nil {
		loc = time.UTC
	}
	return Real{Location: loc}
}

func (r Real) Now() time.Time {
	return time.Now().In(r.Location)
}

// Fixed 固定时钟（测试用）
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Advance 推进固定时钟
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }

// Today 返回 c 当前时间所在时区的日历日期（UTC 零点表示）
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// DateOf 截取日历日期，统一以 UTC 零点表示，避免跨时区的日期漂移
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
