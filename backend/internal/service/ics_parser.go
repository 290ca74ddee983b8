package service

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"qatrack/backend/pkg/clock"
)

// ── ICS 节假日解析器 ──────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 节假日日历解析为按日期去重的节假日列表，
// 随后由 UnitScheduleService 转为各设备的单日可用时间调整。
//
// 约定：
//   - 全天事件 DTEND 为排他边界，多日事件展开为每一天
//   - 带时间的事件覆盖其开始到结束之间的每个日历日
//   - RRULE（如每年元旦）展开到 horizon 为止，EXDATE 排除
//   - 同一日期多个事件名称以 " / " 合并，截断到 64 字符
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	holidayNameMax  = 64
)

// Holiday 解析出的节假日
type Holiday struct {
	Date time.Time // UTC 零点
	Name string
}

// ParseHolidayICS 解析 ICS 内容为按日期升序的节假日列表
//
// 参数：
//   - reader: ICS 数据流
//   - loc: 无时区信息的日期时间按此时区解释
//   - horizon: 重复事件展开的截止日期（含）
func ParseHolidayICS(reader io.Reader, loc *time.Location, horizon time.Time) ([]Holiday, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	names := make(map[time.Time][]string)
	for _, evt := range cal.Events() {
		name, dates, ok := parseHolidayEvent(evt, loc, horizon)
		if !ok {
			continue
		}
		for _, d := range dates {
			if !containsString(names[d], name) {
				names[d] = append(names[d], name)
			}
		}
	}

	result := make([]Holiday, 0, len(names))
	for d, ns := range names {
		result = append(result, Holiday{Date: d, Name: truncateRunes(strings.Join(ns, " / "), holidayNameMax)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// parseHolidayEvent 解析单个 VEVENT，返回其覆盖的全部日期
func parseHolidayEvent(evt *ics.VEvent, loc *time.Location, horizon time.Time) (string, []time.Time, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return "", nil, false
	}
	name := strings.TrimSpace(summary.Value)

	start, allDay, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return "", nil, false
	}
	end, _, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil || !end.After(start) {
		// 无 DTEND：全天事件为当天，带时间事件视为瞬时
		if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start
		}
	}
	length := end.Sub(start)

	starts := []time.Time{start}
	if prop := evt.GetProperty(ics.ComponentPropertyRrule); prop != nil {
		occ, err := expandRRule(prop.Value, start, parseExDates(evt, loc), horizon)
		if err != nil {
			return "", nil, false
		}
		starts = occ
	}

	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, s := range starts {
		for _, d := range coveredDates(s, s.Add(length), allDay) {
			if !seen[d] {
				seen[d] = true
				dates = append(dates, d)
			}
		}
	}
	return name, dates, len(dates) > 0
}

// coveredDates 事件 [start, end) 覆盖的日历日
func coveredDates(start, end time.Time, allDay bool) []time.Time {
	first := clock.DateOf(start)
	last := clock.DateOf(end)
	if allDay || (end.After(start) && end.Equal(time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()))) {
		// 排他结束边界
		last = last.AddDate(0, 0, -1)
	}
	if last.Before(first) {
		last = first
	}
	var out []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// expandRRule 展开重复事件的开始时间，截止 horizon
func expandRRule(value string, dtStart time.Time, exDates map[string]bool, horizon time.Time) ([]time.Time, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtStart
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}
	until := time.Date(horizon.Year(), horizon.Month(), horizon.Day(), 23, 59, 59, 0, dtStart.Location())
	var out []time.Time
	for _, t := range rule.Between(dtStart, until, true) {
		if exDates[t.Format("20060102")] {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// parseExDates 解析事件中所有 EXDATE
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			t, err := time.Parse("20060102T150405Z", v)
			if err != nil {
				t, err = time.ParseInLocation("20060102T150405", v, loc)
				if err != nil {
					t, err = time.ParseInLocation("20060102", v, loc)
				}
			}
			if err == nil {
				exDates[t.In(loc).Format("20060102")] = true
			}
		}
	}
	return exDates
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，第二个返回值表示是否为纯日期
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	if len(val) == 8 {
		t, err := time.ParseInLocation("20060102", val, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
		}
		return t, true, nil
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), false, nil
	}

	// 检查 TZID 参数
	tzLoc := loc
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			if l, err := time.LoadLocation(v[0]); err == nil {
				tzLoc = l
			}
		}
	}
	t, err := time.ParseInLocation("20060102T150405", val, tzLoc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
	}
	return t.In(loc), false, nil
}

// ── 辅助函数 ──

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
