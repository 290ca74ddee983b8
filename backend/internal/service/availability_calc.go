package service

import (
	"time"

	"qatrack/backend/internal/model"
	"qatrack/backend/pkg/clock"
)

// ── 可用时间计算（纯函数） ──
//
// 周计划按生效日期切分为互不重叠的区段，区段内按星期算术计数，
// 扣除区段内已有单日调整的日期后乘以对应星期的时长；单日调整的时长单独累加。

const day = 24 * time.Hour

// weekdayCounts 统计 [start, end]（含两端）内每个星期出现的次数，end 早于 start 时全为 0
func weekdayCounts(start, end time.Time) [7]int {
	var counts [7]int
	if end.Before(start) {
		return counts
	}
	days := int(end.Sub(start)/day) + 1
	full, rem := days/7, days%7
	for i := range counts {
		counts[i] = full
	}
	first := int(start.Weekday())
	for i := 0; i < rem; i++ {
		counts[(first+i)%7]++
	}
	return counts
}

// segment 某条周计划在查询区间内的生效区段
type segment struct {
	record     *model.UnitAvailableTime
	start, end time.Time
}

// splitSegments records 须按生效日期升序；首条可早于 from（承接基线）
func splitSegments(records []model.UnitAvailableTime, from, to time.Time) []segment {
	segs := make([]segment, 0, len(records))
	for i := range records {
		start := clock.DateOf(records[i].DateChanged)
		if start.Before(from) {
			start = from
		}
		end := to
		if i+1 < len(records) {
			end = clock.DateOf(records[i+1].DateChanged).Add(-day)
		}
		if end.Before(start) {
			continue
		}
		segs = append(segs, segment{record: &records[i], start: start, end: end})
	}
	return segs
}

// potentialTime 计算 [from, to] 内的可用时长；records 与 edits 均须已限定在查询区间
func potentialTime(records []model.UnitAvailableTime, edits []model.UnitAvailableTimeEdit, from, to time.Time) time.Duration {
	editDates := make(map[time.Time]time.Duration, len(edits))
	for _, e := range edits {
		d := clock.DateOf(e.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		editDates[d] = e.Hours
	}

	var total time.Duration
	for _, seg := range splitSegments(records, from, to) {
		counts := weekdayCounts(seg.start, seg.end)
		for d := range editDates {
			if !d.Before(seg.start) && !d.After(seg.end) {
				counts[d.Weekday()]--
			}
		}
		for wd, n := range counts {
			total += time.Duration(n) * seg.record.Hours(time.Weekday(wd))
		}
	}

	for _, h := range editDates {
		total += h
	}
	return total
}

// withBaseline 将承接基线置于区间内记录之前（基线已在区间内时不重复）
func withBaseline(baseline *model.UnitAvailableTime, inRange []model.UnitAvailableTime) []model.UnitAvailableTime {
	if baseline == nil {
		return inRange
	}
	if len(inRange) > 0 && clock.DateOf(inRange[0].DateChanged).Equal(clock.DateOf(baseline.DateChanged)) {
		return inRange
	}
	out := make([]model.UnitAvailableTime, 0, len(inRange)+1)
	out = append(out, *baseline)
	return append(out, inRange...)
}
