package service

import "errors"

// ── 排程模块业务错误 ──

var (
	ErrInvalidDateRange      = errors.New("结束日期不能早于开始日期")
	ErrInvalidDate           = errors.New("日期格式错误，应为 YYYY-MM-DD")
	ErrUnitNotFound          = errors.New("设备不存在")
	ErrAssignmentNotFound    = errors.New("QA 任务不存在")
	ErrInvalidHours          = errors.New("可用时长必须在 0 到 24 小时之间")
	ErrPastScheduleImmutable = errors.New("已生效的历史周计划不可修改")
	ErrInvalidFrequency      = errors.New("频率定义无效")
	ErrEditNotFound          = errors.New("该日期无可用时间调整")
	ErrInvalidUnitID         = errors.New("设备 ID 格式错误")
	ErrInvalidInput          = errors.New("参数校验失败")
	ErrFrequencyNotFound     = errors.New("频率不存在")
	ErrFrequencyExists       = errors.New("频率名称或 slug 已存在")
	ErrUnitNumberTaken       = errors.New("设备编号已被占用")
)
