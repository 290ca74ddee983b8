package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"qatrack/backend/internal/model"
	"qatrack/backend/internal/repository"
)

// ── 测试辅助 ──

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

// week 按周日..周六顺序以小时构造七天时长
func week(h ...float64) [7]time.Duration {
	var w [7]time.Duration
	for i := range w {
		if i < len(h) {
			w[i] = hoursToDuration(h[i])
		}
	}
	return w
}

type mockRepos struct {
	unit       *mockUnitRepo
	avail      *mockAvailableTimeRepo
	edit       *mockEditRepo
	freq       *mockFrequencyRepo
	assignment *mockAssignmentRepo
	instance   *mockInstanceRepo
	repo       *repository.Repository
}

func newMockRepos() *mockRepos {
	instances := newMockInstanceRepo()
	m := &mockRepos{
		unit:       newMockUnitRepo(),
		avail:      newMockAvailableTimeRepo(),
		edit:       newMockEditRepo(),
		freq:       newMockFrequencyRepo(),
		assignment: newMockAssignmentRepo(instances),
		instance:   instances,
	}
	m.repo = &repository.Repository{
		Unit:              m.unit,
		AvailableTime:     m.avail,
		AvailableTimeEdit: m.edit,
		Frequency:         m.freq,
		Assignment:        m.assignment,
		Instance:          m.instance,
	}
	return m
}

// ── Mock UnitRepository ──

type mockUnitRepo struct {
	units map[string]*model.Unit
	err   error
}

func newMockUnitRepo() *mockUnitRepo {
	return &mockUnitRepo{units: make(map[string]*model.Unit)}
}

func (m *mockUnitRepo) Create(_ context.Context, unit *model.Unit) error {
	if unit.UnitID == "" {
		unit.UnitID = fmt.Sprintf("unit-%d", unit.Number)
	}
	m.units[unit.UnitID] = unit
	return nil
}

func (m *mockUnitRepo) GetByID(_ context.Context, id string) (*model.Unit, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.units[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUnitRepo) List(ctx context.Context, filter repository.UnitFilter) ([]model.Unit, error) {
	return m.ListWithTechniques(ctx, filter)
}

func (m *mockUnitRepo) ListWithTechniques(_ context.Context, filter repository.UnitFilter) ([]model.Unit, error) {
	if m.err != nil {
		return nil, m.err
	}
	var ids map[string]bool
	if filter.IDs != nil {
		ids = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}
	var result []model.Unit
	for _, u := range m.units {
		if ids != nil && !ids[u.UnitID] {
			continue
		}
		if filter.ActiveOnly && !u.Active {
			continue
		}
		if filter.ServiceableOnly && !u.IsServiceable {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

// ── Mock UnitAvailableTimeRepository ──

type mockAvailableTimeRepo struct {
	records []model.UnitAvailableTime
	seq     int
}

func newMockAvailableTimeRepo() *mockAvailableTimeRepo {
	return &mockAvailableTimeRepo{}
}

// add 直接写入一条周计划（测试数据准备）
func (m *mockAvailableTimeRepo) add(unitID string, eff time.Time, w [7]time.Duration) {
	r := model.UnitAvailableTime{UnitID: unitID, DateChanged: eff}
	r.SetWeek(w)
	_ = m.Upsert(context.Background(), &r)
}

func (m *mockAvailableTimeRepo) sorted(unitID string, keep func(time.Time) bool) []model.UnitAvailableTime {
	var result []model.UnitAvailableTime
	for _, r := range m.records {
		if r.UnitID == unitID && keep(r.DateChanged) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DateChanged.Before(result[j].DateChanged) })
	return result
}

func (m *mockAvailableTimeRepo) ListInRange(_ context.Context, unitID string, from, to time.Time) ([]model.UnitAvailableTime, error) {
	return m.sorted(unitID, func(d time.Time) bool { return !d.Before(from) && !d.After(to) }), nil
}

func (m *mockAvailableTimeRepo) GetLatestOnOrBefore(_ context.Context, unitID string, date time.Time) (*model.UnitAvailableTime, error) {
	list := m.sorted(unitID, func(d time.Time) bool { return !d.After(date) })
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	r := list[len(list)-1]
	return &r, nil
}

func (m *mockAvailableTimeRepo) GetByUnitAndDate(_ context.Context, unitID string, date time.Time) (*model.UnitAvailableTime, error) {
	for _, r := range m.records {
		if r.UnitID == unitID && r.DateChanged.Equal(date) {
			cp := r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAvailableTimeRepo) ListByUnit(_ context.Context, unitID string) ([]model.UnitAvailableTime, error) {
	return m.sorted(unitID, func(time.Time) bool { return true }), nil
}

func (m *mockAvailableTimeRepo) Upsert(_ context.Context, record *model.UnitAvailableTime) error {
	for i := range m.records {
		if m.records[i].UnitID == record.UnitID && m.records[i].DateChanged.Equal(record.DateChanged) {
			m.records[i].SetWeek(record.Week())
			m.records[i].UpdatedBy = record.UpdatedBy
			return nil
		}
	}
	m.seq++
	if record.UnitAvailableTimeID == "" {
		record.UnitAvailableTimeID = fmt.Sprintf("uat-%d", m.seq)
	}
	m.records = append(m.records, *record)
	return nil
}

// ── Mock UnitAvailableTimeEditRepository ──

type editKey struct {
	unitID string
	date   time.Time
}

type mockEditRepo struct {
	edits   map[editKey]*model.UnitAvailableTimeEdit
	upserts int
}

func newMockEditRepo() *mockEditRepo {
	return &mockEditRepo{edits: make(map[editKey]*model.UnitAvailableTimeEdit)}
}

func (m *mockEditRepo) add(unitID string, d time.Time, hours float64, name string) {
	_ = m.Upsert(context.Background(), &model.UnitAvailableTimeEdit{
		UnitID: unitID, Date: d, Hours: hoursToDuration(hours), Name: name,
	})
}

func (m *mockEditRepo) ListInRange(_ context.Context, unitID string, from, to time.Time) ([]model.UnitAvailableTimeEdit, error) {
	var result []model.UnitAvailableTimeEdit
	for k, e := range m.edits {
		if k.unitID == unitID && !k.date.Before(from) && !k.date.After(to) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockEditRepo) Upsert(_ context.Context, edit *model.UnitAvailableTimeEdit) error {
	m.upserts++
	k := editKey{edit.UnitID, edit.Date}
	if existing, ok := m.edits[k]; ok {
		existing.Hours = edit.Hours
		existing.Name = edit.Name
		return nil
	}
	cp := *edit
	m.edits[k] = &cp
	return nil
}

func (m *mockEditRepo) Delete(_ context.Context, unitID string, date time.Time) (int64, error) {
	k := editKey{unitID, date}
	if _, ok := m.edits[k]; !ok {
		return 0, nil
	}
	delete(m.edits, k)
	return 1, nil
}

func (m *mockEditRepo) DeleteRange(_ context.Context, unitID string, from, to time.Time) (int64, error) {
	var n int64
	for k := range m.edits {
		if k.unitID == unitID && !k.date.Before(from) && !k.date.After(to) {
			delete(m.edits, k)
			n++
		}
	}
	return n, nil
}

// ── Mock FrequencyRepository ──

type mockFrequencyRepo struct {
	freqs map[string]*model.Frequency
}

func newMockFrequencyRepo() *mockFrequencyRepo {
	return &mockFrequencyRepo{freqs: make(map[string]*model.Frequency)}
}

func (m *mockFrequencyRepo) Create(_ context.Context, f *model.Frequency) error {
	if f.FrequencyID == "" {
		f.FrequencyID = "freq-" + f.Slug
	}
	m.freqs[f.FrequencyID] = f
	return nil
}

func (m *mockFrequencyRepo) GetByID(_ context.Context, id string) (*model.Frequency, error) {
	if f, ok := m.freqs[id]; ok {
		return f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFrequencyRepo) GetBySlug(_ context.Context, slug string) (*model.Frequency, error) {
	for _, f := range m.freqs {
		if f.Slug == slug {
			return f, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFrequencyRepo) List(_ context.Context) ([]model.Frequency, error) {
	var result []model.Frequency
	for _, f := range m.freqs {
		result = append(result, *f)
	}
	return result, nil
}

// ── Mock UnitTestCollectionRepository ──

type mockAssignmentRepo struct {
	items         map[string]*model.UnitTestCollection
	instances     *mockInstanceRepo
	silentUpdates int
	fullSaves     int // 模拟 AfterSave 通知次数
}

func newMockAssignmentRepo(instances *mockInstanceRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{items: make(map[string]*model.UnitTestCollection), instances: instances}
}

func (m *mockAssignmentRepo) Create(_ context.Context, utc *model.UnitTestCollection) error {
	if utc.UnitTestCollectionID == "" {
		utc.UnitTestCollectionID = "utc-" + utc.Name
	}
	m.items[utc.UnitTestCollectionID] = utc
	m.fullSaves++
	return nil
}

// GetByID 返回副本，未持久化的修改不影响存储
func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.UnitTestCollection, error) {
	utc, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *utc
	if cp.LastInstanceID != nil {
		cp.LastInstance = m.instances.instances[*cp.LastInstanceID]
	}
	return &cp, nil
}

func (m *mockAssignmentRepo) ListActive(ctx context.Context, unitID string) ([]model.UnitTestCollection, error) {
	var result []model.UnitTestCollection
	for id, utc := range m.items {
		if !utc.Active || (unitID != "" && utc.UnitID != unitID) {
			continue
		}
		cp, _ := m.GetByID(ctx, id)
		result = append(result, *cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, utc *model.UnitTestCollection) error {
	m.items[utc.UnitTestCollectionID] = utc
	m.fullSaves++
	return nil
}

func (m *mockAssignmentRepo) UpdateDueDateSilently(_ context.Context, id string, dueDate *time.Time) error {
	utc, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	utc.DueDate = dueDate
	m.silentUpdates++
	return nil
}

func (m *mockAssignmentRepo) SetLastInstance(_ context.Context, id string, instanceID string) error {
	utc, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	utc.LastInstanceID = &instanceID
	return nil
}

// ── Mock TestListInstanceRepository ──

type mockInstanceRepo struct {
	instances map[string]*model.TestListInstance
	seq       int
}

func newMockInstanceRepo() *mockInstanceRepo {
	return &mockInstanceRepo{instances: make(map[string]*model.TestListInstance)}
}

func (m *mockInstanceRepo) Create(_ context.Context, inst *model.TestListInstance) error {
	m.seq++
	if inst.TestListInstanceID == "" {
		inst.TestListInstanceID = fmt.Sprintf("inst-%d", m.seq)
	}
	m.instances[inst.TestListInstanceID] = inst
	return nil
}

func (m *mockInstanceRepo) ListByAssignment(_ context.Context, assignmentID string, limit int) ([]model.TestListInstance, error) {
	var result []model.TestListInstance
	for _, inst := range m.instances {
		if inst.UnitTestCollectionID == assignmentID {
			result = append(result, *inst)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].WorkCompleted.After(result[j].WorkCompleted) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ── Mock ScheduleCache ──

type mockCache struct {
	versions map[string]int64
	values   map[string]float64
	hits     int
	sets     int
}

func newMockCache() *mockCache {
	return &mockCache{versions: make(map[string]int64), values: make(map[string]float64)}
}

func cacheKey(unitID string, version int64, from, to time.Time) string {
	return fmt.Sprintf("%s:%d:%s:%s", unitID, version, from.Format(dateLayout), to.Format(dateLayout))
}

func (m *mockCache) ScheduleVersion(_ context.Context, unitID string) (int64, error) {
	return m.versions[unitID], nil
}

func (m *mockCache) BumpScheduleVersion(_ context.Context, unitID string) error {
	m.versions[unitID]++
	return nil
}

func (m *mockCache) GetPotentialTime(_ context.Context, unitID string, version int64, from, to time.Time) (float64, bool, error) {
	v, ok := m.values[cacheKey(unitID, version, from, to)]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *mockCache) SetPotentialTime(_ context.Context, unitID string, version int64, from, to time.Time, hours float64, _ time.Duration) error {
	m.values[cacheKey(unitID, version, from, to)] = hours
	m.sets++
	return nil
}
