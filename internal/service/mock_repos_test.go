package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dom-study/backend/config"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/repository"
	"dom-study/backend/internal/scheduling"
	pkgerrors "dom-study/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock StudyPlanRepository ──

type mockPlanRepo struct {
	plans map[string]*model.StudyPlan
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[string]*model.StudyPlan)}
}

func (m *mockPlanRepo) Create(_ context.Context, plan *model.StudyPlan) error {
	if plan.PlanID == "" {
		plan.PlanID = fmt.Sprintf("plan-%d", len(m.plans)+1)
	}
	if plan.Version == 0 {
		plan.Version = 1
	}
	cp := *plan
	m.plans[plan.PlanID] = &cp
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id string) (*model.StudyPlan, error) {
	if p, ok := m.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.StudyPlan, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPlanRepo) ListByUser(_ context.Context, userID string, status model.PlanStatus, offset, limit int) ([]model.StudyPlan, int64, error) {
	var out []model.StudyPlan
	for _, p := range m.plans {
		if p.UserID == userID && (status == "" || p.Status == status) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanID < out[j].PlanID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockPlanRepo) ListActive(_ context.Context) ([]model.StudyPlan, error) {
	var out []model.StudyPlan
	for _, p := range m.plans {
		if p.Status == model.PlanStatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPlanRepo) Update(_ context.Context, plan *model.StudyPlan) error {
	stored, ok := m.plans[plan.PlanID]
	if !ok || stored.Version != plan.Version {
		return pkgerrors.ErrOptimisticLock
	}
	plan.Version++
	cp := *plan
	m.plans[plan.PlanID] = &cp
	return nil
}

func (m *mockPlanRepo) UpdateStatus(_ context.Context, plan *model.StudyPlan, status model.PlanStatus) error {
	stored, ok := m.plans[plan.PlanID]
	if !ok || stored.Version != plan.Version {
		return pkgerrors.ErrOptimisticLock
	}
	plan.Status = status
	plan.Version++
	cp := *plan
	m.plans[plan.PlanID] = &cp
	return nil
}

// ── Mock GoalRepository ──

// mockGoalRepo 存储副本，服务层必须通过 Update / ApplyPlacements 写回
type mockGoalRepo struct {
	goals   map[string]*model.Goal
	deleted map[string]*model.Goal
	seq     int
	applied int
}

func newMockGoalRepo() *mockGoalRepo {
	return &mockGoalRepo{goals: make(map[string]*model.Goal), deleted: make(map[string]*model.Goal)}
}

func (m *mockGoalRepo) Create(_ context.Context, goal *model.Goal) error {
	m.seq++
	if goal.GoalID == "" {
		goal.GoalID = fmt.Sprintf("goal-%03d", m.seq)
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	}
	cp := *goal
	m.goals[goal.GoalID] = &cp
	return nil
}

func (m *mockGoalRepo) BatchCreate(ctx context.Context, goals []model.Goal) error {
	for i := range goals {
		if err := m.Create(ctx, &goals[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockGoalRepo) GetByID(_ context.Context, id string) (*model.Goal, error) {
	if g, ok := m.goals[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGoalRepo) GetByNumber(_ context.Context, planID string, base int) (*model.Goal, error) {
	var found *model.Goal
	for _, g := range m.goals {
		if g.PlanID == planID && g.NumberBase == base && g.NumberSuffix == nil {
			if found == nil || g.CreatedAt.Before(found.CreatedAt) {
				found = g
			}
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *found
	return &cp, nil
}

// list 按 日期 + 序号 排序返回满足条件的副本
func (m *mockGoalRepo) list(keep func(g *model.Goal) bool) []model.Goal {
	var out []model.Goal
	for _, g := range m.goals {
		if keep(g) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[j].ScheduledDate)
		}
		if out[i].ScheduledOrder != out[j].ScheduledOrder {
			return out[i].ScheduledOrder < out[j].ScheduledOrder
		}
		return out[i].GoalID < out[j].GoalID
	})
	return out
}

func (m *mockGoalRepo) ListByPlan(_ context.Context, planID string, f repository.GoalFilter) ([]model.Goal, int64, error) {
	out := m.list(func(g *model.Goal) bool {
		return g.PlanID == planID &&
			(f.From == nil || !g.ScheduledDate.Before(*f.From)) &&
			(f.To == nil || !g.ScheduledDate.After(*f.To)) &&
			(f.Status == "" || g.Status == f.Status) &&
			(f.Type == "" || g.Type == f.Type)
	})
	total := int64(len(out))
	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return nil, total, nil
		}
		out = out[f.Offset:]
		if f.Limit < len(out) {
			out = out[:f.Limit]
		}
	}
	return out, total, nil
}

func (m *mockGoalRepo) ListBacklog(_ context.Context, planID string) ([]model.Goal, error) {
	out := m.list(func(g *model.Goal) bool { return g.PlanID == planID && scheduling.InBacklog(g) })
	scheduling.SortBacklog(out)
	return out, nil
}

func (m *mockGoalRepo) ListFrom(_ context.Context, planID string, from time.Time) ([]model.Goal, error) {
	return m.list(func(g *model.Goal) bool { return g.PlanID == planID && !g.ScheduledDate.Before(from) }), nil
}

func (m *mockGoalRepo) ListOnDate(_ context.Context, planID string, date time.Time) ([]model.Goal, error) {
	return m.list(func(g *model.Goal) bool { return g.PlanID == planID && g.ScheduledDate.Equal(date) }), nil
}

func (m *mockGoalRepo) ListFixed(_ context.Context, planID string) ([]model.Goal, error) {
	return m.list(func(g *model.Goal) bool { return g.PlanID == planID && g.Fixed && !g.Omitted }), nil
}

// ListOverduePlanIDs mock 不关联计划表，调用方需自行保证计划为 ACTIVE
func (m *mockGoalRepo) ListOverduePlanIDs(_ context.Context, before time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, g := range m.list(func(g *model.Goal) bool { return scheduling.InBacklog(g) && g.ScheduledDate.Before(before) }) {
		if !seen[g.PlanID] {
			seen[g.PlanID] = true
			ids = append(ids, g.PlanID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockGoalRepo) SumClaimedMinutes(ctx context.Context, planID string, date time.Time) (int, error) {
	goals, _ := m.ListOnDate(ctx, planID, date)
	return scheduling.ClaimedMinutes(goals), nil
}

func (m *mockGoalRepo) SumFixedMinutes(ctx context.Context, planID string, date time.Time) (int, error) {
	goals, _ := m.ListOnDate(ctx, planID, date)
	return scheduling.FixedMinutes(goals), nil
}

func (m *mockGoalRepo) MaxOrder(_ context.Context, planID string, date time.Time) (int, error) {
	max := 0
	for _, g := range m.goals {
		if g.PlanID == planID && g.ScheduledDate.Equal(date) && g.ScheduledOrder > max {
			max = g.ScheduledOrder
		}
	}
	return max, nil
}

func (m *mockGoalRepo) all() []*model.Goal {
	out := make([]*model.Goal, 0, len(m.goals)+len(m.deleted))
	for _, g := range m.goals {
		out = append(out, g)
	}
	for _, g := range m.deleted {
		out = append(out, g)
	}
	return out
}

func (m *mockGoalRepo) MaxNumberBase(_ context.Context, planID string) (int, error) {
	max := 0
	for _, g := range m.all() {
		if g.PlanID == planID && g.NumberBase > max {
			max = g.NumberBase
		}
	}
	return max, nil
}

func (m *mockGoalRepo) MaxNumberSuffix(_ context.Context, planID string, base int) (int, error) {
	max := 0
	for _, g := range m.all() {
		if g.PlanID == planID && g.NumberBase == base && g.NumberSuffix != nil && *g.NumberSuffix > max {
			max = *g.NumberSuffix
		}
	}
	return max, nil
}

func (m *mockGoalRepo) ExistsRowHash(_ context.Context, planID, rowHash string) (bool, error) {
	for _, g := range m.goals {
		if g.PlanID == planID && g.RowHash != nil && *g.RowHash == rowHash {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGoalRepo) ListReviewChildren(_ context.Context, parentID string) ([]model.Goal, error) {
	return m.list(func(g *model.Goal) bool {
		return g.ParentGoalID != nil && *g.ParentGoalID == parentID && g.Type == model.GoalTypeReview
	}), nil
}

func (m *mockGoalRepo) CountReviewChildren(ctx context.Context, parentID string) (int64, error) {
	children, _ := m.ListReviewChildren(ctx, parentID)
	return int64(len(children)), nil
}

func (m *mockGoalRepo) Update(_ context.Context, goal *model.Goal, from model.GoalStatus) error {
	stored, ok := m.goals[goal.GoalID]
	if !ok || stored.Status != from {
		return pkgerrors.ErrStaleGoal
	}
	cp := *goal
	m.goals[goal.GoalID] = &cp
	return nil
}

// put 测试数据准备：直接覆盖存储的目标
func (m *mockGoalRepo) put(goal *model.Goal) {
	cp := *goal
	m.goals[goal.GoalID] = &cp
}

func (m *mockGoalRepo) UpdateSchedule(_ context.Context, goalID string, date time.Time, order int) error {
	g, ok := m.goals[goalID]
	if !ok || g.IsDone() {
		return pkgerrors.ErrStaleGoal
	}
	g.ScheduledDate = date
	g.ScheduledOrder = order
	return nil
}

// ApplyPlacements 先整体校验再写入，模拟事务回滚
func (m *mockGoalRepo) ApplyPlacements(_ context.Context, placements []repository.Placement) error {
	for _, p := range placements {
		g, ok := m.goals[p.GoalID]
		if !ok || g.Status != model.GoalStatusPending || g.Omitted {
			return pkgerrors.ErrStaleGoal
		}
	}
	for _, p := range placements {
		g := m.goals[p.GoalID]
		g.ScheduledDate = p.Date
		g.ScheduledOrder = p.Order
	}
	m.applied += len(placements)
	return nil
}

func (m *mockGoalRepo) Delete(_ context.Context, id string) error {
	g, ok := m.goals[id]
	if !ok || g.IsDone() {
		return pkgerrors.ErrStaleGoal
	}
	m.deleted[id] = g
	delete(m.goals, id)
	return nil
}

// ── Mock TaxonomyRepository ──

type mockTaxonomyRepo struct {
	subjects map[string]*model.Subject
	topics   map[string]*model.Topic
}

func newMockTaxonomyRepo() *mockTaxonomyRepo {
	return &mockTaxonomyRepo{subjects: make(map[string]*model.Subject), topics: make(map[string]*model.Topic)}
}

func (m *mockTaxonomyRepo) ListSubjects(_ context.Context, activeOnly bool) ([]model.Subject, error) {
	var out []model.Subject
	for _, s := range m.subjects {
		if !activeOnly || s.IsActive {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockTaxonomyRepo) GetSubjectByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaxonomyRepo) GetSubjectByCode(_ context.Context, code string) (*model.Subject, error) {
	for _, s := range m.subjects {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaxonomyRepo) GetTopicByCode(_ context.Context, subjectID string, parentTopicID *string, code string) (*model.Topic, error) {
	for _, t := range m.topics {
		if t.SubjectID == subjectID && t.Code == code && deref(t.ParentTopicID) == deref(parentTopicID) {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaxonomyRepo) ListTopics(_ context.Context, subjectID string) ([]model.Topic, error) {
	var out []model.Topic
	for _, t := range m.topics {
		if t.SubjectID == subjectID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockTaxonomyRepo) CreateSubject(_ context.Context, subject *model.Subject) error {
	if subject.SubjectID == "" {
		subject.SubjectID = "subj-" + subject.Code
	}
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockTaxonomyRepo) CreateTopic(_ context.Context, topic *model.Topic) error {
	if topic.TopicID == "" {
		topic.TopicID = "topic-" + topic.Code
	}
	m.topics[topic.TopicID] = topic
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	items []*model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if n.NotificationID == "" {
		n.NotificationID = fmt.Sprintf("ntf-%d", len(m.items)+1)
	}
	m.items = append(m.items, n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var out []model.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, *n)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	for _, n := range m.items {
		if n.NotificationID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) countType(typ string) int {
	count := 0
	for _, n := range m.items {
		if n.Type == typ {
			count++
		}
	}
	return count
}

// ════════════════════════════════════════════════════════════
// 测试环境
// ════════════════════════════════════════════════════════════

const testOwner = "user-owner"

// testNow 2026-03-02 为周一
var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	repo          *repository.Repository
	users         *mockUserRepo
	plans         *mockPlanRepo
	goals         *mockGoalRepo
	taxonomy      *mockTaxonomyRepo
	notifications *mockNotificationRepo
	engine        *redistributor
	locker        PlanLocker
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:         newMockUserRepo(),
		plans:         newMockPlanRepo(),
		goals:         newMockGoalRepo(),
		taxonomy:      newMockTaxonomyRepo(),
		notifications: newMockNotificationRepo(),
		locker:        NewLocalPlanLocker(),
	}
	env.repo = &repository.Repository{
		User:         env.users,
		StudyPlan:    env.plans,
		Goal:         env.goals,
		Taxonomy:     env.taxonomy,
		Notification: env.notifications,
	}
	logger := zap.NewNop()
	cfg := &config.SchedulerConfig{
		Timezone:              "UTC",
		LookaheadDays:         14,
		MaxPlacementAttempts:  365,
		ReviewOffsets:         []int{1, 7, 30},
		ReviewDurationMinutes: 30,
	}
	env.engine = newRedistributor(cfg, env.repo, env.locker, NewNotificationService(env.repo, logger), logger)
	env.engine.clock = func() time.Time { return testNow }
	return env
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// addPlan 每日 hours 小时、全周可学习、从 testNow 当天开始
func (e *testEnv) addPlan(hours float64) *model.StudyPlan {
	plan := &model.StudyPlan{
		UserID:        testOwner,
		Name:          "计划",
		DailyHours:    hours,
		AvailableDays: scheduling.AllDays,
		StartDate:     date("2026-03-02"),
		Status:        model.PlanStatusActive,
	}
	_ = e.plans.Create(context.Background(), plan)
	return plan
}

// addGoal 以编号 base 创建一个 PENDING STUDY 目标
func (e *testEnv) addGoal(plan *model.StudyPlan, base, minutes int, day string, order int) *model.Goal {
	g := &model.Goal{
		PlanID:                 plan.PlanID,
		Type:                   model.GoalTypeStudy,
		Title:                  fmt.Sprintf("目标 %d", base),
		DurationPlannedMinutes: minutes,
		ScheduledDate:          date(day),
		ScheduledOrder:         order,
		Status:                 model.GoalStatusPending,
	}
	setNumber(g, base, nil)
	_ = e.goals.Create(context.Background(), g)
	return g
}

func (e *testEnv) goal(id string) *model.Goal {
	g, err := e.goals.GetByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return g
}

// repositoryFilterAll 不分页
var repositoryFilterAll = repository.GoalFilter{}

// ── 并发提交模拟 ──

// racingGoalRepo 第一次 GetByID 返回读取时的快照，随后执行 after 改写存储，模拟读取与写入之间的并发提交
type racingGoalRepo struct {
	*mockGoalRepo
	after func(stored map[string]*model.Goal)
	fired bool
}

func (r *racingGoalRepo) GetByID(ctx context.Context, id string) (*model.Goal, error) {
	g, err := r.mockGoalRepo.GetByID(ctx, id)
	if err == nil && !r.fired {
		r.fired = true
		r.after(r.goals)
	}
	return g, err
}

// racingPlanRepo 同上，作用于计划
type racingPlanRepo struct {
	*mockPlanRepo
	after func(stored map[string]*model.StudyPlan)
	fired bool
}

func (r *racingPlanRepo) GetByID(ctx context.Context, id string) (*model.StudyPlan, error) {
	p, err := r.mockPlanRepo.GetByID(ctx, id)
	if err == nil && !r.fired {
		r.fired = true
		r.after(r.plans)
	}
	return p, err
}
