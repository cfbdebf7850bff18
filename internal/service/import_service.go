package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dom-study/backend/config"
	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/repository"
	"dom-study/backend/internal/scheduling"
)

// ── 导入模块业务错误 ──

var (
	ErrImportBadFile     = errors.New("无法解析Excel文件")
	ErrImportNoData      = errors.New("导入文件中没有有效数据行")
	ErrImportTooManyRows = errors.New("导入行数超过上限")
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（tipo/disciplina/duracaoPlanejadaMin）")
	ErrImportPolicy      = errors.New("重复处理策略只能为 skip 或 reject")
)

const (
	DuplicatePolicySkip   = "skip"
	DuplicatePolicyReject = "reject"

	maxImportDurationMinutes = 1440
)

// ImportService 批量导入业务接口
type ImportService interface {
	ParseImportFile(reader io.Reader) ([]dto.ImportGoalRow, error)
	Import(ctx context.Context, planID string, rows []dto.ImportGoalRow, policy, callerID string) (*dto.ImportGoalsResponse, error)
}

type importService struct {
	cfg    *config.ImportConfig
	repo   *repository.Repository
	engine *redistributor
	logger *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(cfg *config.ImportConfig, repo *repository.Repository, engine *redistributor, logger *zap.Logger) ImportService {
	return &importService{cfg: cfg, repo: repo, engine: engine, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ParseImportFile 解析 .xlsx，支持葡语 / 英语表头与任意列序
// ════════════════════════════════════════════════════════════

func (s *importService) ParseImportFile(reader io.Reader) ([]dto.ImportGoalRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表失败: %v", ErrImportBadFile, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseImportHeader(excelRows[0])
	if colIndex[colType] < 0 || colIndex[colSubject] < 0 || colIndex[colDuration] < 0 {
		return nil, ErrImportBadHeader
	}

	value := func(row []string, col string) string {
		if idx := colIndex[col]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []dto.ImportGoalRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := dto.ImportGoalRow{
			Row:           i + 1,
			Type:          value(row, colType),
			SubjectCode:   value(row, colSubject),
			TopicCode:     value(row, colTopic),
			SubtopicCode:  value(row, colSubtopic),
			Duration:      value(row, colDuration),
			Guidance:      value(row, colGuidance),
			ScheduledDate: value(row, colDate),
			Fixed:         value(row, colFixed),
		}
		if item == (dto.ImportGoalRow{Row: item.Row}) {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if s.cfg.MaxRows > 0 && len(rows) > s.cfg.MaxRows {
		return nil, fmt.Errorf("%w: %d", ErrImportTooManyRows, s.cfg.MaxRows)
	}
	return rows, nil
}

const (
	colType     = "tipo"
	colSubject  = "disciplina"
	colTopic    = "assunto"
	colSubtopic = "topico"
	colDuration = "duracao"
	colGuidance = "orientacoes"
	colDate     = "data"
	colFixed    = "fixed"
)

// parseImportHeader 解析表头，返回列名 -> 列索引映射
func parseImportHeader(header []string) map[string]int {
	idx := map[string]int{
		colType: -1, colSubject: -1, colTopic: -1, colSubtopic: -1,
		colDuration: -1, colGuidance: -1, colDate: -1, colFixed: -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "tipo", "type":
			idx[colType] = i
		case "disciplina", "subject":
			idx[colSubject] = i
		case "assunto", "topic":
			idx[colTopic] = i
		case "topico", "tópico", "subtopic":
			idx[colSubtopic] = i
		case "duracaoplanejadamin", "duraçãoplanejadamin", "duration", "duration_minutes":
			idx[colDuration] = i
		case "orientacoes", "orientações", "guidance":
			idx[colGuidance] = i
		case "scheduleddate", "data", "date", "scheduled_date":
			idx[colDate] = i
		case "fixed", "fixo":
			idx[colFixed] = i
		}
	}
	return idx
}

// ════════════════════════════════════════════════════════════
// Import 第一阶段逐行校验，第二阶段单事务写入并重新分配
// ════════════════════════════════════════════════════════════

// validatedRow 通过校验、等待写入的行
type validatedRow struct {
	row  dto.ImportGoalRow
	goal model.Goal
}

func (s *importService) Import(ctx context.Context, planID string, rows []dto.ImportGoalRow, policy, callerID string) (*dto.ImportGoalsResponse, error) {
	if policy == "" {
		policy = s.cfg.DuplicatePolicy
	}
	if policy != DuplicatePolicySkip && policy != DuplicatePolicyReject {
		return nil, ErrImportPolicy
	}
	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if s.cfg.MaxRows > 0 && len(rows) > s.cfg.MaxRows {
		return nil, fmt.Errorf("%w: %d", ErrImportTooManyRows, s.cfg.MaxRows)
	}

	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusDone {
		return nil, ErrPlanStatusInvalid
	}

	resp := &dto.ImportGoalsResponse{Total: len(rows)}
	resolver := newTaxonomyResolver(s.repo)
	today := s.engine.today()
	seed := scheduling.MaxDate(today, plan.StartDate)
	seen := make(map[string]int)

	// 第一阶段：数据预校验（不接触数据库写操作）
	var valid []validatedRow
	for _, row := range rows {
		goal, warnings, issue, err := s.validateRow(ctx, plan, row, resolver, today, seed)
		if err != nil {
			s.logger.Error("导入校验失败", zap.Int("row", row.Row), zap.Error(err))
			return nil, err
		}
		if issue != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, *issue)
			continue
		}

		hash := *goal.RowHash
		duplicate := false
		if first, ok := seen[hash]; ok {
			duplicate = true
			warnings = append(warnings, dto.ImportRowIssue{Row: row.Row, Reason: fmt.Sprintf("与第 %d 行重复", first)})
		} else {
			exists, err := s.repo.Goal.ExistsRowHash(ctx, planID, hash)
			if err != nil {
				s.logger.Error("查询重复行失败", zap.Int("row", row.Row), zap.Error(err))
				return nil, err
			}
			if exists {
				duplicate = true
				warnings = append(warnings, dto.ImportRowIssue{Row: row.Row, Reason: "计划中已存在相同目标"})
			}
		}
		resp.Warnings = append(resp.Warnings, warnings...)

		if duplicate {
			if policy == DuplicatePolicyReject {
				resp.Failed++
				resp.Errors = append(resp.Errors, dto.ImportRowIssue{Row: row.Row, Reason: "重复行"})
			} else {
				resp.Skipped++
			}
			continue
		}
		seen[hash] = row.Row
		valid = append(valid, validatedRow{row: row, goal: *goal})
	}

	if len(valid) == 0 {
		return resp, nil
	}

	// 第二阶段：持有计划锁，在事务中分配编号并批量写入
	err = s.engine.withPlanLock(ctx, planID, func() error {
		goals := make([]model.Goal, len(valid))
		err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
			if _, err := txRepo.StudyPlan.GetByIDForUpdate(ctx, planID); err != nil {
				return err
			}
			maxBase, err := txRepo.Goal.MaxNumberBase(ctx, planID)
			if err != nil {
				return err
			}
			orders := newOrderAllocator(txRepo, planID)
			for i := range valid {
				g := valid[i].goal
				maxBase = scheduling.NextNumber(maxBase)
				setNumber(&g, maxBase, nil)
				order, err := orders.next(ctx, g.ScheduledDate)
				if err != nil {
					return err
				}
				g.ScheduledOrder = order
				g.CreatedBy = &callerID
				goals[i] = g
			}
			return txRepo.Goal.BatchCreate(ctx, goals)
		})
		if err != nil {
			s.logger.Error("导入写入失败，事务回滚", zap.String("plan_id", planID), zap.Error(err))
			return fmt.Errorf("导入写入数据库失败，已回滚全部导入: %w", err)
		}
		resp.Imported = len(goals)
		s.engine.notifier.ImportFinished(ctx, plan, resp.Imported, resp.Failed)

		res, err := s.engine.runIfActive(ctx, planID, "import")
		resp.Redistribution = toRedistributionResponse(planID, res)
		return err
	})
	if err != nil {
		return resp, err
	}

	s.logger.Info("批量导入完成",
		zap.String("plan_id", planID),
		zap.Int("total", resp.Total),
		zap.Int("imported", resp.Imported),
		zap.Int("skipped", resp.Skipped),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// validateRow 行级问题通过 issue 返回，err 仅表示基础设施错误
func (s *importService) validateRow(
	ctx context.Context,
	plan *model.StudyPlan,
	row dto.ImportGoalRow,
	resolver *taxonomyResolver,
	today, seed time.Time,
) (*model.Goal, []dto.ImportRowIssue, *dto.ImportRowIssue, error) {
	fail := func(field, reason string) (*model.Goal, []dto.ImportRowIssue, *dto.ImportRowIssue, error) {
		return nil, nil, &dto.ImportRowIssue{Row: row.Row, Field: field, Reason: reason}, nil
	}

	typ, ok := parseGoalType(row.Type)
	if !ok {
		return fail(colType, fmt.Sprintf("类型无效: %s", row.Type))
	}
	if row.SubjectCode == "" {
		return fail(colSubject, "必填字段为空")
	}
	if row.SubtopicCode != "" && row.TopicCode == "" {
		return fail(colTopic, "填写 topico 时必须填写 assunto")
	}

	duration, err := strconv.Atoi(strings.TrimSpace(row.Duration))
	if err != nil || duration <= 0 || duration > maxImportDurationMinutes {
		return fail(colDuration, fmt.Sprintf("时长无效: %s（应为 1-%d 分钟）", row.Duration, maxImportDurationMinutes))
	}

	fixed, ok := parseBoolCell(row.Fixed)
	if !ok {
		return fail(colFixed, fmt.Sprintf("fixed 取值无效: %s", row.Fixed))
	}

	var warnings []dto.ImportRowIssue
	date := seed
	dated := row.ScheduledDate != ""
	if dated {
		d, ok := parseImportDate(row.ScheduledDate)
		if !ok {
			return fail(colDate, fmt.Sprintf("日期格式无效: %s", row.ScheduledDate))
		}
		date = d
		if date.Before(today) {
			warnings = append(warnings, dto.ImportRowIssue{Row: row.Row, Field: colDate, Reason: "日期早于今天"})
		}
	} else if fixed || typ == model.GoalTypeReview {
		return fail(colDate, "固定目标和复习目标必须指定日期")
	}

	path, issue, err := resolver.resolve(ctx, row)
	if err != nil || issue != nil {
		return nil, nil, issue, err
	}

	hash := rowHash(plan.PlanID, typ, path, row.ScheduledDate != "", date)
	goal := &model.Goal{
		PlanID:                 plan.PlanID,
		Type:                   typ,
		SubjectID:              path.subjectID,
		TopicID:                path.topicID,
		SubtopicID:             path.subtopicID,
		Title:                  path.title(),
		Guidance:               row.Guidance,
		DurationPlannedMinutes: duration,
		ScheduledDate:          date,
		Status:                 model.GoalStatusPending,
		Fixed:                  fixed,
		RowHash:                &hash,
	}
	return goal, warnings, nil, nil
}

// rowHash 计划 + 类型 + 分类路径 + 日期的内容哈希，用于识别重复行
func rowHash(planID string, typ model.GoalType, path *taxonomyPath, dated bool, date time.Time) string {
	day := ""
	if dated {
		day = date.Format(dto.DateLayout)
	}
	parts := []string{planID, string(typ), deref(path.subjectID), deref(path.topicID), deref(path.subtopicID), day}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func parseGoalType(s string) (model.GoalType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STUDY", "ESTUDO":
		return model.GoalTypeStudy, true
	case "QUESTIONS", "QUESTOES", "QUESTÕES":
		return model.GoalTypeQuestions, true
	case "REVIEW", "REVISAO", "REVISÃO":
		return model.GoalTypeReview, true
	}
	return "", false
}

func parseBoolCell(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0", "nao", "não", "no", "n":
		return false, true
	case "true", "1", "sim", "yes", "s", "y", "x":
		return true, true
	}
	return false, false
}

func parseImportDate(s string) (time.Time, bool) {
	for _, layout := range []string{dto.DateLayout, "02/01/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return scheduling.DateOf(t), true
		}
	}
	return time.Time{}, false
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ── 分类编码解析（带缓存） ──

type taxonomyPath struct {
	subjectID, topicID, subtopicID *string
	names                          []string
}

func (p *taxonomyPath) title() string {
	return strings.Join(p.names, " / ")
}

type taxonomyResolver struct {
	repo     *repository.Repository
	subjects map[string]*model.Subject
	topics   map[string]*model.Topic
}

func newTaxonomyResolver(repo *repository.Repository) *taxonomyResolver {
	return &taxonomyResolver{
		repo:     repo,
		subjects: make(map[string]*model.Subject),
		topics:   make(map[string]*model.Topic),
	}
}

// resolve 编码不存在时返回行级 not found 错误，不会生成新的 id
func (r *taxonomyResolver) resolve(ctx context.Context, row dto.ImportGoalRow) (*taxonomyPath, *dto.ImportRowIssue, error) {
	notFound := func(field, code string) (*taxonomyPath, *dto.ImportRowIssue, error) {
		return nil, &dto.ImportRowIssue{Row: row.Row, Field: field, Reason: fmt.Sprintf("编码不存在: %s", code)}, nil
	}

	subject, ok := r.subjects[row.SubjectCode]
	if !ok {
		var err error
		subject, err = r.repo.Taxonomy.GetSubjectByCode(ctx, row.SubjectCode)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		if err != nil || !subject.IsActive {
			subject = nil
		}
		r.subjects[row.SubjectCode] = subject
	}
	if subject == nil {
		return notFound(colSubject, row.SubjectCode)
	}

	path := &taxonomyPath{subjectID: &subject.SubjectID, names: []string{subject.Name}}
	if row.TopicCode == "" {
		return path, nil, nil
	}

	topic, err := r.topic(ctx, subject.SubjectID, nil, row.TopicCode)
	if err != nil {
		return nil, nil, err
	}
	if topic == nil {
		return notFound(colTopic, row.TopicCode)
	}
	path.topicID = &topic.TopicID
	path.names = append(path.names, topic.Name)
	if row.SubtopicCode == "" {
		return path, nil, nil
	}

	sub, err := r.topic(ctx, subject.SubjectID, &topic.TopicID, row.SubtopicCode)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return notFound(colSubtopic, row.SubtopicCode)
	}
	path.subtopicID = &sub.TopicID
	path.names = append(path.names, sub.Name)
	return path, nil, nil
}

func (r *taxonomyResolver) topic(ctx context.Context, subjectID string, parentID *string, code string) (*model.Topic, error) {
	key := subjectID + "/" + deref(parentID) + "/" + code
	if t, ok := r.topics[key]; ok {
		return t, nil
	}
	t, err := r.repo.Taxonomy.GetTopicByCode(ctx, subjectID, parentID, code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		t = nil
	}
	r.topics[key] = t
	return t, nil
}
