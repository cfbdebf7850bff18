package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/repository"
	"dom-study/backend/internal/scheduling"
)

var ErrNotificationNotFound = errors.New("通知不存在")

// Notifier 排期变化后的通知回调，失败只记录日志，不影响排期结果
type Notifier interface {
	ScheduleChanged(ctx context.Context, plan *model.StudyPlan, report scheduling.Report, reason string)
	ReviewsCreated(ctx context.Context, plan *model.StudyPlan, parent *model.Goal, count int)
	ImportFinished(ctx context.Context, plan *model.StudyPlan, imported, failed int)
}

// NotificationService 站内通知业务接口
type NotificationService interface {
	Notifier
	List(ctx context.Context, req *dto.NotificationListRequest, callerID string) ([]dto.NotificationResponse, int64, error)
	MarkRead(ctx context.Context, id, callerID string) error
	MarkAllRead(ctx context.Context, callerID string) (int64, error)
	UnreadCount(ctx context.Context, callerID string) (*dto.UnreadCountResponse, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

// ── Notifier ──

func (s *notificationService) ScheduleChanged(ctx context.Context, plan *model.StudyPlan, report scheduling.Report, reason string) {
	content := fmt.Sprintf("共调整 %d 个目标，涉及 %d 天", report.GoalsUpdated, report.DaysTouched)
	if report.FirstDate != nil && report.LastDate != nil {
		content += fmt.Sprintf("（%s 至 %s）", report.FirstDate.Format(dto.DateLayout), report.LastDate.Format(dto.DateLayout))
	}
	if report.BeyondEndDate > 0 {
		content += fmt.Sprintf("，其中 %d 个目标超出计划结束日期", report.BeyondEndDate)
	}
	s.create(ctx, plan.UserID, model.NotificationTypeScheduleChanged,
		fmt.Sprintf("「%s」已重新排期", plan.Name), content, "plan", plan.PlanID)
	s.logger.Debug("已记录排期通知", zap.String("plan_id", plan.PlanID), zap.String("reason", reason))
}

func (s *notificationService) ReviewsCreated(ctx context.Context, plan *model.StudyPlan, parent *model.Goal, count int) {
	s.create(ctx, plan.UserID, model.NotificationTypeReviewsCreated,
		fmt.Sprintf("目标 %s 已生成复习", parent.DisplayNumber),
		fmt.Sprintf("已根据复习周期生成 %d 个复习目标", count), "goal", parent.GoalID)
}

func (s *notificationService) ImportFinished(ctx context.Context, plan *model.StudyPlan, imported, failed int) {
	s.create(ctx, plan.UserID, model.NotificationTypeImportFinished,
		fmt.Sprintf("「%s」导入完成", plan.Name),
		fmt.Sprintf("成功导入 %d 行，失败 %d 行", imported, failed), "plan", plan.PlanID)
}

func (s *notificationService) create(ctx context.Context, userID, typ, title, content, relatedType, relatedID string) {
	n := &model.Notification{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Content:     content,
		RelatedType: &relatedType,
		RelatedID:   &relatedID,
	}
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Warn("写入通知失败", zap.String("user_id", userID), zap.String("type", typ), zap.Error(err))
	}
}

// ── 查询 ──

func (s *notificationService) List(ctx context.Context, req *dto.NotificationListRequest, callerID string) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, callerID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, 0, err
	}
	items := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		n := &list[i]
		items = append(items, dto.NotificationResponse{
			ID:          n.NotificationID,
			Type:        n.Type,
			Title:       n.Title,
			Content:     n.Content,
			IsRead:      n.IsRead,
			RelatedType: n.RelatedType,
			RelatedID:   n.RelatedID,
			CreatedAt:   n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return items, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, callerID string) error {
	if err := s.repo.Notification.MarkRead(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, callerID string) (int64, error) {
	n, err := s.repo.Notification.MarkAllRead(ctx, callerID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", callerID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, callerID string) (*dto.UnreadCountResponse, error) {
	n, err := s.repo.Notification.CountUnread(ctx, callerID)
	if err != nil {
		s.logger.Error("查询未读数量失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, err
	}
	return &dto.UnreadCountResponse{Unread: n}, nil
}
