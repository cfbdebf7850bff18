package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/repository"
)

var (
	ErrSubjectNotFound    = errors.New("学科不存在")
	ErrTopicNotFound      = errors.New("上级知识点不存在")
	ErrTaxonomyCodeExists = errors.New("分类编码已存在")
)

// TaxonomyService 学科 / 知识点字典业务接口
type TaxonomyService interface {
	ListSubjects(ctx context.Context, activeOnly bool) ([]dto.SubjectResponse, error)
	CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error)
	ListTopics(ctx context.Context, subjectID string) ([]dto.TopicResponse, error)
	CreateTopic(ctx context.Context, req *dto.CreateTopicRequest) (*dto.TopicResponse, error)
}

type taxonomyService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTaxonomyService 创建 TaxonomyService 实例
func NewTaxonomyService(repo *repository.Repository, logger *zap.Logger) TaxonomyService {
	return &taxonomyService{repo: repo, logger: logger}
}

func (s *taxonomyService) ListSubjects(ctx context.Context, activeOnly bool) ([]dto.SubjectResponse, error) {
	list, err := s.repo.Taxonomy.ListSubjects(ctx, activeOnly)
	if err != nil {
		s.logger.Error("查询学科列表失败", zap.Error(err))
		return nil, err
	}
	items := make([]dto.SubjectResponse, 0, len(list))
	for i := range list {
		items = append(items, toSubjectResponse(&list[i]))
	}
	return items, nil
}

func (s *taxonomyService) CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error) {
	code := strings.TrimSpace(req.Code)
	if _, err := s.repo.Taxonomy.GetSubjectByCode(ctx, code); err == nil {
		return nil, ErrTaxonomyCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学科失败", zap.Error(err))
		return nil, err
	}

	subject := &model.Subject{Code: code, Name: strings.TrimSpace(req.Name), IsActive: true}
	if err := s.repo.Taxonomy.CreateSubject(ctx, subject); err != nil {
		s.logger.Error("创建学科失败", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	resp := toSubjectResponse(subject)
	return &resp, nil
}

func (s *taxonomyService) ListTopics(ctx context.Context, subjectID string) ([]dto.TopicResponse, error) {
	if err := s.ensureSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	list, err := s.repo.Taxonomy.ListTopics(ctx, subjectID)
	if err != nil {
		s.logger.Error("查询知识点列表失败", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, err
	}
	items := make([]dto.TopicResponse, 0, len(list))
	for i := range list {
		items = append(items, toTopicResponse(&list[i]))
	}
	return items, nil
}

func (s *taxonomyService) CreateTopic(ctx context.Context, req *dto.CreateTopicRequest) (*dto.TopicResponse, error) {
	if err := s.ensureSubject(ctx, req.SubjectID); err != nil {
		return nil, err
	}

	// 上级知识点必须属于同一学科，且本身是 assunto
	if req.ParentTopicID != nil {
		topics, err := s.repo.Taxonomy.ListTopics(ctx, req.SubjectID)
		if err != nil {
			s.logger.Error("查询知识点列表失败", zap.Error(err))
			return nil, err
		}
		found := false
		for _, t := range topics {
			if t.TopicID == *req.ParentTopicID && t.ParentTopicID == nil {
				found = true
				break
			}
		}
		if !found {
			return nil, ErrTopicNotFound
		}
	}

	code := strings.TrimSpace(req.Code)
	if _, err := s.repo.Taxonomy.GetTopicByCode(ctx, req.SubjectID, req.ParentTopicID, code); err == nil {
		return nil, ErrTaxonomyCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询知识点失败", zap.Error(err))
		return nil, err
	}

	topic := &model.Topic{
		SubjectID:     req.SubjectID,
		ParentTopicID: req.ParentTopicID,
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
	}
	if err := s.repo.Taxonomy.CreateTopic(ctx, topic); err != nil {
		s.logger.Error("创建知识点失败", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	resp := toTopicResponse(topic)
	return &resp, nil
}

func (s *taxonomyService) ensureSubject(ctx context.Context, subjectID string) error {
	if _, err := s.repo.Taxonomy.GetSubjectByID(ctx, subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		s.logger.Error("查询学科失败", zap.String("subject_id", subjectID), zap.Error(err))
		return err
	}
	return nil
}

func toSubjectResponse(s *model.Subject) dto.SubjectResponse {
	return dto.SubjectResponse{ID: s.SubjectID, Code: s.Code, Name: s.Name, IsActive: s.IsActive}
}

func toTopicResponse(t *model.Topic) dto.TopicResponse {
	return dto.TopicResponse{
		ID:            t.TopicID,
		SubjectID:     t.SubjectID,
		ParentTopicID: t.ParentTopicID,
		Code:          t.Code,
		Name:          t.Name,
	}
}
