package repository

import (
	"context"

	"gorm.io/gorm"

	"dom-study/backend/internal/model"
)

// TaxonomyRepository 学科 / 知识点只读字典（导入时用于编码解析）
type TaxonomyRepository interface {
	ListSubjects(ctx context.Context, activeOnly bool) ([]model.Subject, error)
	GetSubjectByID(ctx context.Context, id string) (*model.Subject, error)
	GetSubjectByCode(ctx context.Context, code string) (*model.Subject, error)
	// GetTopicByCode parentTopicID 为 nil 时查找 assunto，否则查找其下的 tópico
	GetTopicByCode(ctx context.Context, subjectID string, parentTopicID *string, code string) (*model.Topic, error)
	ListTopics(ctx context.Context, subjectID string) ([]model.Topic, error)
	CreateSubject(ctx context.Context, subject *model.Subject) error
	CreateTopic(ctx context.Context, topic *model.Topic) error
}

type taxonomyRepo struct {
	db *gorm.DB
}

func NewTaxonomyRepo(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepo{db: db}
}

func (r *taxonomyRepo) ListSubjects(ctx context.Context, activeOnly bool) ([]model.Subject, error) {
	var subjects []model.Subject
	db := r.db.WithContext(ctx)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("code ASC").Find(&subjects).Error
	return subjects, err
}

func (r *taxonomyRepo) GetSubjectByID(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", id).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *taxonomyRepo) GetSubjectByCode(ctx context.Context, code string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *taxonomyRepo) GetTopicByCode(ctx context.Context, subjectID string, parentTopicID *string, code string) (*model.Topic, error) {
	var topic model.Topic
	db := r.db.WithContext(ctx).Where("subject_id = ? AND code = ?", subjectID, code)
	if parentTopicID == nil {
		db = db.Where("parent_topic_id IS NULL")
	} else {
		db = db.Where("parent_topic_id = ?", *parentTopicID)
	}
	if err := db.First(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *taxonomyRepo) ListTopics(ctx context.Context, subjectID string) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("code ASC").
		Find(&topics).Error
	return topics, err
}

func (r *taxonomyRepo) CreateSubject(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *taxonomyRepo) CreateTopic(ctx context.Context, topic *model.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}
