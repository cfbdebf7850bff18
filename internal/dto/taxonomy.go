package dto

// ── 学科字典 DTO ──

// CreateSubjectRequest 创建学科
type CreateSubjectRequest struct {
	Code string `json:"code" binding:"required,max=50"`
	Name string `json:"name" binding:"required,max=200"`
}

// CreateTopicRequest 创建知识点；ParentTopicID 为空表示 assunto
type CreateTopicRequest struct {
	SubjectID     string  `json:"subject_id"      binding:"required,uuid"`
	ParentTopicID *string `json:"parent_topic_id" binding:"omitempty,uuid"`
	Code          string  `json:"code"            binding:"required,max=50"`
	Name          string  `json:"name"            binding:"required,max=200"`
}

// SubjectResponse 学科
type SubjectResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// TopicResponse 知识点
type TopicResponse struct {
	ID            string  `json:"id"`
	SubjectID     string  `json:"subject_id"`
	ParentTopicID *string `json:"parent_topic_id,omitempty"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
}
