package model

// Subject 学科（disciplina），对应 subjects
type Subject struct {
	SubjectID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Code      string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"code"`
	Name      string `gorm:"type:varchar(200);not null"                     json:"name"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }

// Topic 知识点，对应 topics
// ParentTopicID 为空表示 assunto，非空表示其下的 tópico
type Topic struct {
	TopicID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"topic_id"`
	SubjectID     string  `gorm:"type:uuid;not null;index"                       json:"subject_id"`
	ParentTopicID *string `gorm:"type:uuid"                                      json:"parent_topic_id,omitempty"`
	Code          string  `gorm:"type:varchar(50);not null"                      json:"code"`
	Name          string  `gorm:"type:varchar(200);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Topic) TableName() string { return "topics" }
