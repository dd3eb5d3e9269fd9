package model

// Subject 科目表，对应 subjects
type Subject struct {
	SubjectID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"`
	Name        string `gorm:"type:varchar(200);not null"                     json:"name"`
	Description string `gorm:"type:text"                                      json:"description,omitempty"`
	CreditHours int    `gorm:"type:smallint;not null;default:0"               json:"credit_hours"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Sessions  []ClassSession  `gorm:"foreignKey:SubjectID;references:SubjectID" json:"sessions,omitempty"`
	Tutorials []TutorialGroup `gorm:"foreignKey:SubjectID;references:SubjectID" json:"tutorials,omitempty"`
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }
