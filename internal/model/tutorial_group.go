package model

// TutorialGroup 辅导组表，对应 tutorial_groups
//
// 每个科目可有多个辅导组，学生至多选择其中一个。Capacity 仅作展示。
type TutorialGroup struct {
	TutorialID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"tutorial_id"`
	SubjectID  string `gorm:"type:uuid;not null;index"                       json:"subject_id"`
	GroupLabel string `gorm:"type:varchar(20);not null"                      json:"group_label"`
	DayOfWeek  int    `gorm:"type:smallint;not null"                         json:"day_of_week"`
	StartTime  string `gorm:"type:varchar(5);not null"                       json:"start_time"`
	EndTime    string `gorm:"type:varchar(5);not null"                       json:"end_time"`
	Venue      string `gorm:"type:varchar(100)"                              json:"venue"`
	Instructor string `gorm:"type:varchar(100)"                              json:"instructor,omitempty"`
	Capacity   int    `gorm:"not null;default:0"                             json:"capacity"`
	SoftDeleteModel
}

// TableName 指定表名
func (TutorialGroup) TableName() string { return "tutorial_groups" }
