package model

// ClassSession 科目固定课次表，对应 class_sessions
//
// 选择科目即自动包含其全部课次；辅导组另见 TutorialGroup。
type ClassSession struct {
	SessionID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	SubjectID  string `gorm:"type:uuid;not null;index"                       json:"subject_id"`
	Kind       string `gorm:"type:varchar(20);not null"                      json:"kind"`        // lecture | lab | practical
	DayOfWeek  int    `gorm:"type:smallint;not null"                         json:"day_of_week"` // 0=周日 … 6=周六
	StartTime  string `gorm:"type:varchar(5);not null"                       json:"start_time"`  // HH:MM
	EndTime    string `gorm:"type:varchar(5);not null"                       json:"end_time"`
	Venue      string `gorm:"type:varchar(100)"                              json:"venue"`
	Instructor string `gorm:"type:varchar(100)"                              json:"instructor,omitempty"`
	Color      string `gorm:"type:varchar(7)"                                json:"color,omitempty"`
	SortOrder  int    `gorm:"not null;default:0"                             json:"sort_order"`
	SoftDeleteModel
}

// TableName 指定表名
func (ClassSession) TableName() string { return "class_sessions" }
