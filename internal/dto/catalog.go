package dto

// ImportCatalogResponse 科目目录导入结果
type ImportCatalogResponse struct {
	TotalRows int `json:"total_rows"`
	// Failed 校验失败的行数；任一行失败的科目整体跳过
	Failed          int              `json:"failed"`
	SubjectsCreated int              `json:"subjects_created"`
	SubjectsUpdated int              `json:"subjects_updated"`
	Sessions        int              `json:"sessions"`
	Tutorials       int              `json:"tutorials"`
	Errors          []ImportRowError `json:"errors,omitempty"`
	DryRun          bool             `json:"dry_run"`
}

// ImportRowError 导入错误详情
type ImportRowError struct {
	Row    int    `json:"row"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}
