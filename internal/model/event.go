package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth     = "auth"
	EventCategoryUser     = "user"
	EventCategoryProject  = "project"
	EventCategorySecurity = "security"
	EventCategorySystem   = "system"
	EventCategoryImport   = "import"
)
