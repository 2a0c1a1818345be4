package model

// Question belongs to a section; its type decides which child rows exist.
// swagger:model Question
type Question struct {
	UUIDBase
	SectionID    string       `gorm:"index;type:varchar(36);not null" json:"sectionId"`
	OrderNumber  int          `gorm:"default:0" json:"orderNumber"`
	QuestionText string       `gorm:"type:text" json:"questionText"`
	QuestionType QuestionType `gorm:"size:50;default:'note_completion'" json:"questionType"`
}

// Answer is one blank of a note_completion question, 1-based.
type Answer struct {
	UUIDBase
	QuestionID    string `gorm:"index;type:varchar(36);not null" json:"questionId"`
	BlankNumber   int    `gorm:"default:0" json:"blankNumber"`
	CorrectAnswer string `gorm:"type:text" json:"correctAnswer"`
}

// Option is one multiple_choice option; labels are derived (A, B, C…),
// never user supplied. At most one option per question is correct.
type Option struct {
	UUIDBase
	QuestionID  string `gorm:"index;type:varchar(36);not null" json:"questionId"`
	OptionLabel string `gorm:"size:8" json:"optionLabel"`
	OptionText  string `gorm:"type:text" json:"optionText"`
	IsCorrect   bool   `gorm:"default:false" json:"isCorrect"`
}

// MatchingOption is part of a section-level option pool, anchored to the
// section's first question.
type MatchingOption struct {
	UUIDBase
	QuestionID  string `gorm:"index;type:varchar(36);not null" json:"questionId"`
	OptionLabel string `gorm:"size:8" json:"optionLabel"`
	OptionText  string `gorm:"type:text" json:"optionText"`
}

// MatchingItem pairs an item against the section's option pool; the
// reference is resolved to a persisted option id at write time.
type MatchingItem struct {
	UUIDBase
	QuestionID      string  `gorm:"index;type:varchar(36);not null" json:"questionId"`
	ItemText        string  `gorm:"type:text" json:"itemText"`
	CorrectOptionID *string `gorm:"type:varchar(36)" json:"correctOptionId"`
}
