package model

type QuestionType string

const (
	NoteCompletion     QuestionType = "note_completion"
	MultipleChoice     QuestionType = "multiple_choice"
	Matching           QuestionType = "matching"
	SentenceCompletion QuestionType = "sentence_completion"
	ShortAnswer        QuestionType = "short_answer"
	DiagramLabeling    QuestionType = "diagram_labeling"
)

// Test is the row shape shared by listening_tests, reading_tests and
// writing_tests. Kind-specific columns stay nil for the other kinds.
// swagger:model Test
type Test struct {
	UUIDBase
	Title       string `gorm:"size:255;not null" json:"title"`
	Duration    int    `gorm:"default:0" json:"duration"` // minutes
	Description string `gorm:"type:text" json:"description"`

	// listening only
	AudioURL *string `gorm:"size:512" json:"audioUrl,omitempty"`

	// writing only
	Task1Title    *string `gorm:"size:255" json:"task1Title,omitempty"`
	Task1Question *string `gorm:"type:text" json:"task1Question,omitempty"`
	Task2Title    *string `gorm:"size:255" json:"task2Title,omitempty"`
	Task2Question *string `gorm:"type:text" json:"task2Question,omitempty"`
}

// Section groups questions inside a part of a listening/reading test.
// swagger:model Section
type Section struct {
	UUIDBase
	TestID          string       `gorm:"index;type:varchar(36);not null" json:"testId"`
	PartNumber      int          `gorm:"default:1" json:"partNumber"`
	PartDescription string       `gorm:"size:255" json:"partDescription"`
	SectionNumber   int          `gorm:"default:0" json:"sectionNumber"`
	OrderNumber     int          `gorm:"default:0" json:"orderNumber"`
	Title           string       `gorm:"size:255" json:"title"`
	Content         string       `gorm:"type:text" json:"content"`
	ImageURL        *string      `gorm:"size:512" json:"imageUrl,omitempty"`
	QuestionType    QuestionType `gorm:"size:50;default:'note_completion'" json:"questionType"`
	QuestionCount   int          `gorm:"default:0" json:"questionCount"`
}
