package model

import "time"

// Stage is the student's position in the fixed exam sequence.
type Stage string

const (
	StageListening Stage = "listening"
	StageReading   Stage = "reading"
	StageWriting   Stage = "writing"
	StageCompleted Stage = "completed"
)

var stageRank = map[Stage]int{
	StageListening: 0,
	StageReading:   1,
	StageWriting:   2,
	StageCompleted: 3,
}

// Rank orders stages; unknown stages rank as listening so a corrupted
// status column never unlocks later stages.
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return stageRank[StageListening]
}

func (s Stage) Next() Stage {
	switch s {
	case StageListening:
		return StageReading
	case StageReading:
		return StageWriting
	case StageWriting:
		return StageCompleted
	default:
		return StageCompleted
	}
}

func StageForKind(k TestKind) Stage {
	switch k {
	case KindListening:
		return StageListening
	case KindReading:
		return StageReading
	default:
		return StageWriting
	}
}

// StudentTest is the one-per-student exam record: the frozen random test
// assignments, the current stage, and per-stage timestamps and scores.
// swagger:model StudentTest
type StudentTest struct {
	UUIDBase
	StudentID uint `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"studentId"`

	ListeningTestID *string `gorm:"type:varchar(36)" json:"listeningTestId"`
	ReadingTestID   *string `gorm:"type:varchar(36)" json:"readingTestId"`
	WritingTestID   *string `gorm:"type:varchar(36)" json:"writingTestId"`

	Status Stage `gorm:"size:20;default:'listening'" json:"status"`

	ListeningStartedAt  *time.Time `json:"listeningStartedAt"`
	ListeningFinishedAt *time.Time `json:"listeningFinishedAt"`
	ReadingStartedAt    *time.Time `json:"readingStartedAt"`
	ReadingFinishedAt   *time.Time `json:"readingFinishedAt"`
	WritingStartedAt    *time.Time `json:"writingStartedAt"`
	WritingFinishedAt   *time.Time `json:"writingFinishedAt"`

	ListeningScore *float64 `json:"listeningScore"`
	ReadingScore   *float64 `json:"readingScore"`
	WritingScore   *float64 `json:"writingScore"`
	TotalScore     *float64 `json:"totalScore"`
}

func (StudentTest) TableName() string {
	return "student_tests"
}

// AssignedTestID returns the frozen assignment for a kind, nil if unassigned.
func (st *StudentTest) AssignedTestID(k TestKind) *string {
	switch k {
	case KindListening:
		return st.ListeningTestID
	case KindReading:
		return st.ReadingTestID
	default:
		return st.WritingTestID
	}
}

// FullyAssigned reports whether all three kinds have a test id.
func (st *StudentTest) FullyAssigned() bool {
	return st.ListeningTestID != nil && *st.ListeningTestID != "" &&
		st.ReadingTestID != nil && *st.ReadingTestID != "" &&
		st.WritingTestID != nil && *st.WritingTestID != ""
}
