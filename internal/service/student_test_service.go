package service

import (
	"math/rand"

	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/util"
	"ielts_exam_backend/pkg/logger"

	"go.uber.org/zap"
)

// studentTestStore and testCatalog are the two seams the exam-progress
// logic needs; the repositories satisfy them directly.
type studentTestStore interface {
	FindByStudent(studentID uint) (*model.StudentTest, error)
	Create(st *model.StudentTest) error
	Save(st *model.StudentTest) error
}

type testCatalog interface {
	ListTestIDs(kind model.TestKind) ([]string, error)
}

// StudentTestService owns the one-per-student exam record: random test
// assignment, stage progression and scoring.
type StudentTestService struct {
	Records studentTestStore
	Tests   testCatalog
	Gate    *GateCache
	clock   Clock
	pick    func(n int) int
}

func NewStudentTestService(records studentTestStore, tests testCatalog, gate *GateCache) *StudentTestService {
	return &StudentTestService{
		Records: records,
		Tests:   tests,
		Gate:    gate,
		clock:   SystemClock,
		pick:    rand.Intn,
	}
}

// AssignIfMissing returns the student's record, creating it and filling
// any unassigned kind with a random pick. Existing assignments are frozen;
// calling this twice never reshuffles.
func (s *StudentTestService) AssignIfMissing(studentID uint) (*model.StudentTest, error) {
	record, err := s.Records.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}

	fresh := record == nil
	if fresh {
		record = &model.StudentTest{
			StudentID: studentID,
			Status:    model.StageListening,
		}
	}

	changed := false
	for _, kind := range model.AllTestKinds() {
		if id := record.AssignedTestID(kind); id != nil && *id != "" {
			continue
		}
		ids, err := s.Tests.ListTestIDs(kind)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, util.ErrNoContentAvailable
		}
		picked := ids[s.pick(len(ids))]
		setAssignment(record, kind, picked)
		changed = true
		logger.Log.Info("assigned test",
			zap.Uint("student_id", studentID),
			zap.String("kind", string(kind)),
			zap.String("test_id", picked))
	}

	if fresh {
		if err := s.Records.Create(record); err != nil {
			return nil, err
		}
	} else if changed {
		if err := s.Records.Save(record); err != nil {
			return nil, err
		}
	}
	if changed {
		s.Gate.Invalidate(studentID)
	}
	return record, nil
}

func setAssignment(st *model.StudentTest, kind model.TestKind, id string) {
	switch kind {
	case model.KindListening:
		st.ListeningTestID = &id
	case model.KindReading:
		st.ReadingTestID = &id
	case model.KindWriting:
		st.WritingTestID = &id
	}
}

func (s *StudentTestService) mustRecord(studentID uint) (*model.StudentTest, error) {
	record, err := s.Records.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, util.ErrRecordNotFound
	}
	return record, nil
}

// MarkStageStarted stamps the stage's start time once; repeats keep the
// first timestamp.
func (s *StudentTestService) MarkStageStarted(studentID uint, kind model.TestKind) (*model.StudentTest, error) {
	record, err := s.mustRecord(studentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	switch kind {
	case model.KindListening:
		if record.ListeningStartedAt == nil {
			record.ListeningStartedAt = &now
		}
	case model.KindReading:
		if record.ReadingStartedAt == nil {
			record.ReadingStartedAt = &now
		}
	case model.KindWriting:
		if record.WritingStartedAt == nil {
			record.WritingStartedAt = &now
		}
	default:
		return nil, util.ValidationError("unknown test kind %q", kind)
	}

	if err := s.Records.Save(record); err != nil {
		return nil, err
	}
	s.Gate.Invalidate(studentID)
	return record, nil
}

// MarkStageFinished stamps the finish time and advances the stage.
// Stages unlock strictly in order: only finishing the current stage
// advances, finishing an unreached one is rejected, and re-finishing a
// passed one just refreshes its timestamp.
func (s *StudentTestService) MarkStageFinished(studentID uint, kind model.TestKind) (*model.StudentTest, error) {
	record, err := s.mustRecord(studentID)
	if err != nil {
		return nil, err
	}

	stage := model.StageForKind(kind)
	if stage.Rank() > record.Status.Rank() {
		return nil, util.ValidationError("stage %q is not reached yet", kind)
	}

	now := s.clock.Now()
	switch kind {
	case model.KindListening:
		record.ListeningFinishedAt = &now
	case model.KindReading:
		record.ReadingFinishedAt = &now
	case model.KindWriting:
		record.WritingFinishedAt = &now
	default:
		return nil, util.ValidationError("unknown test kind %q", kind)
	}

	if stage == record.Status {
		record.Status = stage.Next()
	}

	if err := s.Records.Save(record); err != nil {
		return nil, err
	}
	s.Gate.Invalidate(studentID)
	return record, nil
}

// StageScores carries partial score updates; nil fields stay untouched.
type StageScores struct {
	Listening *float64 `json:"listeningScore"`
	Reading   *float64 `json:"readingScore"`
	Writing   *float64 `json:"writingScore"`
}

// SaveScores applies the given stage scores and recomputes the total as
// the sum of every stage score present.
func (s *StudentTestService) SaveScores(studentID uint, scores StageScores) (*model.StudentTest, error) {
	record, err := s.mustRecord(studentID)
	if err != nil {
		return nil, err
	}

	if scores.Listening != nil {
		record.ListeningScore = scores.Listening
	}
	if scores.Reading != nil {
		record.ReadingScore = scores.Reading
	}
	if scores.Writing != nil {
		record.WritingScore = scores.Writing
	}

	total := 0.0
	counted := false
	for _, v := range []*float64{record.ListeningScore, record.ReadingScore, record.WritingScore} {
		if v != nil {
			total += *v
			counted = true
		}
	}
	if counted {
		record.TotalScore = &total
	}

	if err := s.Records.Save(record); err != nil {
		return nil, err
	}
	s.Gate.Invalidate(studentID)
	return record, nil
}
