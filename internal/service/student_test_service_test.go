package service

import (
	"testing"
	"time"

	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	record  *model.StudentTest
	creates int
	saves   int
}

func (s *fakeStore) FindByStudent(studentID uint) (*model.StudentTest, error) {
	return s.record, nil
}

func (s *fakeStore) Create(st *model.StudentTest) error {
	s.creates++
	s.record = st
	return nil
}

func (s *fakeStore) Save(st *model.StudentTest) error {
	s.saves++
	s.record = st
	return nil
}

type fakeCatalog struct {
	ids map[model.TestKind][]string
}

func (c *fakeCatalog) ListTestIDs(kind model.TestKind) ([]string, error) {
	return c.ids[kind], nil
}

func fullCatalog() *fakeCatalog {
	return &fakeCatalog{ids: map[model.TestKind][]string{
		model.KindListening: {"l1", "l2"},
		model.KindReading:   {"r1"},
		model.KindWriting:   {"w1"},
	}}
}

func newStudentSvc(store *fakeStore, catalog *fakeCatalog) *StudentTestService {
	svc := NewStudentTestService(store, catalog, NewGateCache(10*time.Second, &fakeClock{now: time.Unix(1000, 0)}))
	svc.clock = &fakeClock{now: time.Unix(2000, 0)}
	svc.pick = func(n int) int { return 0 } // deterministic in tests
	return svc
}

func TestAssignIfMissingCreatesRecord(t *testing.T) {
	store := &fakeStore{}
	svc := newStudentSvc(store, fullCatalog())

	record, err := svc.AssignIfMissing(7)
	require.NoError(t, err)

	assert.Equal(t, uint(7), record.StudentID)
	assert.Equal(t, model.StageListening, record.Status)
	assert.Equal(t, "l1", *record.ListeningTestID)
	assert.Equal(t, "r1", *record.ReadingTestID)
	assert.Equal(t, "w1", *record.WritingTestID)
	assert.True(t, record.FullyAssigned())
	assert.Equal(t, 1, store.creates)
}

func TestAssignIfMissingIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	svc := newStudentSvc(store, fullCatalog())

	first, err := svc.AssignIfMissing(7)
	require.NoError(t, err)

	// second call must not reshuffle, even with more tests available
	svc.pick = func(n int) int { return n - 1 }
	second, err := svc.AssignIfMissing(7)
	require.NoError(t, err)

	assert.Equal(t, *first.ListeningTestID, *second.ListeningTestID)
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 0, store.saves)
}

func TestAssignIfMissingFillsOnlyGaps(t *testing.T) {
	listening := "l-frozen"
	store := &fakeStore{record: &model.StudentTest{
		StudentID:       7,
		ListeningTestID: &listening,
		Status:          model.StageListening,
	}}
	svc := newStudentSvc(store, fullCatalog())

	record, err := svc.AssignIfMissing(7)
	require.NoError(t, err)

	assert.Equal(t, "l-frozen", *record.ListeningTestID)
	assert.Equal(t, "r1", *record.ReadingTestID)
	assert.Equal(t, "w1", *record.WritingTestID)
	assert.Equal(t, 1, store.saves)
}

func TestAssignIfMissingNoContent(t *testing.T) {
	catalog := fullCatalog()
	catalog.ids[model.KindReading] = nil
	svc := newStudentSvc(&fakeStore{}, catalog)

	_, err := svc.AssignIfMissing(7)
	assert.ErrorIs(t, err, util.ErrNoContentAvailable)
}

func TestMarkStageStartedKeepsFirstTimestamp(t *testing.T) {
	store := &fakeStore{record: &model.StudentTest{StudentID: 7, Status: model.StageListening}}
	svc := newStudentSvc(store, fullCatalog())

	record, err := svc.MarkStageStarted(7, model.KindListening)
	require.NoError(t, err)
	require.NotNil(t, record.ListeningStartedAt)
	first := *record.ListeningStartedAt

	svc.clock = &fakeClock{now: time.Unix(3000, 0)}
	record, err = svc.MarkStageStarted(7, model.KindListening)
	require.NoError(t, err)
	assert.Equal(t, first, *record.ListeningStartedAt)
}

func TestMarkStageFinishedAdvances(t *testing.T) {
	store := &fakeStore{record: &model.StudentTest{StudentID: 7, Status: model.StageListening}}
	svc := newStudentSvc(store, fullCatalog())

	record, err := svc.MarkStageFinished(7, model.KindListening)
	require.NoError(t, err)
	assert.Equal(t, model.StageReading, record.Status)
	assert.NotNil(t, record.ListeningFinishedAt)

	record, err = svc.MarkStageFinished(7, model.KindReading)
	require.NoError(t, err)
	assert.Equal(t, model.StageWriting, record.Status)

	record, err = svc.MarkStageFinished(7, model.KindWriting)
	require.NoError(t, err)
	assert.Equal(t, model.StageCompleted, record.Status)
}

func TestMarkStageFinishedNeverRegresses(t *testing.T) {
	store := &fakeStore{record: &model.StudentTest{StudentID: 7, Status: model.StageWriting}}
	svc := newStudentSvc(store, fullCatalog())

	// re-finishing an earlier stage refreshes its timestamp only
	record, err := svc.MarkStageFinished(7, model.KindListening)
	require.NoError(t, err)
	assert.Equal(t, model.StageWriting, record.Status)
}

func TestMarkStageFinishedRejectsSkippingAhead(t *testing.T) {
	store := &fakeStore{record: &model.StudentTest{StudentID: 7, Status: model.StageListening}}
	svc := newStudentSvc(store, fullCatalog())

	_, err := svc.MarkStageFinished(7, model.KindWriting)
	require.Error(t, err)
	assert.True(t, util.IsValidationError(err))
	assert.Equal(t, model.StageListening, store.record.Status)
	assert.Nil(t, store.record.WritingFinishedAt)
	assert.Equal(t, 0, store.saves)

	// reading stays locked too until listening is finished
	_, err = svc.MarkStageFinished(7, model.KindReading)
	assert.True(t, util.IsValidationError(err))
	assert.Equal(t, model.StageListening, store.record.Status)
}

func TestStageMutationsRequireRecord(t *testing.T) {
	svc := newStudentSvc(&fakeStore{}, fullCatalog())

	_, err := svc.MarkStageStarted(7, model.KindListening)
	assert.ErrorIs(t, err, util.ErrRecordNotFound)

	_, err = svc.MarkStageFinished(7, model.KindListening)
	assert.ErrorIs(t, err, util.ErrRecordNotFound)

	_, err = svc.SaveScores(7, StageScores{})
	assert.ErrorIs(t, err, util.ErrRecordNotFound)
}

func TestSaveScoresPartialAndTotal(t *testing.T) {
	five, six := 5.5, 6.0
	store := &fakeStore{record: &model.StudentTest{StudentID: 7, Status: model.StageReading}}
	svc := newStudentSvc(store, fullCatalog())

	record, err := svc.SaveScores(7, StageScores{Listening: &five})
	require.NoError(t, err)
	assert.Equal(t, 5.5, *record.TotalScore)
	assert.Nil(t, record.ReadingScore)

	record, err = svc.SaveScores(7, StageScores{Reading: &six})
	require.NoError(t, err)
	assert.Equal(t, 5.5, *record.ListeningScore)
	assert.Equal(t, 11.5, *record.TotalScore)
}

func TestStageMutationsInvalidateGateCache(t *testing.T) {
	store := &fakeStore{record: &model.StudentTest{StudentID: 7, Status: model.StageListening}}
	svc := newStudentSvc(store, fullCatalog())

	svc.Gate.SetRecord(7, store.record)
	_, err := svc.MarkStageFinished(7, model.KindListening)
	require.NoError(t, err)

	_, cached := svc.Gate.Record(7)
	assert.False(t, cached)
}
