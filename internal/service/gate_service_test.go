package service

import (
	"errors"
	"testing"
	"time"

	"ielts_exam_backend/internal/config"
	"ielts_exam_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

type stubRoles struct {
	role model.UserRole
	err  error
}

func (s *stubRoles) RoleByUserID(userID uint) (model.UserRole, error) {
	return s.role, s.err
}

type stubRecords struct {
	record *model.StudentTest
	err    error
	calls  int
}

func (s *stubRecords) FindByStudent(studentID uint) (*model.StudentTest, error) {
	s.calls++
	return s.record, s.err
}

func strptr(s string) *string { return &s }

func assignedRecord(status model.Stage) *model.StudentTest {
	return &model.StudentTest{
		StudentID:       7,
		ListeningTestID: strptr("l1"),
		ReadingTestID:   strptr("r1"),
		WritingTestID:   strptr("w1"),
		Status:          status,
	}
}

func newGate(roles RoleSource, records RecordSource, allowBacktrack bool) *GateService {
	cfg := &config.Config{}
	cfg.Gate.AllowBacktrack = allowBacktrack
	cache := NewGateCache(10*time.Second, &fakeClock{now: time.Unix(1000, 0)})
	return NewGateService(roles, records, cache, cfg)
}

func TestGateAnonymous(t *testing.T) {
	g := newGate(&stubRoles{}, &stubRecords{}, true)

	d := g.Decide(Session{}, "/test/listening")
	assert.Equal(t, PathLogin, d.RedirectTo)

	d = g.Decide(Session{}, "/login")
	assert.True(t, d.Allow)

	d = g.Decide(Session{}, "/about")
	assert.True(t, d.Allow)

	d = g.Decide(Session{}, "/dashboard")
	assert.Equal(t, PathLogin, d.RedirectTo)
}

func TestGateTeacherRedirects(t *testing.T) {
	g := newGate(&stubRoles{role: model.Teacher}, &stubRecords{}, true)
	session := Session{UserID: 1, Authenticated: true}

	for _, path := range []string{"/test/listening", "/test/reading", "/", "/index", "/main", "/dashboard", "/login"} {
		d := g.Decide(session, path)
		assert.Equal(t, PathTeacherPanel, d.RedirectTo, "path %s", path)
	}

	d := g.Decide(session, "/teacher-panel")
	assert.True(t, d.Allow)
}

func TestGateStudentNoRecord(t *testing.T) {
	g := newGate(&stubRoles{role: model.Student}, &stubRecords{record: nil}, true)
	session := Session{UserID: 7, Authenticated: true}

	d := g.Decide(session, "/test/reading")
	assert.Equal(t, PathHome, d.RedirectTo)
}

func TestGateStudentPartialAssignment(t *testing.T) {
	record := assignedRecord(model.StageListening)
	record.WritingTestID = nil
	g := newGate(&stubRoles{role: model.Student}, &stubRecords{record: record}, true)

	d := g.Decide(Session{UserID: 7, Authenticated: true}, "/test/listening")
	assert.Equal(t, PathHome, d.RedirectTo)
}

func TestGateStudentStagePolicy(t *testing.T) {
	cases := []struct {
		status   model.Stage
		path     string
		allow    bool
		redirect string
	}{
		{model.StageListening, "/test/listening", true, ""},
		{model.StageListening, "/test/reading", false, PathHome},
		{model.StageReading, "/test/writing", false, PathHome},
		{model.StageReading, "/test/reading", true, ""},
		{model.StageWriting, "/test/listening", true, ""},
		{model.StageCompleted, "/test/writing", true, ""},
	}
	for _, tc := range cases {
		g := newGate(&stubRoles{role: model.Student}, &stubRecords{record: assignedRecord(tc.status)}, true)
		d := g.Decide(Session{UserID: 7, Authenticated: true}, tc.path)
		assert.Equal(t, tc.allow, d.Allow, "status=%s path=%s", tc.status, tc.path)
		assert.Equal(t, tc.redirect, d.RedirectTo, "status=%s path=%s", tc.status, tc.path)
	}
}

func TestGateStudentBacktrackDisabled(t *testing.T) {
	g := newGate(&stubRoles{role: model.Student}, &stubRecords{record: assignedRecord(model.StageWriting)}, false)
	session := Session{UserID: 7, Authenticated: true}

	d := g.Decide(session, "/test/listening")
	assert.Equal(t, PathHome, d.RedirectTo)

	d = g.Decide(session, "/test/writing")
	assert.True(t, d.Allow)
}

func TestGateStudentMiscPaths(t *testing.T) {
	g := newGate(&stubRoles{role: model.Student}, &stubRecords{record: assignedRecord(model.StageListening)}, true)
	session := Session{UserID: 7, Authenticated: true}

	d := g.Decide(session, "/login")
	assert.Equal(t, PathHome, d.RedirectTo)

	d = g.Decide(session, "/profile")
	assert.True(t, d.Allow)

	// unknown stage name under /test/ never unlocks anything
	d = g.Decide(session, "/test/speaking")
	assert.Equal(t, PathHome, d.RedirectTo)
}

func TestGateFailClosed(t *testing.T) {
	boom := errors.New("db down")

	g := newGate(&stubRoles{err: boom}, &stubRecords{}, true)
	d := g.Decide(Session{UserID: 7, Authenticated: true}, "/test/listening")
	assert.Equal(t, PathLogin, d.RedirectTo)

	g = newGate(&stubRoles{role: model.Student}, &stubRecords{err: boom}, true)
	d = g.Decide(Session{UserID: 7, Authenticated: true}, "/test/listening")
	assert.Equal(t, PathHome, d.RedirectTo)
}

func TestGateRecordLookupCached(t *testing.T) {
	records := &stubRecords{record: assignedRecord(model.StageListening)}
	g := newGate(&stubRoles{role: model.Student}, records, true)
	session := Session{UserID: 7, Authenticated: true}

	g.Decide(session, "/test/listening")
	g.Decide(session, "/test/listening")
	assert.Equal(t, 1, records.calls)

	g.InvalidateUser(7)
	g.Decide(session, "/test/listening")
	assert.Equal(t, 2, records.calls)
}
