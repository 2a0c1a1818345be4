package service

import (
	"strings"

	"ielts_exam_backend/internal/config"
	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/pkg/logger"
	"ielts_exam_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// Navigation targets the gate redirects to. The frontend owns the actual
// routes; the gate only hands back paths.
const (
	PathHome         = "/"
	PathLogin        = "/login"
	PathTeacherPanel = "/teacher-panel"
	testPathPrefix   = "/test/"
)

// homeAliases are the paths the dashboard answers on.
var homeAliases = map[string]struct{}{
	"/":          {},
	"/index":     {},
	"/main":      {},
	"/dashboard": {},
}

// Session is what the gate knows about the caller. UserID is only
// meaningful when Authenticated is true.
type Session struct {
	UserID        uint
	Authenticated bool
}

// Decision is the gate's verdict for one navigation.
type Decision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

func allow() Decision             { return Decision{Allow: true} }
func redirect(to string) Decision { return Decision{RedirectTo: to} }

// RoleSource resolves a user's role; RecordSource resolves their exam
// attempt. Narrow on purpose so tests can stub them without a database.
type RoleSource interface {
	RoleByUserID(userID uint) (model.UserRole, error)
}

type RecordSource interface {
	FindByStudent(studentID uint) (*model.StudentTest, error)
}

// GateService decides every navigation. It never returns an error: any
// lookup failure resolves to a safe redirect instead.
type GateService struct {
	Roles   RoleSource
	Records RecordSource
	Cache   *GateCache
	Cfg     *config.Config
}

func NewGateService(roles RoleSource, records RecordSource, cache *GateCache, cfg *config.Config) *GateService {
	return &GateService{Roles: roles, Records: records, Cache: cache, Cfg: cfg}
}

// Decide applies the stage-gate policy to one navigation.
func (g *GateService) Decide(session Session, path string) Decision {
	d, roleLabel := g.decide(session, path)
	outcome := "allow"
	if !d.Allow {
		outcome = "redirect"
	}
	monitoring.GateDecisionCounter.WithLabelValues(roleLabel, outcome).Inc()
	return d
}

func (g *GateService) decide(session Session, path string) (Decision, string) {
	path = normalizePath(path)

	if !session.Authenticated {
		if requiresAuth(path) {
			return redirect(PathLogin), "anonymous"
		}
		return allow(), "anonymous"
	}

	role, err := g.role(session.UserID)
	if err != nil {
		// 角色查询失败时一律退回登录页
		logger.Log.Warn("gate role lookup failed",
			zap.Uint("user_id", session.UserID), zap.Error(err))
		return redirect(PathLogin), "unknown"
	}

	if role == model.Teacher {
		return g.decideTeacher(path), string(role)
	}
	return g.decideStudent(session.UserID, path), string(role)
}

func (g *GateService) decideTeacher(path string) Decision {
	if isTestPath(path) || isHomeAlias(path) || path == PathLogin {
		return redirect(PathTeacherPanel)
	}
	return allow()
}

func (g *GateService) decideStudent(userID uint, path string) Decision {
	if path == PathLogin {
		return redirect(PathHome)
	}
	if !isTestPath(path) {
		return allow()
	}

	stage, ok := stageForPath(path)
	if !ok {
		return redirect(PathHome)
	}

	record, err := g.record(userID)
	if err != nil {
		logger.Log.Warn("gate record lookup failed",
			zap.Uint("user_id", userID), zap.Error(err))
		return redirect(PathHome)
	}
	// the dashboard renders the unassigned state; the gate never assigns
	if record == nil || !record.FullyAssigned() {
		return redirect(PathHome)
	}

	current := record.Status.Rank()
	requested := stage.Rank()
	switch {
	case requested > current:
		return redirect(PathHome)
	case requested < current && !g.Cfg.Gate.AllowBacktrack:
		return redirect(PathHome)
	default:
		return allow()
	}
}

func (g *GateService) role(userID uint) (model.UserRole, error) {
	if role, ok := g.Cache.Role(userID); ok {
		return role, nil
	}
	role, err := g.Roles.RoleByUserID(userID)
	if err != nil {
		return "", err
	}
	g.Cache.SetRole(userID, role)
	return role, nil
}

func (g *GateService) record(userID uint) (*model.StudentTest, error) {
	if record, ok := g.Cache.Record(userID); ok {
		return record, nil
	}
	record, err := g.Records.FindByStudent(userID)
	if err != nil {
		return nil, err
	}
	g.Cache.SetRecord(userID, record)
	return record, nil
}

// InvalidateUser is called after any progress mutation so the next
// navigation reads fresh state.
func (g *GateService) InvalidateUser(userID uint) {
	g.Cache.Invalidate(userID)
}

func normalizePath(path string) string {
	if path == "" {
		return PathHome
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func isHomeAlias(path string) bool {
	_, ok := homeAliases[path]
	return ok
}

func isTestPath(path string) bool {
	return strings.HasPrefix(path, testPathPrefix)
}

// stageForPath maps /test/<kind> onto its stage; unknown kinds report !ok.
func stageForPath(path string) (model.Stage, bool) {
	name := strings.TrimPrefix(path, testPathPrefix)
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	kind, err := model.ParseTestKind(name)
	if err != nil {
		return "", false
	}
	return model.StageForKind(kind), true
}

func requiresAuth(path string) bool {
	return isTestPath(path) || isHomeAlias(path) ||
		path == PathTeacherPanel || strings.HasPrefix(path, "/profile")
}
