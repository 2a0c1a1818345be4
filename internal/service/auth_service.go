package service

import (
	"ielts_exam_backend/internal/config"
	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/repository"
	"ielts_exam_backend/internal/util"
	"ielts_exam_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	Users *repository.UserRepository
	Cfg   *config.Config
}

func NewAuthService(users *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{Users: users, Cfg: cfg}
}

// Login checks credentials and issues a token. Wrong email and wrong
// password produce the same error.
func (s *AuthService) Login(email, password string) (string, *model.User, error) {
	user, err := s.Users.FindByEmail(email)
	if err != nil {
		return "", nil, util.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrUserNotFound
	}
	if user.Disabled {
		return "", nil, util.ErrPermissionDenied
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	if err := s.Users.UpdateLastLogin(user.ID); err != nil {
		logger.Log.Warn("last login update failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return token, user, nil
}

func (s *AuthService) GetCurrentUser(userID uint) (*model.User, error) {
	return s.Users.FindByID(userID)
}

// Touch records activity; failures are not worth surfacing.
func (s *AuthService) Touch(userID uint) {
	if err := s.Users.UpdateLastSeen(userID); err != nil {
		logger.Log.Warn("last seen update failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}
