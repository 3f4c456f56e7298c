package service

import (
	"context"
	"errors"

	"Follow_Community/internal/model"
	"Follow_Community/internal/pkg"
	"Follow_Community/internal/repository/mysql"
	"Follow_Community/internal/repository/redis"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrDuplicateUser   = errors.New("username or email already taken")
	ErrBadDigestFreq   = errors.New("digest frequency must be daily or weekly")
)

type UserService struct {
	repo  *mysql.UserRepository
	rUser *redis.UserRepository
}

func NewUserService(repo *mysql.UserRepository, rUser *redis.UserRepository) *UserService {
	return &UserService{repo: repo, rUser: rUser}
}

func (s *UserService) Register(ctx context.Context, username, password, email string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &model.User{
		Username:      username,
		Password:      string(hash),
		Email:         email,
		DigestEnabled: true,
		DigestFreq:    model.DigestFreqWeekly,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if mysql.IsDuplicate(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.TokenPair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}
	// 将token写入redis
	token, err := pkg.GeneratePair(user.ID)
	if err != nil {
		return nil, err
	}
	if err = s.rUser.AddUserToken(user.ID, token.AccessToken); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *UserService) Logout(usrID uint64) error {
	return s.rUser.DeleteUserToken(usrID)
}

func (s *UserService) Refresh(refreshToken string) (*pkg.TokenPair, error) {
	return pkg.Refresh(refreshToken)
}

// ChangePassword 登录态修改密码，成功后踢掉旧会话
func (s *UserService) ChangePassword(ctx context.Context, usrID uint64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, usrID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return errors.New("old password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, usrID, string(hash)); err != nil {
		return err
	}
	return s.Logout(usrID)
}

func (s *UserService) Get(ctx context.Context, usrID uint64) (*model.User, error) {
	return s.repo.FindByID(ctx, usrID)
}

// UpdateNotifySettings 邮件通知与摘要偏好
func (s *UserService) UpdateNotifySettings(ctx context.Context, usrID uint64, notifyNewPost, digestEnabled bool, digestFreq string) error {
	if digestFreq != model.DigestFreqDaily && digestFreq != model.DigestFreqWeekly {
		return ErrBadDigestFreq
	}
	return s.repo.UpdateNotifySettings(ctx, usrID, notifyNewPost, digestEnabled, digestFreq)
}
