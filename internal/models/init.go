package models

import (
	"strings"

	"github.com/signaldesk-ledger/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// InitDefaultAdmin 空库时创建超级管理员；已有管理员时只确保该账号保持超级权限
func InitDefaultAdmin(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultAdminUsername
	}

	var count int64
	if err := DB.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		err := DB.Model(&Admin{}).Where("username = ?", username).Update("is_super", true).Error
		if err != nil {
			logger.Warnw("ensure_default_admin_super_failed", "username", username, "error", err)
		}
		return nil
	}

	usingDefault := password == ""
	if usingDefault {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := DB.Create(&Admin{
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		IsSuper:      true,
	}).Error; err != nil {
		return err
	}

	if usingDefault {
		logger.Warnw("default_admin_created_with_default_password", "username", username, "action", "change_password_now")
		return nil
	}
	logger.Infow("default_admin_created", "username", username)
	return nil
}
