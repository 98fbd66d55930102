package usecase

import "github.com/semmidev/dbwarden/internal/domain"

type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// UploadTarget is a named off-site copy destination.
type UploadTarget struct {
	Name    string
	Storage domain.Storage
}
