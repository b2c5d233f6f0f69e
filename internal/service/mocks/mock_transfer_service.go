package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"fileshare/internal/model"
)

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) Upload(ctx context.Context, r io.Reader, filename, folderPath, contentType string) (*model.File, error) {
	args := m.Called(ctx, r, filename, folderPath, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockTransferService) UploadBase64(ctx context.Context, filename, folderPath, data string) (*model.File, error) {
	args := m.Called(ctx, filename, folderPath, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockTransferService) Download(ctx context.Context, fullPath string) (io.ReadCloser, *model.File, error) {
	args := m.Called(ctx, fullPath)
	rc, _ := args.Get(0).(io.ReadCloser)
	rec, _ := args.Get(1).(*model.File)
	return rc, rec, args.Error(2)
}

func (m *MockTransferService) Delete(ctx context.Context, fullPath string) error {
	args := m.Called(ctx, fullPath)
	return args.Error(0)
}

func (m *MockTransferService) IssueShareLink(fullPath string, mode model.AccessMode, ttl time.Duration, maxDownloads int) (*model.ShareToken, error) {
	args := m.Called(fullPath, mode, ttl, maxDownloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareToken), args.Error(1)
}

func (m *MockTransferService) PresignDownload(ctx context.Context, fullPath string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, fullPath, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockTransferService) OpenShared(ctx context.Context, token string, consume bool) (io.ReadCloser, *model.File, error) {
	args := m.Called(ctx, token, consume)
	rc, _ := args.Get(0).(io.ReadCloser)
	rec, _ := args.Get(1).(*model.File)
	return rc, rec, args.Error(2)
}

func (m *MockTransferService) AttachToChat(ctx context.Context, r io.Reader, filename, username, contentType string) (*model.ChatMessage, error) {
	args := m.Called(ctx, r, filename, username, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatMessage), args.Error(1)
}
