package testutil

import (
	"context"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/logging"
	"audio-policy/internal/hal"

	"github.com/stretchr/testify/mock"
)

// MockHALClient is a testify mock of hal.Client
type MockHALClient struct {
	mock.Mock
}

var _ hal.Client = (*MockHALClient)(nil)

func (m *MockHALClient) LoadHwModule(name string) (audio.ModuleHandle, error) {
	args := m.Called(name)
	return args.Get(0).(audio.ModuleHandle), args.Error(1)
}

func (m *MockHALClient) OpenOutput(req hal.OutputRequest) (audio.IOHandle, audio.Config, error) {
	args := m.Called(req)
	return args.Get(0).(audio.IOHandle), args.Get(1).(audio.Config), args.Error(2)
}

func (m *MockHALClient) OpenInput(req hal.InputRequest) (audio.IOHandle, audio.Config, error) {
	args := m.Called(req)
	return args.Get(0).(audio.IOHandle), args.Get(1).(audio.Config), args.Error(2)
}

func (m *MockHALClient) CloseOutput(io audio.IOHandle) error {
	args := m.Called(io)
	return args.Error(0)
}

func (m *MockHALClient) CloseInput(io audio.IOHandle) error {
	args := m.Called(io)
	return args.Error(0)
}

func (m *MockHALClient) CreateAudioPatch(patch *audio.Patch) (audio.PatchHandle, error) {
	args := m.Called(patch)
	return args.Get(0).(audio.PatchHandle), args.Error(1)
}

func (m *MockHALClient) ReleaseAudioPatch(handle audio.PatchHandle) error {
	args := m.Called(handle)
	return args.Error(0)
}

// MapResolver resolves ports from a fixed table
type MapResolver map[audio.PortHandle]audio.PortInfo

func (r MapResolver) Port(id audio.PortHandle) (audio.PortInfo, bool) {
	info, ok := r[id]
	return info, ok
}

// MockLogger is a testify mock of logging.Logger
type MockLogger struct {
	mock.Mock
}

var _ logging.Logger = (*MockLogger)(nil)

func (m *MockLogger) Debug(msg string, fields ...logging.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields ...logging.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields ...logging.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, err error, fields ...logging.Field) {
	m.Called(msg, err, fields)
}

func (m *MockLogger) WithFields(fields ...logging.Field) logging.Logger {
	return m
}

func (m *MockLogger) WithContext(ctx context.Context) logging.Logger {
	return m
}
