package mock

import (
	context "context"
	reflect "reflect"

	progression "github.com/ledgerbot/ledgerbot/internal/domain/progression"
	gomock "go.uber.org/mock/gomock"
)

// MockRewardSink is a mock of RewardSink interface.
type MockRewardSink struct {
	ctrl     *gomock.Controller
	recorder *MockRewardSinkMockRecorder
	isgomock struct{}
}

// MockRewardSinkMockRecorder is the mock recorder for MockRewardSink.
type MockRewardSinkMockRecorder struct {
	mock *MockRewardSink
}

// NewMockRewardSink creates a new mock instance.
func NewMockRewardSink(ctrl *gomock.Controller) *MockRewardSink {
	mock := &MockRewardSink{ctrl: ctrl}
	mock.recorder = &MockRewardSinkMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRewardSink) EXPECT() *MockRewardSinkMockRecorder {
	return m.recorder
}

// RewardTriggered mocks base method.
func (m *MockRewardSink) RewardTriggered(ctx context.Context, trigger progression.RewardTrigger) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "RewardTriggered", ctx, trigger)
}

// RewardTriggered indicates an expected call of RewardTriggered.
func (mr *MockRewardSinkMockRecorder) RewardTriggered(ctx, trigger any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RewardTriggered", reflect.TypeOf((*MockRewardSink)(nil).RewardTriggered), ctx, trigger)
}
