package sim

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockHook is a hand-written gomock-style mock for the single-method Hook
// interface, following the shape mockgen would emit for it.
type MockHook struct {
	ctrl     *gomock.Controller
	recorder *MockHookMockRecorder
}

// MockHookMockRecorder is the mock recorder for MockHook.
type MockHookMockRecorder struct {
	mock *MockHook
}

// NewMockHook creates a new mock instance.
func NewMockHook(ctrl *gomock.Controller) *MockHook {
	mock := &MockHook{ctrl: ctrl}
	mock.recorder = &MockHookMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockHook) EXPECT() *MockHookMockRecorder {
	return m.recorder
}

// Func mocks Hook.Func.
func (m *MockHook) Func(ctx HookCtx) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Func", ctx)
}

// Func indicates an expected call of Func.
func (mr *MockHookMockRecorder) Func(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Func", reflect.TypeOf((*MockHook)(nil).Func), ctx)
}
