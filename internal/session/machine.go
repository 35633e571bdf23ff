// Package session 维护每个用户的登录会话生命周期
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 会话状态常量
const (
	StateSignedOut  = "signed_out"
	StateSignedIn   = "signed_in"
	StateRefreshing = "refreshing"
)

// 事件常量
const (
	EventSignIn         = "sign_in"
	EventRefresh        = "refresh"
	EventTokenRefreshed = "token_refreshed"
	EventRefreshFailed  = "refresh_failed"
	EventSignOut        = "sign_out"
)

// 推送给客户端的会话事件
const (
	NotifySignedIn       = "SIGNED_IN"
	NotifyTokenRefreshed = "TOKEN_REFRESHED"
	NotifySignedOut      = "SIGNED_OUT"
)

// Notification 返回状态机事件对应的客户端通知，refresh 不通知
func Notification(event string) (string, bool) {
	switch event {
	case EventSignIn:
		return NotifySignedIn, true
	case EventTokenRefreshed:
		return NotifyTokenRefreshed, true
	case EventRefreshFailed, EventSignOut:
		return NotifySignedOut, true
	default:
		return "", false
	}
}

// Change 状态变更
type Change struct {
	UserID string
	Event  string
	From   string
	To     string
}

// State 会话状态
type State struct {
	UserID       string    `json:"user_id"`
	CurrentState string    `json:"state"`
	Since        time.Time `json:"since"`
	Email        string    `json:"email,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Machine 会话状态机
type Machine struct {
	mu       sync.RWMutex
	userID   string
	fsm      *fsm.FSM
	state    *State
	onChange func(Change)
	pending  []Change // 本次 Trigger 产生的变更，解锁后再回调
}

// NewMachine 创建状态机
func NewMachine(userID, initialState string, onChange func(Change)) *Machine {
	if initialState == "" {
		initialState = StateSignedOut
	}

	m := &Machine{
		userID:   userID,
		onChange: onChange,
		state: &State{
			UserID:       userID,
			CurrentState: initialState,
			Since:        time.Now(),
		},
	}

	m.fsm = fsm.NewFSM(
		initialState,
		fsm.Events{
			// 重复登录（例如另一个标签页）保持 signed_in
			{Name: EventSignIn, Src: []string{StateSignedOut, StateSignedIn}, Dst: StateSignedIn},

			{Name: EventRefresh, Src: []string{StateSignedIn}, Dst: StateRefreshing},
			{Name: EventTokenRefreshed, Src: []string{StateRefreshing}, Dst: StateSignedIn},
			{Name: EventRefreshFailed, Src: []string{StateRefreshing}, Dst: StateSignedOut},

			{Name: EventSignOut, Src: []string{StateSignedIn, StateRefreshing}, Dst: StateSignedOut},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if e.Src != e.Dst || e.Event == EventSignIn {
					m.pending = append(m.pending, Change{UserID: m.userID, Event: e.Event, From: e.Src, To: e.Dst})
				}
			},
		},
	)

	return m
}

// CurrentState 获取当前状态
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// GetState 获取完整状态
func (m *Machine) GetState() *State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// 返回副本
	stateCopy := *m.state
	stateCopy.CurrentState = m.fsm.Current()
	return &stateCopy
}

// UpdateState 更新状态数据
func (m *Machine) UpdateState(update func(s *State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(m.state)
}

// Trigger 触发事件，变更回调在释放锁之后执行
func (m *Machine) Trigger(event string) error {
	changes, err := m.trigger(event)
	if err != nil {
		return err
	}
	if m.onChange != nil {
		for _, c := range changes {
			m.onChange(c)
		}
	}
	return nil
}

func (m *Machine) trigger(event string) ([]Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = nil
	if err := m.fsm.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			m.pending = nil
			return nil, fmt.Errorf("trigger event %s: %w", event, err)
		}
	}

	m.state.CurrentState = m.fsm.Current()
	m.state.Since = time.Now()
	changes := m.pending
	m.pending = nil
	return changes, nil
}

// CanTransition 检查是否可以转换
func (m *Machine) CanTransition(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}

// Manager 状态机管理器
type Manager struct {
	mu       sync.RWMutex
	machines map[string]*Machine
	onChange func(Change)
}

// NewManager 创建管理器
func NewManager(onChange func(Change)) *Manager {
	return &Manager{
		machines: make(map[string]*Machine),
		onChange: onChange,
	}
}

// GetOrCreate 获取或创建状态机
func (m *Manager) GetOrCreate(userID string) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if machine, ok := m.machines[userID]; ok {
		return machine
	}

	machine := NewMachine(userID, StateSignedOut, m.onChange)
	m.machines[userID] = machine
	return machine
}

// Get 获取状态机
func (m *Manager) Get(userID string) (*Machine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	machine, ok := m.machines[userID]
	return machine, ok
}

// GetAllStates 获取所有会话状态
func (m *Manager) GetAllStates() map[string]*State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]*State)
	for userID, machine := range m.machines {
		states[userID] = machine.GetState()
	}
	return states
}

// CountByState 按状态统计会话数
func (m *Manager) CountByState() map[string]int {
	counts := make(map[string]int)
	for _, s := range m.GetAllStates() {
		counts[s.CurrentState]++
	}
	return counts
}
