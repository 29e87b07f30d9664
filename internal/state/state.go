package state

import (
	"sort"
	"sync"
	"time"

	"video-downloader/internal/types"
)

// ServerState holds the tool statuses discovered at startup
type ServerState struct {
	tools     map[string]types.ToolStatus
	startedAt time.Time
	mutex     sync.RWMutex
}

var globalState = New()

// New returns an empty state, started now
func New() *ServerState {
	return &ServerState{
		tools:     make(map[string]types.ToolStatus),
		startedAt: time.Now(),
	}
}

// Default returns the process-wide state
func Default() *ServerState {
	return globalState
}

// SetTool records the status of a tool
func (s *ServerState) SetTool(name, toolState, message, path string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tools[name] = types.ToolStatus{
		Name:      name,
		State:     toolState,
		Message:   message,
		Path:      path,
		UpdatedAt: time.Now(),
	}
}

// Tool returns the status of a tool, or an unknown status if never checked
func (s *ServerState) Tool(name string) types.ToolStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if st, ok := s.tools[name]; ok {
		return st
	}
	return types.ToolStatus{Name: name, State: types.ToolUnknown}
}

// Snapshot returns a copy of the state sorted by tool name
func (s *ServerState) Snapshot() types.ServerState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tools := make([]types.ToolStatus, 0, len(s.tools))
	for _, st := range s.tools {
		tools = append(tools, st)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	return types.ServerState{Tools: tools, StartedAt: s.startedAt}
}
