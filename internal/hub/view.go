package hub

import (
	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/service"
)

// View is what a room screen renders: the board plus the controller flags.
type View struct {
	domain.Board
	Loading       bool                               `json:"loading"`
	Error         string                             `json:"error,omitempty"`
	IsParticipant bool                               `json:"isParticipant"`
	IsCreator     bool                               `json:"isCreator"`
	Ops           map[service.OpKind]service.OpState `json:"ops"`
	Toggling      []int64                            `json:"toggling"`
	// Stale is set when the board comes from the cache rather than the API.
	Stale bool `json:"stale"`
}

// NewView renders a controller snapshot for one task order.
func NewView(st service.SyncState, order domain.TaskOrder) View {
	return View{
		Board:         st.Board(order),
		Loading:       st.LoadingRoom || st.LoadingTasks || st.LoadingUser,
		Error:         st.Error,
		IsParticipant: st.IsParticipant(),
		IsCreator:     st.IsCreator(),
		Ops:           st.Ops,
		Toggling:      st.Toggling,
	}
}
