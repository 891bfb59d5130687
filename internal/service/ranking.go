package service

import (
	"sort"

	"taskloop-sync/internal/domain"
)

// SortTasks returns a copy of tasks ordered by creation time. Equal
// timestamps keep their input order.
func SortTasks(tasks []domain.Task, order domain.TaskOrder) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		if order == domain.OrderOldest {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RankParticipants computes completion statistics per participant and orders
// them by completion percentage, then completed count, then id. Position is
// the 1-based index after sorting.
func RankParticipants(participants []domain.Participant, tasks []domain.Task) []domain.ParticipantStats {
	total := make(map[int64]int, len(participants))
	done := make(map[int64]int, len(participants))
	for _, t := range tasks {
		total[t.User]++
		if t.IsDone {
			done[t.User]++
		}
	}

	stats := make([]domain.ParticipantStats, 0, len(participants))
	for _, p := range participants {
		s := domain.ParticipantStats{
			ID:             p.ID,
			Username:       p.Username,
			TotalTasks:     total[p.ID],
			CompletedTasks: done[p.ID],
		}
		if s.TotalTasks > 0 {
			s.CompletionPercentage = float64(s.CompletedTasks) / float64(s.TotalTasks) * 100
		}
		stats = append(stats, s)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.CompletionPercentage != b.CompletionPercentage {
			return a.CompletionPercentage > b.CompletionPercentage
		}
		if a.CompletedTasks != b.CompletedTasks {
			return a.CompletedTasks > b.CompletedTasks
		}
		return a.ID < b.ID
	})
	for i := range stats {
		stats[i].Position = i + 1
	}
	return stats
}

// BuildBoard lays out the room view for userID: the user's own column first,
// labelled "(you)", then everyone else in ranking order.
func BuildBoard(room *domain.Room, tasks []domain.Task, userID int64, order domain.TaskOrder) domain.Board {
	if order == "" {
		order = domain.OrderNewest
	}
	board := domain.Board{Order: order}
	if room == nil {
		return board
	}
	board.RoomUUID = room.UUID
	board.RoomName = room.Name
	board.Rankings = RankParticipants(room.Participants, tasks)

	byUser := make(map[int64][]domain.Task, len(room.Participants))
	for _, t := range SortTasks(tasks, order) {
		byUser[t.User] = append(byUser[t.User], t)
	}

	column := func(s domain.ParticipantStats, mine bool) domain.Column {
		c := domain.Column{Participant: s, Label: s.Username, IsCurrentUser: mine, Tasks: byUser[s.ID]}
		if mine {
			c.Label = s.Username + " (you)"
		}
		if c.Tasks == nil {
			c.Tasks = []domain.Task{}
		}
		return c
	}

	for _, s := range board.Rankings {
		if s.ID == userID {
			board.Columns = append(board.Columns, column(s, true))
		}
	}
	for _, s := range board.Rankings {
		if s.ID != userID {
			board.Columns = append(board.Columns, column(s, false))
		}
	}
	return board
}
