// Package assign implements the smart-assign load-balancing rule.
package assign

import "github.com/BuzzLyutic/collab-board/internal/model"

// Load counts active (Todo, In Progress) tasks per assignee. Unassigned and
// Done tasks are ignored, so a user with no active work is absent from the map.
func Load(tasks []model.Task) map[string]int {
	load := make(map[string]int)
	for _, t := range tasks {
		if t.AssignedTo == nil || !t.Status.Active() {
			continue
		}
		load[*t.AssignedTo]++
	}
	return load
}

// LeastLoaded returns the assignee with the smallest load. Ties go to the
// lexicographically smallest user id. ok is false when load is empty.
func LeastLoaded(load map[string]int) (userID string, ok bool) {
	best := -1
	for id, n := range load {
		if best < 0 || n < best || (n == best && id < userID) {
			userID, best = id, n
		}
	}
	return userID, best >= 0
}
