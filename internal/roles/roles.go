// Package roles holds the hidden role assignments of a game and the
// randomized distribution of role quotas across a roster.
package roles

import "math/rand/v2"

// Role is a player's hidden faction/ability assignment.
type Role string

const (
	Citizen  Role = "citizen"
	Werewolf Role = "werewolf"
	Seer     Role = "seer"
	Guardian Role = "guardian"
)

// Known reports whether r is one of the playable roles.
func Known(r Role) bool {
	switch r {
	case Citizen, Werewolf, Seer, Guardian:
		return true
	}
	return false
}

// Assign distributes quotas of special roles across the roster. The quota
// list is padded with Citizen up to the roster size, shuffled uniformly and
// zipped against the roster in order. When the quotas sum to more than the
// roster size the padded list is longer than the roster and only its first
// len(roster) entries are assigned, so overflow is absorbed as a random
// subset of the requested specials rather than an error.
func Assign(quotas map[Role]int, roster []int, rng *rand.Rand) map[int]Role {
	pool := make([]Role, 0, len(roster))
	for _, role := range []Role{Werewolf, Seer, Guardian, Citizen} {
		for i := 0; i < quotas[role]; i++ {
			pool = append(pool, role)
		}
	}
	for len(pool) < len(roster) {
		pool = append(pool, Citizen)
	}

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	assigned := make(map[int]Role, len(roster))
	for i, id := range roster {
		assigned[id] = pool[i]
	}
	return assigned
}
