package server

import (
	"math/rand/v2"
	"sort"
)

// actionOutcome names why a player action was accepted or dropped. The HTTP
// surface never exposes the reason (an ineligible action is silently dropped
// so nothing leaks about roles), but tests assert on it.
type actionOutcome int

const (
	actionAccepted actionOutcome = iota
	rejectedNotEligible
	rejectedNotNight
	rejectedWrongRole
	rejectedAlreadyUsed
	rejectedRepeatTarget
	rejectedUnknownTarget
)

// openVoting creates the ledger for a time slot with every eligible voter
// present and no choice made. A second open for the same slot is a no-op so
// a duplicate wake-up cannot wipe cast votes.
func openVoting(game *Game, timeID string, voters []int) bool {
	if _, ok := game.Votings[timeID]; ok {
		return false
	}
	ledger := make(map[int]int, len(voters))
	for _, id := range voters {
		ledger[id] = noChoice
	}
	game.Votings[timeID] = ledger
	return true
}

// castVote records the voter's current choice in the slot's ledger. Voters
// not in the ledger (ineligible when it opened, or no ledger at all) are
// dropped. The target is deliberately not validated; a vote for a dead or
// unknown player simply never wins a meaningful tally.
func castVote(game *Game, timeID string, voter, target int) actionOutcome {
	ledger, ok := game.Votings[timeID]
	if !ok {
		return rejectedNotEligible
	}
	if _, ok := ledger[voter]; !ok {
		return rejectedNotEligible
	}
	ledger[voter] = target
	return actionAccepted
}

// tallyVotes counts the cast votes for a slot and returns the winning target,
// or noChoice when nobody voted. Targets tied at the maximum count are
// decided by a uniformly random pick, never by insertion or id order; the
// tied set is sorted first only so seeded runs are reproducible.
func tallyVotes(game *Game, timeID string, rng *rand.Rand) int {
	ledger := game.Votings[timeID]
	counts := make(map[int]int)
	for _, target := range ledger {
		if target != noChoice {
			counts[target]++
		}
	}
	if len(counts) == 0 {
		return noChoice
	}

	max := 0
	for _, count := range counts {
		if count > max {
			max = count
		}
	}
	tied := make([]int, 0, len(counts))
	for target, count := range counts {
		if count == max {
			tied = append(tied, target)
		}
	}
	sort.Ints(tied)
	return tied[rng.IntN(len(tied))]
}
