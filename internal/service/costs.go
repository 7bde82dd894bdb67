package service

import (
	"fmt"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

// actionCosts is the fixed price table for metered actions. Refill is a
// credit, not a spend, so it has no entry.
var actionCosts = map[model.ActionKind]int{
	model.ActionGenerate: 25,
	model.ActionIterate:  15,
	model.ActionLiveEdit: 5,
	model.ActionExport:   10,
}

// CostOf returns the token price of an action. An unknown kind is a
// programming error, not a user condition, so it panics.
func CostOf(kind model.ActionKind) int {
	cost, ok := actionCosts[kind]
	if !ok {
		panic(fmt.Sprintf("unknown action kind %q", kind))
	}
	return cost
}

// Costs returns a copy of the full price table for the UI shell's
// affordability pre-flight.
func Costs() map[model.ActionKind]int {
	out := make(map[model.ActionKind]int, len(actionCosts))
	for k, v := range actionCosts {
		out[k] = v
	}
	return out
}
