// Package buildmsg supplies the rotating cosmetic captions shown on the
// writer's progress bar.
package buildmsg

import "math/rand"

var messages = []string{
	"Making a tortilla",
	"Making a tortilla \U0001FAD3",
	"Cooking a tortilla",
	"Working on a tortilla",
	"Working on a tortilla \U0001FAD3",
	"Rolling out a tortilla",
	"Rolling out a tortilla \U0001FAD3",
	"Baking a tortilla",
	"Baking a tortilla \U0001FAD3",
	"Grilling a tortilla",
	"Grilling a tortilla \U0001FAD3",
	"Toasting a tortilla",
	"Toasting a tortilla \U0001FAD3",
}

// Random returns one of a fixed set of cosmetic build captions, chosen
// uniformly at random.
func Random() string {
	return messages[rand.Intn(len(messages))]
}
