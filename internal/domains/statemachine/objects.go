package statemachine

// WildcardSource marks a transition valid from every declared state. Wildcard
// entries are expanded into the concrete table once at construction; an
// explicit entry for the same trigger always wins over the wildcard.
const WildcardSource = "*"

type Transition struct {
	Trigger string
	Sources []string
	Dest    string
}

// ChangeCallback receives the new machine state. It is invoked while the
// machine's transition lock is held, so concurrent triggers can never
// interleave their callbacks.
type ChangeCallback func(newState string)

type transitionKey struct {
	source  string
	trigger string
}
