package recording

import "strings"

// AddressPrefix accepts messages whose address starts with prefix.
func AddressPrefix(prefix string) Predicate {
	return func(m *Message) bool { return strings.HasPrefix(m.Address, prefix) }
}

// All accepts a message only if every predicate does. Nil predicates are
// skipped.
func All(ps ...Predicate) Predicate {
	return func(m *Message) bool {
		for _, p := range ps {
			if p != nil && !p(m) {
				return false
			}
		}
		return true
	}
}

// Any accepts a message if at least one predicate does.
func Any(ps ...Predicate) Predicate {
	return func(m *Message) bool {
		for _, p := range ps {
			if p != nil && p(m) {
				return true
			}
		}
		return false
	}
}

func Not(p Predicate) Predicate {
	return func(m *Message) bool { return !p(m) }
}
