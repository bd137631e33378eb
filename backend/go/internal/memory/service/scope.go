package service

// Scope selects which memory structures an erase request resets.
type Scope string

const (
	ScopePersonal Scope = "personal"
	ScopeShared   Scope = "shared"
	ScopeAll      Scope = "all"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopePersonal, ScopeShared, ScopeAll:
		return true
	}
	return false
}

func (s Scope) includesPersonal() bool {
	return s == ScopePersonal || s == ScopeAll
}

func (s Scope) includesShared() bool {
	return s == ScopeShared || s == ScopeAll
}
