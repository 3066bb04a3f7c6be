package router

import "fmt"

// DecisionKind enumerates the outcomes of a before-each hook.
type DecisionKind uint8

const (
	// KindProceed lets the navigation continue.
	KindProceed DecisionKind = iota
	// KindRedirect replaces the target with a named route.
	KindRedirect
	// KindBlock cancels the navigation.
	KindBlock
)

func (k DecisionKind) String() string {
	switch k {
	case KindProceed:
		return "proceed"
	case KindRedirect:
		return "redirect"
	case KindBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Decision is the per-transition verdict of a navigation hook.
type Decision struct {
	Kind   DecisionKind
	Target string
}

// Proceed lets the navigation continue.
func Proceed() Decision { return Decision{Kind: KindProceed} }

// RedirectTo sends the navigation to the named route.
func RedirectTo(name string) Decision { return Decision{Kind: KindRedirect, Target: name} }

// Block cancels the navigation.
func Block() Decision { return Decision{Kind: KindBlock} }

func (d Decision) String() string {
	if d.Kind == KindRedirect {
		return fmt.Sprintf("redirect(%s)", d.Target)
	}
	return d.Kind.String()
}
