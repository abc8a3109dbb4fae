package feed

import (
	"fmt"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
)

// IndividualMessage renders "{name} {verb}".
func IndividualMessage(name string, t domain.NotificationType) string {
	if name == "" {
		name = domain.UnknownActorName
	}
	return fmt.Sprintf("%s %s", name, t.VerbPhrase())
}

// GroupedMessage renders "{name} and {n} other(s) {verb}". otherCount of zero
// falls back to the individual form.
func GroupedMessage(name string, otherCount int, t domain.NotificationType) string {
	if otherCount <= 0 {
		return IndividualMessage(name, t)
	}
	if name == "" {
		name = domain.UnknownActorName
	}
	return fmt.Sprintf("%s and %d %s %s", name, otherCount, Others(otherCount), t.VerbPhrase())
}

// Others picks "other" for exactly one and "others" otherwise.
func Others(n int) string {
	if n == 1 {
		return "other"
	}
	return "others"
}
