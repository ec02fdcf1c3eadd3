package sync

// Decision is the outcome of reconciling a freshly fetched entity against its
// stored counterpart.
type Decision string

const (
	// DecisionInsert: no current version exists; insert as new.
	DecisionInsert Decision = "insert"
	// DecisionTouch: content is unchanged; refresh the sync timestamp only.
	DecisionTouch Decision = "touch"
	// DecisionHistorize: content changed; retire every stored version and
	// insert the incoming one as the new current version.
	DecisionHistorize Decision = "historize-and-insert"
)

// Reconcile compares the stored current checksum (nil when no current version
// exists) against the incoming one.
func Reconcile(current *string, incoming string) Decision {
	if current == nil {
		return DecisionInsert
	}
	if *current == incoming {
		return DecisionTouch
	}
	return DecisionHistorize
}
