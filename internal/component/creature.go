package component

// Creature stores the bookkeeping of one simulated creature. Its body lives
// in a separate store as a *body.Guarded.
// Pure data, zero methods; all mutations happen in system functions.
type Creature struct {
	Key      string // snapshot key, "<definition>-<entity>"
	Species  string // definition name
	Born     int64  // tick of spawn
	Removals int
	Severity float64 // accumulated removal severity
	Dirty    bool    // changed since the last snapshot save
}
