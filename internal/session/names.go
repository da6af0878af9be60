package session

// displayNames maps a PID (mod len(displayNames)) to a stable, human-friendly
// label for the longest-waiting session. Collisions across a large fleet are
// accepted silently — see DESIGN.md.
var displayNames = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel",
	"india", "juliet", "kilo", "lima", "mike", "november", "oscar", "papa",
	"quebec", "romeo", "sierra", "tango", "uniform", "victor", "whiskey",
	"xray", "yankee", "zulu", "amber", "birch", "cedar", "dune", "ember",
	"flint", "gale", "heron", "ivy", "jasper", "kestrel", "lark", "maple",
	"nimbus", "onyx", "pebble", "quartz", "ridge", "sable",
}

// displayNameForPID returns the stable display name for pid.
func displayNameForPID(pid int) string {
	if pid < 0 {
		pid = -pid
	}
	return displayNames[pid%len(displayNames)]
}
