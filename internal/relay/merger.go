package relay

import (
	"math"
	"sort"

	"github.com/crystalball/observer/internal/session"
)

// Palette is the fixed 8-colour sequence assigned to users in lexicographic
// name order once two or more publishers are present.
var Palette = [8]string{
	"#e74c3c", "#3498db", "#2ecc71", "#f1c40f",
	"#9b59b6", "#1abc9c", "#e67e22", "#34495e",
}

// DefaultColor is the fallback when a publish omits a colour, and the colour a
// single-publisher combined view uses when its entry has none.
const DefaultColor = "#87ceeb" // baby blue

// Combined is the merged view the relay serves from GET /api/combined.
type Combined struct {
	Sessions []CombinedSession `json:"sessions"`
	Groups   []CombinedGroup   `json:"groups"`
	Metrics  session.Metrics   `json:"metrics"`
	Users    []MergedUser      `json:"users"`
}

// CombinedSession is a session.Session namespaced with its owner.
type CombinedSession struct {
	session.Session
	Owner      string `json:"owner"`
	OwnerColor string `json:"ownerColor"`
}

// CombinedGroup is a session.Group merged across users, carrying the set
// of owners that contributed at least one session to it.
type CombinedGroup struct {
	ID           string   `json:"id"`
	Cwd          string   `json:"cwd"`
	SessionCount int      `json:"session_count"`
	SessionIDs   []string `json:"session_ids"`
	Owners       []string `json:"owners"`
}

// MergedUser is one publisher as reported in Combined.Users.
type MergedUser struct {
	Name         string `json:"name"`
	Color        string `json:"color"`
	SessionCount int    `json:"sessionCount"`
}

// Merge combines entries into a single Combined view. It is a pure
// function of its input: colour assignment, session namespacing, group
// unification by name, and metric aggregation follow spec §4.6 exactly.
// Entries may be given in any order — group composition and aggregated
// metrics are invariant to permutation (ties broken by first-encountered).
func Merge(entries []*Entry) Combined {
	colors := assignColors(entries)

	var sessions []CombinedSession
	groupOrder := make([]string, 0)
	groupIndex := make(map[string]int)
	var groups []CombinedGroup
	owners := make(map[string]map[string]bool)

	var totalMinutes float64
	var blockedCount int
	var longest *session.LongestWait
	var longestOwner string

	for _, e := range entries {
		if e.Snapshot == nil {
			continue
		}
		color := colors[e.User]

		for _, s := range e.Snapshot.Sessions {
			namespaced := s
			namespaced.ID = e.User + "/" + s.ID
			sessions = append(sessions, CombinedSession{
				Session:    namespaced,
				Owner:      e.User,
				OwnerColor: color,
			})

			idx, ok := groupIndex[s.Group]
			if !ok {
				idx = len(groups)
				groupIndex[s.Group] = idx
				groupOrder = append(groupOrder, s.Group)
				groups = append(groups, CombinedGroup{ID: s.Group, Cwd: s.Cwd})
				owners[s.Group] = make(map[string]bool)
			}
			groups[idx].SessionCount++
			groups[idx].SessionIDs = append(groups[idx].SessionIDs, namespaced.ID)
			owners[s.Group][e.User] = true
		}

		totalMinutes += e.Snapshot.Metrics.AwaitingAgentMinutes
		blockedCount += e.Snapshot.Metrics.BlockedCount

		if lw := e.Snapshot.Metrics.LongestWait; lw != nil {
			if longest == nil || lw.Seconds > longest.Seconds {
				copied := *lw
				longest = &copied
				longestOwner = e.User
			}
		}
	}

	for _, name := range groupOrder {
		idx := groupIndex[name]
		ownerSet := owners[name]
		ownerList := make([]string, 0, len(ownerSet))
		for o := range ownerSet {
			ownerList = append(ownerList, o)
		}
		sort.Strings(ownerList)
		groups[idx].Owners = ownerList
	}

	var longestWait *session.LongestWait
	if longest != nil {
		longestWait = &session.LongestWait{
			SessionID: longestOwner + "/" + longest.SessionID,
			Name:      longest.Name,
			Group:     longest.Group,
			Seconds:   longest.Seconds,
		}
	}

	users := make([]MergedUser, 0, len(entries))
	for _, e := range entries {
		count := 0
		if e.Snapshot != nil {
			count = len(e.Snapshot.Sessions)
		}
		users = append(users, MergedUser{
			Name:         e.User,
			Color:        colors[e.User],
			SessionCount: count,
		})
	}

	return Combined{
		Sessions: sessions,
		Groups:   groups,
		Metrics: session.Metrics{
			AwaitingAgentMinutes: math.Round(totalMinutes*10) / 10,
			LongestWait:          longestWait,
			BlockedCount:         blockedCount,
		},
		Users: users,
	}
}

// assignColors implements spec §4.6's colour policy: with two or more
// entries, override every user's colour from the fixed palette assigned in
// lexicographic name order; with exactly one, keep that user's own colour.
func assignColors(entries []*Entry) map[string]string {
	colors := make(map[string]string, len(entries))
	if len(entries) < 2 {
		for _, e := range entries {
			c := e.Color
			if c == "" {
				c = DefaultColor
			}
			colors[e.User] = c
		}
		return colors
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.User)
	}
	sort.Strings(names)
	for i, name := range names {
		colors[name] = Palette[i%len(Palette)]
	}
	return colors
}
