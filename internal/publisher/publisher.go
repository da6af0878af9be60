// Package publisher filters the observer's snapshot through the user's
// sharing settings and pushes it to an optional Relay.
package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/crystalball/observer/internal/session"
)

const postTimeout = 5 * time.Second

// Sharing controls what a Publisher is willing to send to the relay.
// Mirrors ~/.crystal-ball/sharing.json.
type Sharing struct {
	Enabled        bool     `json:"enabled"`
	ExcludedGroups []string `json:"excludedGroups"`
}

// publishBody is the wire shape POSTed to the relay's /api/publish.
type publishBody struct {
	User     string            `json:"user"`
	Color    string            `json:"color"`
	Snapshot *session.Snapshot `json:"snapshot"`
}

// Publisher pushes filtered snapshots to a Relay over HTTP. A failing
// publish is logged and swallowed — it must never interrupt local
// operation (spec §5).
type Publisher struct {
	relayURL string
	user     string
	color    string
	token    string
	client   *http.Client
}

// New returns a Publisher targeting relayURL, identifying itself as user
// with the given color, authenticating with token (empty if the relay
// requires none).
func New(relayURL, user, color, token string) *Publisher {
	return &Publisher{
		relayURL: relayURL,
		user:     user,
		color:    color,
		token:    token,
		client:   &http.Client{Timeout: postTimeout},
	}
}

// Publish filters snap through sharing and POSTs the result to the relay.
// Any failure is logged and swallowed.
func (p *Publisher) Publish(snap *session.Snapshot, sharing Sharing) {
	if !sharing.Enabled || snap == nil {
		return
	}

	filtered := filterSnapshot(snap, sharing.ExcludedGroups)

	body, err := json.Marshal(publishBody{User: p.user, Color: p.color, Snapshot: filtered})
	if err != nil {
		log.Printf("[publisher] marshal snapshot: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, p.relayURL+"/api/publish", bytes.NewReader(body))
	if err != nil {
		log.Printf("[publisher] build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("[publisher] publish failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[publisher] publish rejected: %s", fmt.Sprint(resp.StatusCode))
	}
}

// filterSnapshot returns a copy of snap with sessions and groups belonging
// to any excluded group removed, and metrics left untouched (idle-economics
// is reported in aggregate regardless of per-group sharing choices).
func filterSnapshot(snap *session.Snapshot, excludedGroups []string) *session.Snapshot {
	if len(excludedGroups) == 0 {
		return snap
	}
	excluded := make(map[string]bool, len(excludedGroups))
	for _, g := range excludedGroups {
		excluded[g] = true
	}

	sessions := make([]session.Session, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		if !excluded[s.Group] {
			sessions = append(sessions, s)
		}
	}

	groups := make([]session.Group, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		if !excluded[g.ID] {
			groups = append(groups, g)
		}
	}

	return &session.Snapshot{
		Timestamp: snap.Timestamp,
		Sessions:  sessions,
		Groups:    groups,
		Metrics:   snap.Metrics,
	}
}
