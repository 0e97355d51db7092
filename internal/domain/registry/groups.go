package registry

import (
	"maps"
	"slices"
)

// Groups maps a group id to its member set. Membership is rebuilt from live
// registrations and explicit group events; nothing is persisted.
type Groups struct {
	groups map[string]map[string]struct{}
}

func NewGroups() *Groups {
	return &Groups{groups: make(map[string]map[string]struct{})}
}

// Create replaces the group with exactly the given members.
// An empty member list deletes the group.
func (g *Groups) Create(groupID string, members []string) {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m != "" {
			set[m] = struct{}{}
		}
	}
	if len(set) == 0 {
		delete(g.groups, groupID)
		return
	}
	g.groups[groupID] = set
}

// Join adds userID, creating the group when unknown.
func (g *Groups) Join(groupID, userID string) {
	set, ok := g.groups[groupID]
	if !ok {
		set = make(map[string]struct{})
		g.groups[groupID] = set
	}
	set[userID] = struct{}{}
}

// Leave removes userID and deletes the group once it is empty.
func (g *Groups) Leave(groupID, userID string) {
	set, ok := g.groups[groupID]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(g.groups, groupID)
	}
}

// Members returns a sorted copy of the member set, empty for unknown groups.
func (g *Groups) Members(groupID string) []string {
	set, ok := g.groups[groupID]
	if !ok {
		return []string{}
	}
	return slices.Sorted(maps.Keys(set))
}

// ReconcileOnRegister re-adds a reconnecting member to a group it declares.
// It is additive only: groups the client does not mention are left alone.
func (g *Groups) ReconcileOnRegister(groupID, userID string) {
	g.Join(groupID, userID)
}

func (g *Groups) Len() int { return len(g.groups) }
