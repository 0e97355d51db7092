package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupsCreateReplaces(t *testing.T) {
	g := NewGroups()

	g.Create("g1", []string{"c", "a", "b", "a"})
	assert.Equal(t, []string{"a", "b", "c"}, g.Members("g1"))

	g.Create("g1", []string{"d"})
	assert.Equal(t, []string{"d"}, g.Members("g1"))

	g.Create("g1", nil)
	assert.Equal(t, 0, g.Len())
}

func TestGroupsJoinLeave(t *testing.T) {
	g := NewGroups()

	g.Join("g1", "alice")
	g.Join("g1", "bob")
	assert.Equal(t, []string{"alice", "bob"}, g.Members("g1"))

	g.Leave("g1", "alice")
	assert.Equal(t, []string{"bob"}, g.Members("g1"))

	g.Leave("g1", "bob")
	assert.Equal(t, []string{}, g.Members("g1"))
	assert.Equal(t, 0, g.Len(), "an empty group is deleted")

	g.Leave("unknown", "bob")
	assert.Equal(t, 0, g.Len())
}

func TestGroupsReconcileIsAdditive(t *testing.T) {
	g := NewGroups()
	g.Create("g1", []string{"alice", "bob"})
	g.Create("g2", []string{"alice"})

	// alice reconnects declaring only g1 and a new g3
	g.ReconcileOnRegister("g1", "alice")
	g.ReconcileOnRegister("g3", "alice")

	assert.Equal(t, []string{"alice", "bob"}, g.Members("g1"))
	assert.Equal(t, []string{"alice"}, g.Members("g2"), "undeclared membership survives")
	assert.Equal(t, []string{"alice"}, g.Members("g3"))
}

func TestGroupsMembersIsACopy(t *testing.T) {
	g := NewGroups()
	g.Create("g1", []string{"alice"})

	m := g.Members("g1")
	m[0] = "mallory"
	assert.Equal(t, []string{"alice"}, g.Members("g1"))
}
