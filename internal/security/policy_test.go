package security

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModes(t *testing.T) {
	p := NewPolicy(Unrestricted)
	assert.True(t, p.Allowed("Sql::Database"))

	p.SetMode(DenyAll)
	p.Add("Time")
	assert.False(t, p.Allowed("Time"), "deny-all ignores the allow-list")

	p.SetMode(AllowList)
	assert.True(t, p.Allowed("Time"))
	assert.False(t, p.Allowed("Sql::Database"))

	err := p.Check("Sql::Database")
	var denied *AccessDenied
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "Sql::Database", denied.Name)
	assert.Equal(t, "access to Sql::Database denied (allow-list)", err.Error())
}

func TestNamespaceEntries(t *testing.T) {
	p := NewPolicy(AllowList, "Sql::*")
	assert.True(t, p.Allowed("Sql::Database"))
	assert.True(t, p.Allowed("Sql::Rows::Cursor"))
	assert.False(t, p.Allowed("Sql"), "the wildcard covers members only")
	assert.False(t, p.Allowed("Sqlite::Database"))
}

func TestAddRemoveClear(t *testing.T) {
	p := NewPolicy(AllowList, "Time", " File ", "")
	assert.Equal(t, []string{"File", "Time"}, p.Entries())

	p.Remove("Time")
	assert.False(t, p.Allowed("Time"))
	assert.True(t, p.Allowed("File"))

	p.Clear()
	assert.Empty(t, p.Entries())
	assert.NoError(t, NewPolicy(Unrestricted).Check("Anything"))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":             Unrestricted,
		"unrestricted": Unrestricted,
		"Deny-All":     DenyAll,
		"allow-list":   AllowList,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("sometimes")
	assert.Error(t, err)
}

func TestConcurrentReconfiguration(t *testing.T) {
	p := NewPolicy(AllowList)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Add("Time")
			p.SetMode(AllowList)
		}()
		go func() {
			defer wg.Done()
			_ = p.Allowed("Time")
		}()
	}
	wg.Wait()
	assert.True(t, p.Allowed("Time"))
}
