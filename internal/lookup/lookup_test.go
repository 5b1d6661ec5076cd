package lookup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_KnownNames(t *testing.T) {
	lu := Defaults()

	assert.Equal(t, 0, lu.Site("RENCI"))
	assert.Equal(t, 4, lu.Site("George Mason"))
	assert.Equal(t, 12, lu.Site("TWI"))

	assert.Equal(t, 0, lu.EventType("RSTR"))
	assert.Equal(t, 7, lu.EventType("STRT"))
	assert.Equal(t, 11, lu.EventType("FEND"))

	assert.Equal(t, 1, lu.StateType("RUNN"))
	assert.Equal(t, 9, lu.StateType("EXIT"))
	assert.Equal(t, 9, lu.InstanceState("EXIT"))
	assert.Equal(t, 10, lu.InstanceState("STALLED"))
}

func TestDefaults_UnknownNamesReturnNotFound(t *testing.T) {
	lu := Defaults()

	// Repeated misses stay deterministic.
	for i := 0; i < 3; i++ {
		assert.Equal(t, NotFound, lu.Site("NOWHERE"))
		assert.Equal(t, NotFound, lu.EventType("XXXX"))
		assert.Equal(t, NotFound, lu.StateType(""))
		assert.Equal(t, NotFound, lu.PctComplete(99))
	}
}

func TestDefaults_PctComplete(t *testing.T) {
	lu := Defaults()

	assert.Equal(t, 0, lu.PctComplete(lu.EventType("RSTR")))
	assert.Equal(t, 5, lu.PctComplete(lu.EventType("PRE1")))
	assert.Equal(t, 60, lu.PctComplete(lu.EventType("FORE")))
	assert.Equal(t, 100, lu.PctComplete(lu.EventType("REND")))
	assert.Equal(t, 90, lu.PctComplete(lu.EventType("FEND")))
}

func TestSiteCodes_SkipsUnknown(t *testing.T) {
	lu := Defaults()

	codes := lu.SiteCodes([]string{"RENCI", "TACC", "NOWHERE"})
	assert.Equal(t, map[int]bool{0: true, 1: true}, codes)
}

type staticSource struct {
	tables map[string]map[string]int
}

func (s staticSource) LookupItems(_ context.Context, table string) (map[string]int, error) {
	return s.tables[table], nil
}

func TestFromSource(t *testing.T) {
	src := staticSource{tables: map[string]map[string]int{
		"site_lu":                {"RENCI": 0, "TACC": 1},
		"event_type_lu":          {"RSTR": 0, "STRT": 7},
		"state_type_lu":          {"RUNN": 1, "EXIT": 9},
		"instance_state_type_lu": {"RUNN": 1, "EXIT": 9},
		"pct_complete_lu":        {"0": 0, "7": 0},
	}}

	lu, err := FromSource(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 1, lu.Site("TACC"))
	assert.Equal(t, 7, lu.EventType("STRT"))
	assert.Equal(t, NotFound, lu.Site("LSU"))
	assert.Equal(t, 0, lu.PctComplete(7))
}

func TestFromSource_BadPctKey(t *testing.T) {
	src := staticSource{tables: map[string]map[string]int{
		"site_lu":                {},
		"event_type_lu":          {},
		"state_type_lu":          {},
		"instance_state_type_lu": {},
		"pct_complete_lu":        {"RSTR": 0},
	}}

	_, err := FromSource(context.Background(), src)
	require.Error(t, err)
}
