package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatch(t *testing.T) {
	input := `
# comment
/neodc/esacci/sst/data
  /neodc/esacci/lst/data , esacci.LST.day , lst.yml

/neodc/esacci/oc/data,,chlor_a
`
	entries, err := ParseBatch(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, BatchEntry{Directory: "/neodc/esacci/sst/data"}, entries[0])
	assert.Equal(t, BatchEntry{Directory: "/neodc/esacci/lst/data", DRS: "esacci.LST.day", Splitter: "lst.yml"}, entries[1])
	assert.Equal(t, BatchEntry{Directory: "/neodc/esacci/oc/data", Splitter: "chlor_a"}, entries[2])
}

func TestParseBatch_Errors(t *testing.T) {
	_, err := ParseBatch(strings.NewReader("/a,b,c,d\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = ParseBatch(strings.NewReader("# x\n,drs\n"))
	assert.ErrorContains(t, err, "line 2: directory is required")
}
