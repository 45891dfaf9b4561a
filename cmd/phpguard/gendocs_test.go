package phpguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceDocsSection(t *testing.T) {
	in := []byte("# Title\n" + docsBegin + "\nold\n" + docsEnd + "\ntail\n")
	out, err := replaceDocsSection(in, "new\n")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n"+docsBegin+"\nnew\n"+docsEnd+"\ntail\n", string(out))

	_, err = replaceDocsSection([]byte("no markers"), "x")
	assert.Error(t, err)
}

func TestIndicatorDocs(t *testing.T) {
	doc := indicatorDocs()
	assert.Contains(t, doc, "- HIGH:\n")
	assert.Contains(t, doc, "  - `eval`: eval() call")
	assert.Contains(t, doc, "- MEDIUM:\n")
	assert.Contains(t, doc, "  - `preg_replace_e`: preg_replace() with /e")
}
