package devops

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroups(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	outer := p.OpenGroup("outer")
	p.OpenGroup("inner")
	// closing the outer group also closes everything opened after it
	outer.Close()

	assert.Equal(t, "##[group]outer\n##[group]inner\n##[endgroup]\n##[endgroup]\n", buf.String())
}

func TestLogIssues(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.LogError("case %s failed", "a")
	p.LogWarning("slow")

	assert.Equal(t,
		"##vso[task.logissue type=error]case a failed\n##vso[task.logissue type=warning]slow\n",
		buf.String(),
	)
}
