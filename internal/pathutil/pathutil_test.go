package pathutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "root", raw: "", want: ""},
		{name: "single segment", raw: "docs", want: "docs"},
		{name: "nested", raw: "docs/2024/q1", want: "docs/2024/q1"},
		{name: "trailing slash trimmed", raw: "docs/2024/", want: "docs/2024"},
		{name: "backslashes converted", raw: `docs\2024`, want: "docs/2024"},
		{name: "absolute rejected", raw: "/etc", wantErr: true},
		{name: "empty segment rejected", raw: "docs//2024", wantErr: true},
		{name: "dot rejected", raw: "docs/./2024", wantErr: true},
		{name: "dotdot rejected", raw: "../secret", wantErr: true},
		{name: "nul rejected", raw: "do\x00cs", wantErr: true},
		{name: "over-long segment rejected", raw: strings.Repeat("a", MaxSegmentLen+1), wantErr: true},
		{name: "max-length segment ok", raw: strings.Repeat("a", MaxSegmentLen), want: strings.Repeat("a", MaxSegmentLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitFolderAndName(t *testing.T) {
	folder, name := SplitFolderAndName("docs/2024/report.pdf")
	assert.Equal(t, "docs/2024", folder)
	assert.Equal(t, "report.pdf", name)

	folder, name = SplitFolderAndName("report.pdf")
	assert.Equal(t, "", folder)
	assert.Equal(t, "report.pdf", name)
}

func TestIsAncestorOf(t *testing.T) {
	assert.True(t, IsAncestorOf("", "docs"))
	assert.True(t, IsAncestorOf("docs", "docs/2024"))
	assert.True(t, IsAncestorOf("docs", "docs/2024/q1"))
	assert.False(t, IsAncestorOf("docs", "docs"))
	assert.False(t, IsAncestorOf("docs", "docs2024"))
	assert.False(t, IsAncestorOf("docs/2024", "docs"))
	assert.False(t, IsAncestorOf("", ""))
}

func TestAncestors(t *testing.T) {
	assert.Nil(t, Ancestors(""))
	assert.Empty(t, Ancestors("docs"))
	assert.Equal(t, []string{"a", "a/b"}, Ancestors("a/b/c"))
}
