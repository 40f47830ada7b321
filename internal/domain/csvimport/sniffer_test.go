package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	raw := []byte("Week Ending,Quotes Sent,Sales Value\n6/1/2024,12,\"$15,000.00\"\n,,\n13/1/2024,8,$9000\n")

	parsed, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Week Ending", "Quotes Sent", "Sales Value"}, parsed.Headers)
	assert.Equal(t, 3, parsed.TotalRows, "blank rows count toward the total")
	assert.Equal(t, ',', parsed.Delimiter)
	assert.Equal(t, "utf-8", parsed.Encoding)

	nonBlank := parsed.NonBlankRecords()
	require.Len(t, nonBlank, 2)
	assert.Equal(t, "$15,000.00", nonBlank[0][2])
}

func TestParseEmptyFile(t *testing.T) {
	_, err := Parse([]byte("  \n \n"))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParseDelimiters(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want rune
	}{
		{"comma", "a,b,c\n1,2,3\n", ','},
		{"semicolon", "a;b;c\n1;2;3\n", ';'},
		{"tab", "a\tb\tc\n1\t2\t3\n", '\t'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, parsed.Delimiter)
			assert.Len(t, parsed.Headers, 3, "delimiter must actually split the header")
		})
	}
}

func TestParseDelimitersSingleColumn(t *testing.T) {
	parsed, err := Parse([]byte("single\nvalue\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"single"}, parsed.Headers)
}

func TestParseBOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Week Ending,Count\n6/1/2024,3\n")...)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-bom", parsed.Encoding)
	assert.Equal(t, "Week Ending", parsed.Headers[0], "BOM must not leak into the first header")
}

func TestParseLatin1(t *testing.T) {
	// 0xE9 is é in latin-1 and invalid UTF-8 on its own.
	raw := []byte("Name,Count\nCaf\xe9,2\n")

	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "latin-1", parsed.Encoding)
	require.Len(t, parsed.Records, 1)
	assert.Equal(t, "Café", parsed.Records[0][0])
}

func TestParseRaggedRows(t *testing.T) {
	parsed, err := Parse([]byte("a,b,c\n1,2\n1,2,3,4\n"))
	require.NoError(t, err)
	assert.Len(t, parsed.Records, 2, "ragged rows are kept, not rejected")
}
