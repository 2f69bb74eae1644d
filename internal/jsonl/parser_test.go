package jsonl

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessages(t *testing.T) {
	input := strings.Join([]string{
		`{"id": "msg-1", "subject": "Hello", "from": "a@example.com", "to": ["b@example.com"], "body": "aGVsbG8="}`,
		``,
		`{"id": "msg-2", "subject": "World", "from": "c@example.com", "to": ["d@example.com", "e@example.com"], "snippet": "short"}`,
	}, "\n")

	records, err := ParseMessages(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "msg-1", records[0].ID)
	assert.Equal(t, "Hello", records[0].Subject)
	assert.Equal(t, "a@example.com", records[0].From)
	assert.Equal(t, []string{"d@example.com", "e@example.com"}, records[1].To)
	assert.Equal(t, "short", records[1].Snippet)
}

func TestParseMessagesInvalidLine(t *testing.T) {
	input := `{"id": "msg-1", "subject": "ok"}` + "\n" + `{not json}`

	_, err := ParseMessages(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseMessagesMissingID(t *testing.T) {
	_, err := ParseMessages(strings.NewReader(`{"subject": "no id"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
}

func TestParseCategories(t *testing.T) {
	input := `{"name": "Work", "description": "Work-related messages"}`

	records, err := ParseCategories(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Work", records[0].Name)
	assert.Equal(t, "Work-related messages", records[0].Description)
}

func TestDecodeBase64Body(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("hello world"))

	decoded, err := DecodeBase64Body(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hello world", decoded)

	_, err = DecodeBase64Body("!!! not base64 !!!")
	assert.Error(t, err)
}

func TestParseISODate(t *testing.T) {
	parsed, err := ParseISODate("2024-03-15T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), parsed.UTC())

	parsed, err = ParseISODate("2024-03-15T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 8, parsed.UTC().Hour())

	parsed, err = ParseISODate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, parsed.Year())

	_, err = ParseISODate("not a date")
	assert.Error(t, err)
}

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML("<html><body>hi</body></html>"))
	assert.True(t, IsHTML(`<div class="x">content</div>`))
	assert.True(t, IsHTML("line one<br/>line two"))
	assert.True(t, IsHTML("<p>short paragraph</p>"))
	assert.True(t, IsHTML(`see <a href="https://example.com">link</a>`))
	assert.False(t, IsHTML("plain text body"))
	assert.False(t, IsHTML("a < b and b > c"))
	assert.False(t, IsHTML("values <b 5 are discarded"))
}

func TestExtractTextFromHTML(t *testing.T) {
	content := `<html><head><style>p { color: red }</style></head>` +
		`<body><p>First paragraph.</p><script>alert("x")</script><p>Second.</p></body></html>`

	text := ExtractTextFromHTML(content)
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color: red")
}

func TestNormalizeBody(t *testing.T) {
	htmlBody := "<html><body><p>inner text</p></body></html>"
	encoded := base64.StdEncoding.EncodeToString([]byte(htmlBody))

	normalized, err := NormalizeBody(encoded, true)
	require.NoError(t, err)
	assert.Equal(t, "inner text", normalized)

	plain, err := NormalizeBody("already plain", false)
	require.NoError(t, err)
	assert.Equal(t, "already plain", plain)
}
