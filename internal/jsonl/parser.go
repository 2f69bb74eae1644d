// Package jsonl parses the JSONL import format for messages and categories.
package jsonl

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// MessageRecord is one line of a message import file. The body field is
// base64-encoded and may contain HTML.
type MessageRecord struct {
	ID      string   `json:"id"`
	Subject string   `json:"subject"`
	From    string   `json:"from"`
	To      []string `json:"to"`
	Snippet string   `json:"snippet,omitempty"`
	Body    string   `json:"body,omitempty"`
	Date    string   `json:"date,omitempty"`
}

// CategoryRecord is one line of a category import file.
type CategoryRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Parse reads JSONL from r and converts each non-empty line with fn. A line
// that fails to decode or convert aborts the parse with the line number in
// the error.
func Parse[T any](r io.Reader, fn func(raw json.RawMessage) (T, error)) ([]T, error) {
	var results []T

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		item, err := fn(json.RawMessage(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		results = append(results, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}

	return results, nil
}

// ParseMessages reads message records from a JSONL stream.
func ParseMessages(r io.Reader) ([]MessageRecord, error) {
	return Parse(r, func(raw json.RawMessage) (MessageRecord, error) {
		var rec MessageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return rec, err
		}
		if rec.ID == "" {
			return rec, fmt.Errorf("message record missing id")
		}
		return rec, nil
	})
}

// ParseCategories reads category records from a JSONL stream.
func ParseCategories(r io.Reader) ([]CategoryRecord, error) {
	return Parse(r, func(raw json.RawMessage) (CategoryRecord, error) {
		var rec CategoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return rec, err
		}
		if rec.Name == "" {
			return rec, fmt.Errorf("category record missing name")
		}
		return rec, nil
	})
}

// DecodeBase64Body decodes a base64-encoded message body. Invalid UTF-8 in
// the decoded bytes is passed through as-is.
func DecodeBase64Body(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Import files sometimes use the URL-safe alphabet.
		decoded, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("decode base64 body: %w", err)
		}
	}
	return string(decoded), nil
}

// ParseISODate parses an ISO-8601 date string, handling the 'Z' suffix and
// offset-less timestamps.
func ParseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse iso date %q", s)
}

// The tag name must follow '<' immediately; single-letter tags additionally
// need an attribute or a closing bracket so "a < b" style text does not match.
var htmlTagPattern = regexp.MustCompile(`(?i)<(html|body|div|br|table|span|strong|em)[\s>/]|<(p|a|b|i)(\s+[a-z-]+=|/?>)`)

// IsHTML reports whether the content looks like HTML markup.
func IsHTML(content string) bool {
	return htmlTagPattern.MatchString(content)
}

// ExtractTextFromHTML parses HTML and returns the readable text content,
// skipping script and style blocks. Falls back to the input on parse failure.
func ExtractTextFromHTML(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	skipTags := map[string]bool{
		"script": true, "style": true, "noscript": true, "iframe": true,
	}

	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "br", "tr":
				sb.WriteString("\n")
			}
		}
	}

	extract(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// NormalizeBody decodes a base64 body when flagged and strips HTML down to
// plain text when the content looks like markup.
func NormalizeBody(content string, base64Encoded bool) (string, error) {
	if base64Encoded {
		decoded, err := DecodeBase64Body(content)
		if err != nil {
			return "", err
		}
		content = decoded
	}

	if content != "" && IsHTML(content) {
		content = ExtractTextFromHTML(content)
	}

	return content, nil
}
