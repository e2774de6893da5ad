// Package dataset reads and checks JSONL training and evaluation data in the
// shapes Bedrock model customization accepts.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// maxLineBytes caps a single JSONL line; training records with long
// completions routinely exceed bufio's default token size.
const maxLineBytes = 10 * 1024 * 1024

// Message is one turn of a conversational record.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is a single JSONL sample. Two shapes are accepted:
//
//	{"prompt": "...", "completion": "..."}
//	{"system": "...", "messages": [{"role": "user", "content": "..."}, ...]}
type Record struct {
	Prompt     string    `json:"prompt,omitempty"`
	Completion string    `json:"completion,omitempty"`
	System     string    `json:"system,omitempty"`
	Messages   []Message `json:"messages,omitempty"`
}

// PromptAndExpected extracts the prompt to send to the model and the
// completion to score it against. Prompt/completion records return those
// directly; conversational records use the last user message as the prompt
// and the last assistant message as the expected completion. ok is false
// when the record carries no usable prompt.
func (r Record) PromptAndExpected() (prompt, expected string, ok bool) {
	if r.Prompt != "" {
		return r.Prompt, r.Completion, true
	}

	var user, assistant string
	for _, msg := range r.Messages {
		switch msg.Role {
		case "user":
			user = msg.Content
		case "assistant":
			assistant = msg.Content
		}
	}
	if user == "" {
		return "", "", false
	}
	return user, assistant, true
}

// Finding is a single problem on one line of a JSONL file.
type Finding struct {
	Line    int
	Message string
}

// Report summarizes validation of one JSONL file. Records counts the lines
// that parsed as JSON objects, including ones flagged for missing fields.
type Report struct {
	Path     string
	Records  int
	Findings []Finding
}

// OK reports whether the file passed cleanly: at least one record and no
// findings.
func (r *Report) OK() bool {
	return r.Records > 0 && len(r.Findings) == 0
}

// Load reads records from a JSONL file. Malformed lines are reported as
// findings and skipped rather than aborting the load; blank lines are
// ignored. A positive maxSamples truncates the result after the whole file
// has been read, so finding line numbers always refer to the full file.
func Load(path string, maxSamples int) ([]Record, []Finding, error) {
	var records []Record
	var findings []Finding

	err := eachLine(path, func(line int, text string) {
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			findings = append(findings, Finding{
				Line:    line,
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			return
		}
		records = append(records, rec)
	})
	if err != nil {
		return nil, nil, err
	}

	if maxSamples > 0 && len(records) > maxSamples {
		records = records[:maxSamples]
	}
	return records, findings, nil
}

// Validate streams a JSONL file and reports record counts plus per-line
// findings for invalid JSON and for records missing every trainable field
// (prompt, messages, system).
func Validate(path string) (*Report, error) {
	report := &Report{Path: path}

	err := eachLine(path, func(line int, text string) {
		var record map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			report.Findings = append(report.Findings, Finding{
				Line:    line,
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			return
		}

		report.Records++

		for _, field := range []string{"prompt", "messages", "system"} {
			if _, ok := record[field]; ok {
				return
			}
		}
		report.Findings = append(report.Findings, Finding{
			Line:    line,
			Message: "missing 'prompt' or 'messages' field",
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// eachLine calls fn for every non-blank line with its 1-based line number.
// Lines are trimmed of surrounding whitespace, so CRLF input behaves like
// LF input.
func eachLine(path string, fn func(line int, text string)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fn(n, text)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
