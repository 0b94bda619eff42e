// Package tasks reads task lines into a queue source.
//
// A task file holds one shell command per line. Blank lines and lines
// starting with `#` are skipped. An optional YAML front matter block at
// the top of the file (delimited by `---` lines) carries per-file run
// options.
package tasks

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/scatter/internal/queue"
)

// maxLineSize caps a single task line. Tasks are shell commands, so the
// default scanner limit is raised to cover long pipelines.
const maxLineSize = 1024 * 1024

// Options is the YAML front matter a task file may carry. Zero values
// mean "not set"; explicit flags take precedence over these.
type Options struct {
	Shell   string `yaml:"shell"`
	Workers int    `yaml:"workers"`
}

// FileResult describes what LoadFile consumed.
type FileResult struct {
	Count   int      // Tasks enqueued
	Offset  int64    // Bytes consumed, where follow mode resumes
	Options *Options // Front matter, nil when the file has none
}

// Load reads task lines from r and enqueues one task per non-blank,
// non-comment line. Returns the number of tasks enqueued.
func Load(src *queue.Source[string], r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := src.Enqueue(line); err != nil {
			return count, fmt.Errorf("enqueuing task: %w", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("reading tasks: %w", err)
	}
	return count, nil
}

// LoadFile reads the task file at path into src. The returned offset is
// the size of the file in bytes so a follower can resume where the
// initial load stopped.
func LoadFile(src *queue.Source[string], path string) (FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("reading task file: %w", err)
	}

	body, opts, err := splitFrontMatter(data)
	if err != nil {
		return FileResult{}, fmt.Errorf("task file %s: %w", path, err)
	}

	count, err := Load(src, bytes.NewReader(body))
	if err != nil {
		return FileResult{}, err
	}

	return FileResult{Count: count, Offset: int64(len(data)), Options: opts}, nil
}

// FromArgs enqueues each argument as one task, skipping blanks.
func FromArgs(src *queue.Source[string], args []string) (int, error) {
	count := 0
	for _, arg := range args {
		task := strings.TrimSpace(arg)
		if task == "" {
			continue
		}
		if err := src.Enqueue(task); err != nil {
			return count, fmt.Errorf("enqueuing task: %w", err)
		}
		count++
	}
	return count, nil
}

// splitFrontMatter strips an optional front matter block from data. The
// block starts with a `---` line at the very top of the file and runs to
// the next `---` line. Returns the body that follows the block.
func splitFrontMatter(data []byte) ([]byte, *Options, error) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines) == 0 || strings.TrimSpace(string(lines[0])) != "---" {
		return data, nil, nil
	}

	blockLen := 0
	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(string(lines[i])) == "---" {
			closing = i
			break
		}
		blockLen += len(lines[i])
	}
	if closing < 0 {
		return nil, nil, errors.New("front matter block not closed with ---")
	}

	headerLen := len(lines[0])
	block := data[headerLen : headerLen+blockLen]

	var opts Options
	if err := yaml.Unmarshal(block, &opts); err != nil {
		return nil, nil, fmt.Errorf("parsing front matter: %w", err)
	}

	bodyStart := headerLen + blockLen + len(lines[closing])
	return data[bodyStart:], &opts, nil
}
