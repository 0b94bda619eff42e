package tasks

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zjrosen/scatter/internal/log"
	"github.com/zjrosen/scatter/internal/queue"
	"github.com/zjrosen/scatter/internal/watcher"
)

// Follower tails a task file and enqueues lines appended after the
// initial load. The source is left unsealed while a follower runs, so
// workers idle on an empty source instead of draining.
type Follower struct {
	src    *queue.Source[string]
	path   string
	w      *watcher.Watcher
	offset int64
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewFollower creates a follower that resumes reading path at offset.
func NewFollower(src *queue.Source[string], path string, offset int64) (*Follower, error) {
	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("creating task watcher: %w", err)
	}

	return &Follower{
		src:    src,
		path:   path,
		w:      w,
		offset: offset,
		done:   make(chan struct{}),
	}, nil
}

// Start begins watching the task file for appended lines.
func (f *Follower) Start() error {
	onChange, err := f.w.Start()
	if err != nil {
		return fmt.Errorf("starting task watcher: %w", err)
	}

	log.Info(log.CatTask, "Following task file", "path", f.path, "offset", f.offset)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case _, ok := <-onChange:
				if !ok {
					return
				}
				f.consume()
			case <-f.done:
				return
			}
		}
	}()

	return nil
}

// Stop halts the follower and its watcher.
func (f *Follower) Stop() error {
	close(f.done)
	err := f.w.Stop()
	f.wg.Wait()
	return err
}

// consume enqueues the complete lines appended since the last read.
func (f *Follower) consume() {
	file, err := os.Open(f.path)
	if err != nil {
		log.Warn(log.CatTask, "Task file unreadable", "path", f.path, "error", err)
		return
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		log.Warn(log.CatTask, "Task file stat failed", "path", f.path, "error", err)
		return
	}
	if info.Size() < f.offset {
		// Truncated or replaced, start over from the top
		log.Info(log.CatTask, "Task file shrank, reloading", "path", f.path)
		f.offset = 0
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		log.Warn(log.CatTask, "Task file seek failed", "path", f.path, "error", err)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		log.Warn(log.CatTask, "Task file read failed", "path", f.path, "error", err)
		return
	}

	// Only complete lines are consumed so a half-written task is picked
	// up whole by a later notification
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return
	}
	chunk := data[:end+1]

	body := chunk
	if f.offset == 0 {
		// A replaced file may start with a fresh front matter block. Run
		// options are fixed at startup, so only its task lines matter.
		stripped, _, fmErr := splitFrontMatter(chunk)
		if fmErr != nil {
			log.Warn(log.CatTask, "Front matter ignored", "path", f.path, "error", fmErr)
		} else {
			body = stripped
		}
	}

	count, err := Load(f.src, bytes.NewReader(body))
	if err != nil {
		log.Warn(log.CatTask, "Appending tasks failed", "path", f.path, "error", err)
		return
	}
	f.offset += int64(len(chunk))
	if count > 0 {
		log.Info(log.CatTask, "Tasks appended", "path", f.path, "count", count)
	}
}
