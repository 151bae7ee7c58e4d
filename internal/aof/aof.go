// Package aof provides append-only persistence. Every mutating command is
// written to the log as a protocol request frame before it is applied in
// memory, and replaying the frames against an empty store rebuilds the
// state after a restart.
package aof

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dhrubo326/imds/internal/protocol"
)

// SyncPolicy controls when appended records are fsynced to disk.
type SyncPolicy int

const (
	// SyncAlways fsyncs after every append.
	SyncAlways SyncPolicy = iota
	// SyncEverySecond fsyncs from a background ticker once per second.
	SyncEverySecond
	// SyncNever leaves flushing to the operating system.
	SyncNever
)

// ParseSyncPolicy maps a config token to a SyncPolicy.
func ParseSyncPolicy(s string) (SyncPolicy, error) {
	switch s {
	case "always":
		return SyncAlways, nil
	case "everysec":
		return SyncEverySecond, nil
	case "no":
		return SyncNever, nil
	default:
		return 0, fmt.Errorf("unknown sync policy %q (want always, everysec or no)", s)
	}
}

// Log is a file-backed append-only command journal.
type Log struct {
	path   string
	file   *os.File
	policy SyncPolicy

	mu        sync.Mutex
	appends   int64
	bytes     int64
	stopCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Open opens (or creates) the log at path for appending. Replay must run
// before the first Append so the truncated-tail repair sees the file as
// the crash left it.
func Open(path string, policy SyncPolicy) (*Log, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	l := &Log{
		path:   path,
		file:   file,
		policy: policy,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	if policy == SyncEverySecond {
		go l.flushLoop()
	} else {
		close(l.done)
	}
	return l, nil
}

// Append writes one command as a request frame. With SyncAlways the frame
// is durable before Append returns.
func (l *Log) Append(args []string) error {
	frame := protocol.EncodeRequest(args)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(frame); err != nil {
		return err
	}
	l.appends++
	l.bytes += int64(len(frame))

	if l.policy == SyncAlways {
		return l.file.Sync()
	}
	return nil
}

// Sync flushes buffered writes to stable storage.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Sync()
}

// Stats returns the number of records and bytes appended since Open.
func (l *Log) Stats() (appends, bytes int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appends, l.bytes
}

// Close stops the flush loop, syncs and closes the file.
func (l *Log) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stopCh)
		<-l.done
		if syncErr := l.file.Sync(); syncErr != nil {
			err = syncErr
		}
		if closeErr := l.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}

func (l *Log) flushLoop() {
	defer close(l.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			if err := l.file.Sync(); err != nil {
				log.Printf("aof: background sync failed: %v", err)
			}
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}

// Replay decodes frames from the start of the file and hands each record
// to fn in append order. A truncated trailing record, the footprint of a
// crash mid-append, stops the replay cleanly and the file is cut back to
// the last complete frame so the next Append starts on a clean boundary.
// Returns the number of records applied.
func (l *Log) Replay(fn func(args []string) error) (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}

	pos := 0
	count := 0
	for pos < len(data) {
		args, consumed, err := protocol.DecodeRequest(data[pos:])
		if err != nil {
			// Corrupt frame header: nothing after it can be trusted.
			log.Printf("aof: corrupt record at offset %d: %v", pos, err)
			break
		}
		if args == nil {
			// Partial trailing record from an interrupted append.
			log.Printf("aof: truncated record at offset %d, discarding %d bytes", pos, len(data)-pos)
			break
		}
		if err := fn(args); err != nil {
			return count, fmt.Errorf("replay record %d: %w", count, err)
		}
		pos += consumed
		count++
	}

	if pos < len(data) {
		if err := os.Truncate(l.path, int64(pos)); err != nil {
			return count, fmt.Errorf("truncate log to offset %d: %w", pos, err)
		}
	}
	return count, nil
}
