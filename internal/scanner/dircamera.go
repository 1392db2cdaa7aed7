package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/franckalain/eatsmarty/internal/decoder"
)

// DirCamera replays still images from a directory as a video stream. It is
// used by the command-line client and for offline testing.
type DirCamera struct {
	Dir      string
	Loop     bool
	Interval time.Duration
}

// ListVideoInputDevices reports a single device when the directory exists.
func (c *DirCamera) ListVideoInputDevices(context.Context) ([]Device, error) {
	info, err := os.Stat(c.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}
	return []Device{{ID: c.Dir, Label: "directory", Facing: FacingEnvironment}}, nil
}

// Open lists the image files in the directory in name order.
func (c *DirCamera) Open(context.Context, Constraints) (Stream, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(c.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image frames in %s", c.Dir)
	}
	sort.Strings(files)

	return &dirStream{files: files, loop: c.Loop, interval: c.Interval}, nil
}

type dirStream struct {
	mu       sync.Mutex
	files    []string
	next     int
	seq      uint64
	loop     bool
	interval time.Duration
	closed   bool
}

func (s *dirStream) Next(ctx context.Context) (decoder.Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return decoder.Frame{}, ErrStreamClosed
	}
	if s.next >= len(s.files) {
		if !s.loop {
			s.mu.Unlock()
			return decoder.Frame{}, fmt.Errorf("end of frames: %w", io.EOF)
		}
		s.next = 0
	}
	path := s.files[s.next]
	s.next++
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if s.interval > 0 && seq > 1 {
		t := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return decoder.Frame{}, ctx.Err()
		case <-t.C:
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return decoder.Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "jpg" {
		format = "jpeg"
	}
	return decoder.Frame{Data: data, Format: format, Seq: seq}, nil
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
