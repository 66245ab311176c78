// Package video provides video file capture using GoCV (OpenCV), feeding the
// frame reader that publishes raw frames for the external detector.
package video

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNotOpen is returned when reading from a source that is not open.
var ErrNotOpen = errors.New("video source is not open")

// ErrEndOfStream is returned when the source has no more frames.
var ErrEndOfStream = errors.New("end of video stream")

// Source defines the interface for frame sources.
type Source interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	FPS() float64
	TotalFrames() int
	IsOpen() bool
}

// fileSource reads frames from a video file using GoCV.
type fileSource struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewFileSource creates a Source reading from the video file at path.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

// Open opens the video file for reading.
func (s *fileSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.path)
	if err != nil {
		return err
	}

	s.capture = capture
	s.running = true
	return nil
}

// Close closes the video file and releases resources.
func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false
	return err
}

// ReadFrame reads the next frame. The caller is responsible for closing the
// returned Mat. Returns ErrEndOfStream once the file is exhausted.
func (s *fileSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrEndOfStream
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEndOfStream
	}

	return &mat, nil
}

// FPS returns the video's native frame rate.
func (s *fileSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return 0
	}
	return s.capture.Get(gocv.VideoCaptureFPS)
}

// TotalFrames returns the number of frames in the file, or 0 when unknown.
func (s *fileSource) TotalFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return 0
	}
	return int(s.capture.Get(gocv.VideoCaptureFrameCount))
}

// IsOpen returns true if the source is currently open.
func (s *fileSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
