package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"sync"

	"github.com/andresmejia3/facefit/internal/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const megabyte = 1024 * 1024

// ErrStreamEnded is returned by FFmpegSource once the capture process has
// stopped producing frames.
var ErrStreamEnded = errors.New("camera: capture stream ended")

// FFmpegSource decodes an MJPEG stream produced by ffmpeg and keeps only the
// most recent frame. Polls never wait for the camera.
type FFmpegSource struct {
	cmd    *utils.SafeCommand
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	latest image.Image
	frames int
	err    error
}

// OpenFFmpeg starts ffmpeg on in and begins decoding frames in the background.
func OpenFFmpeg(ctx context.Context, in utils.CaptureInput) (*FFmpegSource, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := utils.NewFFmpegCmd(ctx, in)
	out, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s := newFFmpegSource(cancel)
	s.cmd = cmd
	s.start(ctx, out, cmd.Wait)
	log.Info().Str("input", in.Path).Str("format", in.Format).Msg("camera capture started")
	return s, nil
}

func newFFmpegSource(cancel context.CancelFunc) *FFmpegSource {
	return &FFmpegSource{cancel: cancel, done: make(chan struct{})}
}

// start runs the splitter and the decoder. wait, when set, reaps the
// producing process after its output is drained.
func (s *FFmpegSource) start(ctx context.Context, r io.Reader, wait func() error) {
	g, gctx := errgroup.WithContext(ctx)
	jpegs := make(chan []byte, 1)

	g.Go(func() error {
		defer close(jpegs)
		err := splitFrames(gctx, r, jpegs)
		if wait != nil {
			if werr := wait(); err == nil {
				err = werr
			}
		}
		return err
	})
	g.Go(func() error {
		s.decodeFrames(jpegs)
		return nil
	})

	go func() {
		err := g.Wait()
		if err == nil {
			err = io.EOF
		}
		s.mu.Lock()
		s.err = fmt.Errorf("%w: %w", ErrStreamEnded, err)
		s.mu.Unlock()
		close(s.done)
	}()
}

// splitFrames cuts r into JPEG frames. A frame the decoder has not picked up
// yet is replaced by the newer one.
func splitFrames(ctx context.Context, r io.Reader, out chan []byte) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := bytes.Clone(scanner.Bytes())
		select {
		case out <- frame:
		default:
			select {
			case <-out:
			default:
			}
			out <- frame
		}
	}
	return scanner.Err()
}

func (s *FFmpegSource) decodeFrames(jpegs <-chan []byte) {
	for data := range jpegs {
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			log.Debug().Err(err).Int("bytes", len(data)).Msg("dropping undecodable frame")
			continue
		}
		s.mu.Lock()
		s.latest = img
		s.frames++
		s.mu.Unlock()
	}
}

// Frame returns the most recent decoded frame, ErrNoFrame before the first
// one arrives and ErrStreamEnded after capture stops.
func (s *FFmpegSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.latest == nil {
		return nil, ErrNoFrame
	}
	return s.latest, nil
}

// Frames is the number of frames decoded so far.
func (s *FFmpegSource) Frames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Logs returns whatever ffmpeg wrote to stderr.
func (s *FFmpegSource) Logs() *utils.SafeCommand { return s.cmd }

// Close stops the capture and waits for the background goroutines.
func (s *FFmpegSource) Close() error {
	s.cancel()
	<-s.done
	return nil
}
