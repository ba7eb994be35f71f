package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (ffmpeg logs)
// so a capture process that dies does not take its diagnostics with it.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// NewSafeCommand initializes a command bound to ctx and attaches a buffer to its Stderr pipe.
// It prepares the command for execution but does not start it.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// ShowError prints the boxed error report to w, including captured process
// logs when s is non-nil.
func ShowError(w io.Writer, context string, err error, s *SafeCommand) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 FACEFIT ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}

	if s != nil && s.Stderr.Len() > 0 {
		fmt.Fprintf(w, "\nCAPTURE LOGS:\n%s\n", s.Stderr.String())
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// Die is the unified exit strategy for facefit.
// It prints the error box to stderr and exits with status 1.
func Die(context string, err error, s *SafeCommand) {
	ShowError(os.Stderr, context, err, s)
	os.Exit(1)
}

// --- 2. Capture Stream ---

var (
	JpegSOI = []byte{0xFF, 0xD8} // Start of Image
	JpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// SplitJpeg is the custom splitter for bufio.Scanner
// It locates the Start Of Image (FFD8) and End Of Image (FFD9) markers to extract full JPEG frames.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		// Drop leading garbage but keep a possible half marker.
		if atEOF {
			return len(data), nil, nil
		}
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// CaptureInput describes where ffmpeg reads frames from.
type CaptureInput struct {
	Path   string // device, file or URL
	Format string // optional demuxer, e.g. "v4l2" or "avfoundation"
	FPS    int    // optional output rate; 0 keeps the source rate
}

// FFmpegArgs builds the argument list for a decoder pipe
// that writes MJPEG frames to stdout for ingestion.
func FFmpegArgs(in CaptureInput) []string {
	// -loglevel error keeps the stderr buffer small on long captures
	args := []string{"-hide_banner", "-loglevel", "error"}
	if in.Format != "" {
		args = append(args, "-f", in.Format)
	}
	args = append(args, "-i", in.Path)
	if in.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(in.FPS))
	}
	return append(args, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// NewFFmpegCmd creates the capture process for in.
func NewFFmpegCmd(ctx context.Context, in CaptureInput) *SafeCommand {
	return NewSafeCommand(ctx, "ffmpeg", FFmpegArgs(in)...)
}
