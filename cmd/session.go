package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/facefit/internal/camera"
	"github.com/andresmejia3/facefit/internal/presence"
	"github.com/andresmejia3/facefit/internal/session"
	"github.com/andresmejia3/facefit/internal/utils"
	"github.com/andresmejia3/facefit/internal/vision"
	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// SessionOptions holds the flags of the live session command.
type SessionOptions struct {
	Mode      string
	ProductID string
	Device    string
	Format    string
	FPS       int
	ImagePath string
	Timeout   string
	JSON      bool
}

var sessionOpts SessionOptions

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run one live detection and scan from the camera",
	Long: dedent.Dedent(`
		Waits for a face to hold steady inside the guide oval, pauses for the
		cue, runs the scan clock and prints the recommendation.

		Frames come from ffmpeg reading --device (a V4L2 device, a file or a
		stream URL). --image replays a still frame instead, which is handy
		for checking a setup without a camera.`),
	Run: func(cmd *cobra.Command, args []string) {
		runSession(cmd.Context(), sessionOpts)
	},
}

func init() {
	sessionCmd.Flags().StringVarP(&sessionOpts.Mode, "mode", "m", modeColour, "Analysis mode (colour, fit)")
	sessionCmd.Flags().StringVarP(&sessionOpts.ProductID, "product", "p", "", "Product id from the catalog")
	sessionCmd.Flags().StringVarP(&sessionOpts.Device, "device", "d", "/dev/video0", "Capture device, file or URL passed to ffmpeg")
	sessionCmd.Flags().StringVarP(&sessionOpts.Format, "format", "f", "v4l2", "ffmpeg input format (empty to let ffmpeg probe)")
	sessionCmd.Flags().IntVar(&sessionOpts.FPS, "fps", 15, "Capture frame rate")
	sessionCmd.Flags().StringVarP(&sessionOpts.ImagePath, "image", "i", "", "Replay a still frame instead of opening the camera")
	sessionCmd.Flags().StringVarP(&sessionOpts.Timeout, "timeout", "t", "0s", "Give up after this long (0 waits forever)")
	sessionCmd.Flags().BoolVar(&sessionOpts.JSON, "json", false, "Print the result as JSON")

	sessionCmd.MarkFlagRequired("product")
	rootCmd.AddCommand(sessionCmd)
}

// validateSessionFlags ensures all CLI arguments are valid before opening the camera.
func validateSessionFlags(opts *SessionOptions) error {
	if opts.Mode != modeColour && opts.Mode != modeFit {
		return fmt.Errorf("mode must be %q or %q, got %q", modeColour, modeFit, opts.Mode)
	}
	if opts.ProductID == "" {
		return errors.New("product id is required")
	}
	if opts.ImagePath == "" && opts.Device == "" {
		return errors.New("either --device or --image is required")
	}
	if opts.ImagePath != "" {
		if _, err := os.Stat(opts.ImagePath); err != nil {
			return fmt.Errorf("unable to access input image: %w", err)
		}
	}
	if opts.FPS < 1 {
		return fmt.Errorf("fps must be >= 1, got %d", opts.FPS)
	}
	d, err := time.ParseDuration(opts.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout format (use '30s', '2m'): %w", err)
	}
	if d < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", d)
	}
	return nil
}

func runSession(ctx context.Context, opts SessionOptions) {
	if err := validateSessionFlags(&opts); err != nil {
		utils.Die("Invalid flags", err, nil)
	}

	// 1. Catalog & product
	cat, err := loadCatalog(ctx, catalogPath, DB)
	if err != nil {
		utils.Die("Failed to load catalog", err, nil)
	}
	product, err := cat.Product(opts.ProductID)
	if err != nil {
		utils.Die("Unknown product", err, nil)
	}

	if d, _ := time.ParseDuration(opts.Timeout); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	// 2. Frame source
	src, logs, err := openSource(ctx, opts)
	if err != nil {
		utils.Die("Failed to open camera", err, logs)
	}
	defer src.Close()

	// 3. Run the presence machine with the kiosk timers
	ui := newSessionUI()
	hooks := session.Hooks{OnPhase: ui.phase, OnScanProgress: ui.progress}
	fmt.Fprintln(os.Stderr, "👀 Waiting for a face in the guide oval...")

	var report any
	switch opts.Mode {
	case modeColour:
		sample, runErr := session.NewColourRunner(src, hooks).Run(ctx)
		fallback := false
		if errors.Is(runErr, session.ErrCameraUnavailable) {
			log.Warn().Err(runErr).Msg("camera unavailable, using default skin tone")
			sample, fallback, runErr = vision.SkinSample{Avg: vision.DefaultSkinTone}, true, nil
		}
		if runErr != nil {
			utils.Die("Colour session failed", runErr, logs)
		}
		r, err := finishColour(ctx, product, sample, recorder())
		if err != nil {
			utils.Die("Colour match failed", err, nil)
		}
		r.Fallback = fallback
		report = r
	case modeFit:
		metrics, runErr := session.NewFitRunner(src, hooks).Run(ctx)
		if runErr != nil {
			utils.Die("Fit session failed", runErr, logs)
		}
		r, err := finishFit(ctx, product, metrics, recorder())
		if err != nil {
			utils.Die("Fit recommendation failed", err, nil)
		}
		report = r
	}

	ui.finish()
	if err := render(os.Stdout, report, opts.JSON); err != nil {
		utils.Die("Failed to write result", err, nil)
	}
}

// openSource returns the frame source for opts along with the capture
// process, whose stderr is shown when the session dies.
func openSource(ctx context.Context, opts SessionOptions) (camera.Source, *utils.SafeCommand, error) {
	if opts.ImagePath != "" {
		src, err := camera.LoadStill(opts.ImagePath)
		return src, nil, err
	}
	src, err := camera.OpenFFmpeg(ctx, utils.CaptureInput{Path: opts.Device, Format: opts.Format, FPS: opts.FPS})
	if err != nil {
		return nil, nil, err
	}
	return src, src.Logs(), nil
}

// sessionUI prints phase cues to stderr and animates the scan clock.
type sessionUI struct {
	bar *progressbar.ProgressBar
}

func newSessionUI() *sessionUI { return &sessionUI{} }

func (u *sessionUI) phase(p presence.Phase) {
	switch p {
	case presence.Detected:
		fmt.Fprintln(os.Stderr, "🙂 Face detected, hold still...")
	case presence.Scanning:
		fmt.Fprintln(os.Stderr, "🔍 Scanning")
	case presence.Result:
		u.finish()
		fmt.Fprintln(os.Stderr, "✅ Scan complete.")
	}
}

func (u *sessionUI) progress(elapsed, total time.Duration) {
	if u.bar == nil {
		u.bar = progressbar.NewOptions(int(total.Milliseconds()),
			progressbar.OptionSetDescription("   hold still"),
			progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
			progressbar.OptionClearOnFinish(),
		)
	}
	u.bar.Set(int(elapsed.Milliseconds()))
}

func (u *sessionUI) finish() {
	if u.bar != nil {
		u.bar.Finish()
		u.bar = nil
	}
}
