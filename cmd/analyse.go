package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/andresmejia3/facefit/internal/api"
	"github.com/andresmejia3/facefit/internal/camera"
	"github.com/andresmejia3/facefit/internal/catalog"
	"github.com/andresmejia3/facefit/internal/presence"
	"github.com/andresmejia3/facefit/internal/session"
	"github.com/andresmejia3/facefit/internal/store"
	"github.com/andresmejia3/facefit/internal/utils"
	"github.com/andresmejia3/facefit/internal/vision"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errNoFace = errors.New("no face found in the guide oval")

// AnalyseOptions holds the flags of the still-image commands.
type AnalyseOptions struct {
	ImagePath string
	ProductID string
	JSON      bool
}

var (
	colourOpts AnalyseOptions
	fitOpts    AnalyseOptions
)

var colourCmd = &cobra.Command{
	Use:   "colour",
	Short: "Match a product's colourways to the skin tone in a still image",
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyse(cmd.Context(), modeColour, colourOpts)
	},
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Classify face shape and recommend a frame size from a still image",
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyse(cmd.Context(), modeFit, fitOpts)
	},
}

const (
	modeColour = store.ModeColour
	modeFit    = store.ModeFit
)

func init() {
	for _, c := range []struct {
		cmd  *cobra.Command
		opts *AnalyseOptions
	}{{colourCmd, &colourOpts}, {fitCmd, &fitOpts}} {
		c.cmd.Flags().StringVarP(&c.opts.ImagePath, "image", "i", "", "Path to a JPEG, PNG or WebP frame")
		c.cmd.Flags().StringVarP(&c.opts.ProductID, "product", "p", "", "Product id from the catalog")
		c.cmd.Flags().BoolVar(&c.opts.JSON, "json", false, "Print the result as JSON")
		c.cmd.MarkFlagRequired("image")
		c.cmd.MarkFlagRequired("product")
		rootCmd.AddCommand(c.cmd)
	}
}

func runAnalyse(ctx context.Context, mode string, opts AnalyseOptions) {
	if err := validateAnalyseFlags(&opts); err != nil {
		utils.Die("Invalid flags", err, nil)
	}

	cat, err := loadCatalog(ctx, catalogPath, DB)
	if err != nil {
		utils.Die("Failed to load catalog", err, nil)
	}

	var out any
	switch mode {
	case modeColour:
		out, err = analyseColour(ctx, cat, recorder(), opts)
	case modeFit:
		out, err = analyseFit(ctx, cat, recorder(), opts)
	}
	if err != nil {
		utils.Die(fmt.Sprintf("%s analysis failed", mode), err, nil)
	}

	if err := render(os.Stdout, out, opts.JSON); err != nil {
		utils.Die("Failed to write result", err, nil)
	}
}

// validateAnalyseFlags ensures the input frame exists before any decoding.
func validateAnalyseFlags(opts *AnalyseOptions) error {
	info, err := os.Stat(opts.ImagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input image does not exist: %w", err)
		}
		return fmt.Errorf("unable to access input image: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory, expected an image file", opts.ImagePath)
	}
	if opts.ProductID == "" {
		return errors.New("product id is required")
	}
	return nil
}

// ColourReport is what the colour commands print.
type ColourReport struct {
	api.ColourResponse
	Product  catalog.Product `json:"-"`
	Fallback bool            `json:"fallback,omitempty"`
}

// FitReport is what the fit commands print.
type FitReport struct {
	api.FitResponse
	Product catalog.Product `json:"-"`
}

func readStill(ctx context.Context, path string) (image.Image, error) {
	src, err := camera.LoadStill(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.Frame(ctx)
}

func analyseColour(ctx context.Context, cat *catalog.Catalog, rec api.Recorder, opts AnalyseOptions) (ColourReport, error) {
	p, err := cat.Product(opts.ProductID)
	if err != nil {
		return ColourReport{}, err
	}
	frame, err := readStill(ctx, opts.ImagePath)
	if err != nil {
		return ColourReport{}, err
	}

	sample, obs, ok := session.ColourMeasure(frame)
	if !ok || !obs.Hit(presence.ColourHitRatio) {
		return ColourReport{}, fmt.Errorf("%w (skin ratio %.2f)", errNoFace, obs.Ratio)
	}
	return finishColour(ctx, p, sample, rec)
}

func analyseFit(ctx context.Context, cat *catalog.Catalog, rec api.Recorder, opts AnalyseOptions) (FitReport, error) {
	p, err := cat.Product(opts.ProductID)
	if err != nil {
		return FitReport{}, err
	}
	frame, err := readStill(ctx, opts.ImagePath)
	if err != nil {
		return FitReport{}, err
	}

	metrics, obs, ok := session.FitMeasure(frame)
	if !ok || !obs.Hit(presence.FitHitRatio) {
		return FitReport{}, fmt.Errorf("%w (skin ratio %.2f)", errNoFace, obs.Ratio)
	}
	return finishFit(ctx, p, metrics, rec)
}

// finishColour scores the product's colourways against sample and logs the
// result when rec is set.
func finishColour(ctx context.Context, p catalog.Product, sample vision.SkinSample, rec api.Recorder) (ColourReport, error) {
	result, ok := vision.Recommend(sample.Avg, p.Colourways)
	if !ok {
		return ColourReport{}, fmt.Errorf("product %q has no colourways", p.ID)
	}
	r := ColourReport{
		ColourResponse: api.ColourResponse{Result: result, Sample: sample},
		Product:        p,
	}
	if rec != nil {
		id, err := rec.RecordColour(ctx, p.ID, result)
		if err != nil {
			return ColourReport{}, fmt.Errorf("record colour result: %w", err)
		}
		r.RecommendationID = id
	}
	log.Debug().Str("product", p.ID).Str("top", result.TopMatch.ID).Msg("colour match")
	return r, nil
}

func finishFit(ctx context.Context, p catalog.Product, m vision.FaceMetrics, rec api.Recorder) (FitReport, error) {
	fit := vision.RecommendFit(p.Name, m, p.Sizes)
	r := FitReport{
		FitResponse: api.FitResponse{Recommendation: fit, Metrics: m},
		Product:     p,
	}
	if rec != nil {
		id, err := rec.RecordFit(ctx, p.ID, fit, m)
		if err != nil {
			return FitReport{}, fmt.Errorf("record fit result: %w", err)
		}
		r.RecommendationID = id
	}
	log.Debug().Str("product", p.ID).Stringer("shape", fit.Shape).Str("size", fit.SizeKey).Msg("fit recommendation")
	return r, nil
}

// render prints a report either as indented JSON or as the kiosk summary.
func render(w io.Writer, report any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	switch r := report.(type) {
	case ColourReport:
		res := r.Result
		if r.Fallback {
			fmt.Fprintln(w, "📷 Camera unavailable, using the default skin tone estimate.")
		}
		fmt.Fprintf(w, "🎨 %s\n", r.Product.Name)
		fmt.Fprintf(w, "   Skin tone:    %s %s (%s)\n", res.Depth, res.Undertone, res.Skin.Hex())
		fmt.Fprintf(w, "   Top match:    %s (%s)\n", res.TopMatch.Name, res.TopMatch.Hex)
		fmt.Fprintf(w, "   Alternative:  %s (%s)\n", res.Alternative.Name, res.Alternative.Hex)
		fmt.Fprintf(w, "\n%s\n", res.ReasoningText)
	case FitReport:
		fit := r.Recommendation
		fmt.Fprintf(w, "📐 %s\n", r.Product.Name)
		fmt.Fprintf(w, "   Face shape:   %s (%s)\n", fit.Shape, fit.Verdict)
		if fit.SizeKey != "" {
			fmt.Fprintf(w, "   Size:         %s (%d-%d-%d)\n", fit.SizeKey, fit.Size.LensWidth, fit.Size.Bridge, fit.Size.TempleLength)
		}
		fmt.Fprintf(w, "\n%s\n", fit.Explanation)
	default:
		return fmt.Errorf("unknown report type %T", report)
	}
	return nil
}
