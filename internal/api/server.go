// Package api exposes the analysis pipeline to the kiosk UI over HTTP. Each
// request carries one encoded frame; the presence gate is applied to that
// single frame.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/andresmejia3/facefit/internal/camera"
	"github.com/andresmejia3/facefit/internal/catalog"
	"github.com/andresmejia3/facefit/internal/handoff"
	"github.com/andresmejia3/facefit/internal/presence"
	"github.com/andresmejia3/facefit/internal/session"
	"github.com/andresmejia3/facefit/internal/vision"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const (
	ErrUnknownProduct = "error:unknown-product"
	ErrBadFrame       = "error:undecodable-frame"
	ErrFrameTooLarge  = "error:frame-too-large"
	ErrNoFace         = "error:no-face"
	ErrNoColourways   = "error:no-colourways"
	ErrNoResult       = "error:no-result"
	ErrorInternal     = "error:internal"
)

// KioskHeader names the kiosk a frame came from. Results are handed off
// under it when present.
const KioskHeader = "X-Kiosk-ID"

const defaultMaxFrameBytes = 10 << 20

const (
	modeColour = "colour"
	modeFit    = "fit"
)

// Recorder persists structured results. *store.Store satisfies it.
type Recorder interface {
	RecordColour(ctx context.Context, productID string, res vision.RecommendationResult) (int64, error)
	RecordFit(ctx context.Context, productID string, rec vision.FitRecommendation, m vision.FaceMetrics) (int64, error)
}

type ServerConfig struct {
	Host string
	Port int
}

// ServerState is shared by all handlers. Recorder and Handoff are optional.
// MaxFrameBytes caps the encoded body and MaxFramePixels the decoded frame;
// zero means the package defaults.
type ServerState struct {
	Catalog        *catalog.Catalog
	Recorder       Recorder
	Handoff        handoff.Store
	MaxFrameBytes  int64
	MaxFramePixels int
}

type Server struct {
	server *http.Server
}

func NewServer(state *ServerState, config ServerConfig) *Server {
	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	return &Server{server: &http.Server{
		Handler:      NewRouter(state),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}}
}

func (s *Server) Addr() string { return s.server.Addr }

// ListenAndServe blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")
	return s.server.Shutdown(ctx)
}

func NewRouter(state *ServerState) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}).Methods(http.MethodGet)

	router.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, state.Catalog.Products)
	}).Methods(http.MethodGet)

	router.HandleFunc("/api/products/{id}/colour", func(w http.ResponseWriter, r *http.Request) {
		handleColour(state, w, r)
	}).Methods(http.MethodPost)

	router.HandleFunc("/api/products/{id}/fit", func(w http.ResponseWriter, r *http.Request) {
		handleFit(state, w, r)
	}).Methods(http.MethodPost)

	if state.Handoff != nil {
		router.HandleFunc("/api/kiosks/{kiosk}/latest", func(w http.ResponseWriter, r *http.Request) {
			handleLatest(state, w, r)
		}).Methods(http.MethodGet)
	}

	return router
}

type ColourResponse struct {
	Result           vision.RecommendationResult `json:"result"`
	Sample           vision.SkinSample           `json:"sample"`
	RecommendationID int64                       `json:"recommendation_id,omitempty"`
}

type FitResponse struct {
	Recommendation   vision.FitRecommendation `json:"recommendation"`
	Metrics          vision.FaceMetrics       `json:"metrics"`
	RecommendationID int64                    `json:"recommendation_id,omitempty"`
}

func handleColour(state *ServerState, w http.ResponseWriter, r *http.Request) {
	product, frame, ok := readRequest(state, w, r)
	if !ok {
		return
	}

	sample, obs, ok := session.ColourMeasure(frame)
	if !ok || !obs.Hit(presence.ColourHitRatio) {
		respondWithErr(w, http.StatusUnprocessableEntity, ErrNoFace, "no face in guide region", nil)
		return
	}

	result, ok := vision.Recommend(sample.Avg, product.Colourways)
	if !ok {
		respondWithErr(w, http.StatusUnprocessableEntity, ErrNoColourways, "product has no colourways", nil)
		return
	}

	resp := ColourResponse{Result: result, Sample: sample}
	if state.Recorder != nil {
		id, err := state.Recorder.RecordColour(r.Context(), product.ID, result)
		if err != nil {
			respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to record colour result", err)
			return
		}
		resp.RecommendationID = id
	}
	publish(state, r, modeColour, product.ID, resp)

	log.Info().Str("product", product.ID).Str("top", result.TopMatch.ID).
		Stringer("depth", result.Depth).Stringer("undertone", result.Undertone).Msg("colour match")
	writeJSON(w, http.StatusOK, resp)
}

func handleFit(state *ServerState, w http.ResponseWriter, r *http.Request) {
	product, frame, ok := readRequest(state, w, r)
	if !ok {
		return
	}

	metrics, obs, ok := session.FitMeasure(frame)
	if !ok || !obs.Hit(presence.FitHitRatio) {
		respondWithErr(w, http.StatusUnprocessableEntity, ErrNoFace, "no face in guide region", nil)
		return
	}

	rec := vision.RecommendFit(product.Name, metrics, product.Sizes)
	resp := FitResponse{Recommendation: rec, Metrics: metrics}
	if state.Recorder != nil {
		id, err := state.Recorder.RecordFit(r.Context(), product.ID, rec, metrics)
		if err != nil {
			respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to record fit result", err)
			return
		}
		resp.RecommendationID = id
	}
	publish(state, r, modeFit, product.ID, resp)

	log.Info().Str("product", product.ID).Stringer("shape", rec.Shape).Str("size", rec.SizeKey).Msg("fit recommendation")
	writeJSON(w, http.StatusOK, resp)
}

func handleLatest(state *ServerState, w http.ResponseWriter, r *http.Request) {
	kiosk := mux.Vars(r)["kiosk"]
	e, err := state.Handoff.Latest(r.Context(), kiosk)
	if errors.Is(err, handoff.ErrNotFound) {
		respondWithErr(w, http.StatusNotFound, ErrNoResult, "no result for kiosk", nil)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to read handoff", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// readRequest resolves the product and decodes the frame, writing the error
// response itself when either fails.
func readRequest(state *ServerState, w http.ResponseWriter, r *http.Request) (catalog.Product, image.Image, bool) {
	defer closeRequestBody(r)

	product, err := state.Catalog.Product(mux.Vars(r)["id"])
	if err != nil {
		respondWithErr(w, http.StatusNotFound, ErrUnknownProduct, "unknown product", err)
		return catalog.Product{}, nil, false
	}

	limit := state.MaxFrameBytes
	if limit <= 0 {
		limit = defaultMaxFrameBytes
	}
	maxPixels := state.MaxFramePixels
	if maxPixels <= 0 {
		maxPixels = camera.DefaultMaxPixels
	}
	img, err := camera.DecodeLimited(io.LimitReader(r.Body, limit), maxPixels)
	if errors.Is(err, camera.ErrFrameTooLarge) {
		respondWithErr(w, http.StatusRequestEntityTooLarge, ErrFrameTooLarge, "frame too large", err)
		return catalog.Product{}, nil, false
	}
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, ErrBadFrame, "failed to decode frame", err)
		return catalog.Product{}, nil, false
	}
	return product, img, true
}

// publish hands the response off for the narration layer. Failures are
// logged and do not fail the request.
func publish(state *ServerState, r *http.Request, mode, productID string, v any) {
	kiosk := r.Header.Get(KioskHeader)
	if state.Handoff == nil || kiosk == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode handoff")
		return
	}
	e := handoff.Entry{Mode: mode, ProductID: productID, Result: data, At: time.Now().UTC()}
	if err := state.Handoff.Put(r.Context(), kiosk, e); err != nil {
		log.Warn().Err(err).Str("kiosk", kiosk).Msg("failed to publish handoff")
	}
}

// helpers ------------

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	ev := log.Warn()
	if code >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(e).Int("status_code", code).Str("response_body", responseBody).Msg(logMsg)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		log.Error().Err(err).Msg("failed to write body to http response")
	}
}

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close request body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to marshal response message", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Error().Err(err).Msg("failed to write body to http response")
	}
}
