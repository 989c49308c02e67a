// Package handlers exposes the classifier over HTTP: mode control, one-shot
// capture, image upload, and a websocket stream of delivered results.
package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/mineral-api/internal/capture"
	"github.com/Brownie44l1/mineral-api/internal/hub"
	"github.com/Brownie44l1/mineral-api/internal/model"
	"github.com/Brownie44l1/mineral-api/internal/pipeline"
	"github.com/Brownie44l1/mineral-api/internal/preprocess"
	"github.com/Brownie44l1/mineral-api/internal/scores"
)

// Grabber supplies a single frame for a one-shot capture.
type Grabber interface {
	Grab(ctx context.Context) (pipeline.Frame, error)
}

// GrabberFunc adapts a function to Grabber.
type GrabberFunc func(ctx context.Context) (pipeline.Frame, error)

// Grab calls f.
func (f GrabberFunc) Grab(ctx context.Context) (pipeline.Frame, error) { return f(ctx) }

type Handler struct {
	pipeline *pipeline.Pipeline
	camera   Grabber
	results  *hub.Hub
	log      logrus.FieldLogger
}

// NewHandler wires the routes' dependencies. camera may be nil when no
// device is attached; /api/capture then answers 503.
func NewHandler(p *pipeline.Pipeline, camera Grabber, results *hub.Hub, log logrus.FieldLogger) *Handler {
	return &Handler{
		pipeline: p,
		camera:   camera,
		results:  results,
		log:      log,
	}
}

// Register mounts all routes on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Post("/predict/image", h.PredictFromImage)

	api := app.Group("/api")
	api.Get("/mode", h.GetMode)
	api.Post("/mode", h.ToggleMode)
	api.Put("/mode", h.SetMode)
	api.Get("/stats", h.Stats)
	api.Post("/capture", h.Capture)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/results", websocket.New(func(c *websocket.Conn) {
		h.results.Serve(c)
	}))
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if h.pipeline.Halted() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "halted"})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *Handler) GetMode(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"mode": h.pipeline.Mode()})
}

// ToggleMode flips between paused and real-time.
func (h *Handler) ToggleMode(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"mode": h.pipeline.Toggle()})
}

type modeRequest struct {
	Mode pipeline.Mode `json:"mode"`
}

func (h *Handler) SetMode(c *fiber.Ctx) error {
	var req modeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body must be {\"mode\": \"paused\"|\"real-time\"}"})
	}
	h.pipeline.SetMode(req.Mode)
	return c.JSON(fiber.Map{"mode": h.pipeline.Mode()})
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	st := h.pipeline.Stats()
	return c.JSON(fiber.Map{
		"pipeline": st,
		"clients":  h.results.ClientCount(),
	})
}

// Capture grabs one camera frame and classifies it.
func (h *Handler) Capture(c *fiber.Ctx) error {
	if h.camera == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no camera attached"})
	}

	frame, err := h.camera.Grab(c.UserContext())
	if err != nil {
		h.log.WithError(err).Warn("photo capture failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "photo capture failed"})
	}

	return h.classify(c, frame)
}

// PredictFromImage classifies an uploaded image (multipart field "image").
func (h *Handler) PredictFromImage(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no image file provided, use 'image' as the form field name"})
	}

	file, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read upload"})
	}
	defer file.Close()

	frame, err := capture.Decode(file)
	if err != nil {
		h.log.WithError(err).WithField("file", header.Filename).Debug("rejected upload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid image, supported: JPEG, PNG, GIF, BMP, TIFF, WebP"})
	}

	h.log.WithFields(logrus.Fields{
		"file":   header.Filename,
		"size":   header.Size,
		"format": frame.Format,
	}).Debug("received upload")

	return h.classify(c, frame)
}

func (h *Handler) classify(c *fiber.Ctx, frame pipeline.Frame) error {
	res, err := h.pipeline.OneShot(c.UserContext(), frame)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, preprocess.ErrInvalidFrame):
		return fiber.StatusBadRequest
	case errors.Is(err, pipeline.ErrHalted), errors.Is(err, scores.ErrScoreShapeMismatch):
		return fiber.StatusInternalServerError
	case errors.Is(err, model.ErrEngineClosed):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, model.ErrInferenceFailure):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
