package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/mineral-api/internal/capture"
	"github.com/Brownie44l1/mineral-api/internal/capture/camera"
	"github.com/Brownie44l1/mineral-api/internal/config"
	"github.com/Brownie44l1/mineral-api/internal/handlers"
	"github.com/Brownie44l1/mineral-api/internal/hub"
	"github.com/Brownie44l1/mineral-api/internal/log"
	"github.com/Brownie44l1/mineral-api/internal/model"
	"github.com/Brownie44l1/mineral-api/internal/pipeline"
)

var noCamera = flag.Bool("no-camera", false, "Serve uploads only, without opening a camera")

func main() {
	flag.Parse()

	root, err := config.ProjectRoot()
	if err != nil {
		logrus.Fatal(err)
	}
	cfg, err := config.FromEnv(root)
	if err != nil {
		logrus.Fatalf("invalid environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	logger.WithField("model", cfg.ModelPath).Info("loading model")
	session, err := model.NewSession(cfg.ModelPath, cfg.MetadataPath, cfg.ORTLibPath)
	if err != nil {
		logger.Fatalf("failed to initialize model session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := hub.New("results", log.Component("hub"))
	go results.Run(ctx)

	mode := pipeline.Paused
	if cfg.RealTime {
		mode = pipeline.RealTime
	}
	p := pipeline.New(session,
		pipeline.Multi{
			handlers.HubSink{Hub: results, Log: log.Component("hub")},
			pipeline.LogSink{Log: log.Component("result")},
		},
		pipeline.WithInferenceTimeout(cfg.InferenceTimeout),
		pipeline.WithLogger(log.Component("pipeline")),
		pipeline.WithMode(mode),
	)

	var (
		grabber handlers.Grabber
		cam     *camera.Camera
		wait    = func() {}
	)
	if !*noCamera {
		cam, err = camera.Open(cfg.CameraDevice, log.Component("camera"))
		if err != nil {
			logger.WithError(err).Warn("camera unavailable, serving uploads only")
			cam = nil
		} else {
			grabber = handlers.GrabberFunc(func(ctx context.Context) (pipeline.Frame, error) {
				f, err := cam.Grab(ctx)
				if err != nil {
					return nil, err
				}
				return f, nil
			})
			wait = capture.StartContinuous(ctx, p, cam, log.Component("pipeline"))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               "mineral-api",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	handlers.NewHandler(p, grabber, results, log.Component("http")).Register(app)

	go func() {
		logger.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"classes": session.Metadata.Classes,
			"mode":    p.Mode(),
			"camera":  grabber != nil,
		}).Info("server starting")
		logger.Infof("upload test: curl -X POST -F \"image=@specimen.jpg\" http://localhost:%s/predict/image", cfg.Port)

		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}

	// Stop the camera and the worker, then wait out any model call still
	// running before the session is destroyed.
	cancel()
	wait()
	p.Close()

	if cam != nil {
		cam.Close()
	}
	session.Close()
	if err := model.Shutdown(); err != nil {
		logger.WithError(err).Warn("onnxruntime shutdown")
	}
}
