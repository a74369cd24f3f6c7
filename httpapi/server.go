// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package httpapi exposes the distillation library over REST. Submissions
// return a queued receipt immediately; progress is observed by polling the
// record endpoints.
package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/poiesic/distillery"
	"github.com/poiesic/distillery/ingest"
	"github.com/poiesic/distillery/storage"
)

// maxUploadBytes bounds uploaded file submissions.
const maxUploadBytes = 10 * 1024 * 1024

// Server wires the library into a fiber application.
type Server struct {
	lib    *distillery.Library
	logger *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets a custom logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates the REST surface over a library.
func NewServer(lib *distillery.Library, opts ...ServerOption) *Server {
	s := &Server{
		lib:    lib,
		logger: slog.Default().With("component", "httpapi"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// App builds the fiber application with all routes and middleware mounted.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE",
	}))

	api := app.Group("/api")
	api.Post("/distillations/url", s.submitURL)
	api.Post("/distillations/text", s.submitText)
	api.Post("/distillations/file", s.submitFile)
	api.Get("/distillations", s.list)
	api.Get("/distillations/:id", s.get)
	api.Delete("/distillations/:id", s.remove)
	api.Post("/distillations/:id/retry", s.retry)
	api.Post("/distillations/:id/stop", s.stop)

	return app
}

// fail maps pipeline errors onto HTTP statuses. Unknown errors become 500s
// with their message passed through.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ingest.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ingest.ErrNothingToRetry),
		errors.Is(err, ingest.ErrNotRetryable):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
