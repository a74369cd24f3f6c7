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


package httpapi

import (
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/ingest"
)

// distillationView is the wire shape of a record. elapsedTimeMs is derived
// at render time; it is never stored.
type distillationView struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	SourceType          string            `json:"sourceType"`
	SourceRef           string            `json:"sourceRef"`
	Status              string            `json:"status"`
	Content             string            `json:"content,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	StartTime           *time.Time        `json:"startTime,omitempty"`
	DistillingStartTime *time.Time        `json:"distillingStartTime,omitempty"`
	CompletedAt         *time.Time        `json:"completedAt,omitempty"`
	ElapsedTimeMs       int64             `json:"elapsedTimeMs"`
	WordCount           int               `json:"wordCount"`
	Error               *string           `json:"error"`
	ExtractionMetadata  map[string]string `json:"extractionMetadata,omitempty"`
	Logs                []logEntryView    `json:"logs,omitempty"`
}

type logEntryView struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

func renderDistillation(d *core.Distillation) *distillationView {
	v := &distillationView{
		ID:                 d.ID,
		Title:              d.Title,
		SourceType:         string(d.SourceType),
		SourceRef:          d.SourceRef,
		Status:             string(d.Status),
		Content:            d.Content,
		CreatedAt:          d.CreatedAt,
		ElapsedTimeMs:      d.ElapsedTime().Milliseconds(),
		WordCount:          d.WordCount,
		ExtractionMetadata: d.ExtractionMetadata,
	}
	if !d.StartTime.IsZero() {
		v.StartTime = &d.StartTime
	}
	if !d.DistillingStartTime.IsZero() {
		v.DistillingStartTime = &d.DistillingStartTime
	}
	if !d.CompletedAt.IsZero() {
		v.CompletedAt = &d.CompletedAt
	}
	if d.Error != "" {
		msg := d.Error
		v.Error = &msg
	}
	for _, entry := range d.Logs {
		v.Logs = append(v.Logs, logEntryView{Time: entry.Time, Message: entry.Message})
	}
	return v
}

type urlRequest struct {
	URL string `json:"url"`
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) submitURL(c *fiber.Ctx) error {
	var req urlRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: %v", ingest.ErrInvalidInput, err))
	}
	receipt, err := s.lib.SubmitURL(c.Context(), req.URL)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(receipt)
}

func (s *Server) submitText(c *fiber.Ctx) error {
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: %v", ingest.ErrInvalidInput, err))
	}
	receipt, err := s.lib.SubmitText(c.Context(), req.Text)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(receipt)
}

func (s *Server) submitFile(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fail(c, fmt.Errorf("%w: no file uploaded", ingest.ErrInvalidInput))
	}
	f, err := header.Open()
	if err != nil {
		return fail(c, fmt.Errorf("%w: %v", ingest.ErrInvalidInput, err))
	}
	defer f.Close()
	contents, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return fail(c, err)
	}

	receipt, err := s.lib.SubmitFile(c.Context(), header.Filename, contents)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(receipt)
}

func (s *Server) list(c *fiber.Ctx) error {
	var (
		records []*core.Distillation
		err     error
	)
	if q := c.Query("q"); q != "" {
		records, err = s.lib.Search(c.Context(), q)
	} else {
		records, err = s.lib.List(c.Context())
	}
	if err != nil {
		return fail(c, err)
	}

	views := make([]*distillationView, 0, len(records))
	for _, d := range records {
		views = append(views, renderDistillation(d))
	}
	return c.JSON(fiber.Map{"distillations": views, "count": len(views)})
}

func (s *Server) get(c *fiber.Ctx) error {
	d, err := s.lib.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(renderDistillation(d))
}

func (s *Server) remove(c *fiber.Ctx) error {
	if err := s.lib.Delete(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) retry(c *fiber.Ctx) error {
	receipt, err := s.lib.Retry(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(receipt)
}

func (s *Server) stop(c *fiber.Ctx) error {
	if err := s.lib.Stop(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"id": c.Params("id"), "status": "stop requested"})
}
