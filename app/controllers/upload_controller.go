package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/CatalogFox/app/models"
	"github.com/ManuelReschke/CatalogFox/app/repository"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/cache"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/csvimport"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/storage"
)

// HandleUpload accepts a CSV file, creates a pending import job and queues it
// for background processing. The response is immediate; clients follow up via
// the status or stream endpoints.
func HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no file uploaded"})
	}

	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".csv" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "only .csv files are accepted"})
	}

	job := &models.ImportJob{
		ID:       uuid.New().String(),
		FileName: file.Filename,
		Status:   models.ImportJobStatusPending,
	}

	savePath := storage.UploadPath(job.ID)
	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		fiberlog.Errorf("[Upload] Failed to create upload directory: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store file"})
	}

	src, err := file.Open()
	if err != nil {
		fiberlog.Errorf("[Upload] Failed to open uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}
	defer src.Close()

	dst, err := os.Create(savePath)
	if err != nil {
		fiberlog.Errorf("[Upload] Failed to create staged file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store file"})
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(savePath)
		fiberlog.Errorf("[Upload] Failed to stage uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store file"})
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(savePath)
		fiberlog.Errorf("[Upload] Failed to flush staged file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store file"})
	}

	jobRepo := repository.GetGlobalFactory().GetImportJobRepository()
	if err := jobRepo.Create(job); err != nil {
		_ = os.Remove(savePath)
		fiberlog.Errorf("[Upload] Failed to create import job: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create import job"})
	}

	payload := jobqueue.CsvImportJobPayload{
		ImportJobID: job.ID,
		SourceKind:  jobqueue.SourceKindLocal,
		SourcePath:  savePath,
		FileName:    file.Filename,
	}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeCsvImport, payload.ToMap()); err != nil {
		fiberlog.Errorf("[Upload] Failed to enqueue import job %s: %v", job.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to queue import job"})
	}

	fiberlog.Infof("[Upload] Accepted import job %s (file: %s)", job.ID, file.Filename)
	return c.Status(fiber.StatusAccepted).JSON(csvimport.SnapshotFromJob(*job))
}

// HandleUploadStatus returns the current state and counters of an import job.
func HandleUploadStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	job, err := repository.GetGlobalFactory().GetImportJobRepository().GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "import job not found"})
	}
	return c.JSON(csvimport.SnapshotFromJob(*job))
}

// HandleUploadStream streams progress snapshots for an import job as
// server-sent events. The stream replays the current state immediately and
// closes once the job reaches a terminal state.
func HandleUploadStream(c *fiber.Ctx) error {
	id := c.Params("id")
	jobRepo := repository.GetGlobalFactory().GetImportJobRepository()
	job, err := jobRepo.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "import job not found"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	initial := *job
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub := cache.Subscribe(ctx, csvimport.ProgressChannel(id))
		defer sub.Close()

		// Replay the current state first so late subscribers are not stuck
		// waiting for the next chunk commit. The job is re-read after the
		// subscription is active: a terminal transition in between would
		// otherwise publish before we listen and the stream would never close.
		current := replayJob(jobRepo, id, initial)
		if !writeSSE(w, csvimport.SnapshotFromJob(current)) || current.IsTerminal() {
			return
		}

		ch := sub.Channel()
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snapshot csvimport.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
					fiberlog.Warnf("[Upload] Malformed progress payload for job %s: %v", id, err)
					continue
				}
				if !writeSSE(w, snapshot) {
					return
				}
				if snapshot.Status == models.ImportJobStatusCompleted || snapshot.Status == models.ImportJobStatusFailed {
					return
				}
			case <-ticker.C:
				// Keep-alive comment so proxies do not drop the connection.
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}

// replayJob fetches the job's latest state for the initial stream replay,
// falling back to the pre-stream snapshot when the read fails.
func replayJob(jobs repository.ImportJobRepository, id string, fallback models.ImportJob) models.ImportJob {
	fresh, err := jobs.GetByID(id)
	if err != nil {
		return fallback
	}
	return *fresh
}

func writeSSE(w *bufio.Writer, snapshot csvimport.Snapshot) bool {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data); err != nil {
		return false
	}
	return w.Flush() == nil
}
