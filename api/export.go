package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"table-exporter/service"

	"github.com/gin-gonic/gin"
)

// Runner is the pipeline the handler triggers.
type Runner interface {
	Run(ctx context.Context, opts service.RunOptions) service.Summary
}

type ExportRequest struct {
	Tables []string `json:"tables"`
}

type TableResponse struct {
	Table  string `json:"table"`
	Status string `json:"status"`
	Rows   int    `json:"rows"`
	Key    string `json:"key,omitempty"`
	Error  string `json:"error,omitempty"`
}

type ExportResponse struct {
	Message string          `json:"message"`
	RunID   string          `json:"run_id"`
	Failed  int             `json:"failed"`
	Tables  []TableResponse `json:"tables"`
}

// ExportHandler runs one export per request. A request that arrives while a
// run is in progress gets 409.
func ExportHandler(runner Runner) gin.HandlerFunc {
	var mu sync.Mutex
	return func(c *gin.Context) {
		var req ExportRequest
		// An empty body means every table.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			slog.WarnContext(c.Request.Context(), "Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !mu.TryLock() {
			c.JSON(http.StatusConflict, gin.H{"error": "an export is already running"})
			return
		}
		defer mu.Unlock()

		slog.InfoContext(c.Request.Context(), "Received export request", "tables", req.Tables)

		// A started run finishes even if the client goes away.
		ctx := context.WithoutCancel(c.Request.Context())
		summary := runner.Run(ctx, service.RunOptions{Tables: req.Tables})

		resp := ExportResponse{
			Message: "Operation completed successfully",
			RunID:   summary.RunID,
			Failed:  summary.Failed(),
			Tables:  make([]TableResponse, 0, len(summary.Results)),
		}
		for _, r := range summary.Results {
			tr := TableResponse{Table: r.Table, Status: string(r.Status), Rows: r.Rows}
			if r.Status == service.StatusExported {
				tr.Key = r.Key
			}
			if r.Err != nil {
				tr.Error = r.Err.Error()
			}
			resp.Tables = append(resp.Tables, tr)
		}
		c.JSON(http.StatusOK, resp)
	}
}
