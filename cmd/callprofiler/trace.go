package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	gojson "github.com/goccy/go-json"

	"github.com/callprofiler/callprofiler/internal/calltree"
	"github.com/callprofiler/callprofiler/internal/storageutil"
	"github.com/callprofiler/callprofiler/internal/trace"
)

func (env *environment) postTrace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Read HTTP body"
	body, err := io.ReadAll(r.Body)
	s.Finish()
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var t trace.Trace
	s = sentry.StartSpan(ctx, "json.unmarshal")
	s.Description = "Unmarshal trace"
	err = gojson.Unmarshal(body, &t)
	s.Finish()
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	t.EnsureID()
	if err := t.Validate(); err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if hub != nil {
		hub.Scope().SetContext("Trace metadata", map[string]interface{}{
			"trace_id":        t.ID,
			"name":            t.Name,
			"organization_id": strconv.FormatUint(t.OrganizationID, 10),
			"project_id":      strconv.FormatUint(t.ProjectID, 10),
			"events":          len(t.Events),
			"size":            len(body),
		})
	}

	s = sentry.StartSpan(ctx, "processing")
	s.Description = "Reconstruct and aggregate call tree"
	report, err := trace.NewReport(t, calltree.Options{
		MaxEvents:     env.config.MaxTraceEvents,
		MaxStackDepth: env.config.MaxStackDepth,
	})
	s.Finish()
	if err != nil {
		// Resource limits are the only fatal reconstruction errors.
		if errors.Is(err, calltree.ErrTooManyEvents) || errors.Is(err, calltree.ErrStackTooDeep) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		} else {
			if hub != nil {
				hub.CaptureException(err)
			}
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	s = sentry.StartSpan(ctx, "storage.write")
	s.Description = "Write report to storage"
	err = storageutil.CompressedWrite(ctx, env.storage, report.StoragePath(), report)
	s.Finish()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// This is a transient error, we'll retry
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			if hub != nil {
				hub.CaptureException(err)
			}
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	s = sentry.StartSpan(ctx, "processing")
	s.Description = "Send function metrics to Kafka"
	err = env.postFunctionsToKafka(ctx, report)
	s.Finish()
	if err != nil {
		// The report is already stored, don't fail the ingest.
		if hub != nil {
			hub.CaptureException(err)
		}
	}

	s = sentry.StartSpan(ctx, "json.marshal")
	s.Description = "Marshal report"
	b, err := json.Marshal(report)
	s.Finish()
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
