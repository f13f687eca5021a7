package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/callprofiler/callprofiler/internal/flamegraph"
	"github.com/callprofiler/callprofiler/internal/reporthtml"
	"github.com/callprofiler/callprofiler/internal/storageutil"
	"github.com/callprofiler/callprofiler/internal/trace"
)

// fetchReport reads the stored report addressed by the request's path
// parameters. On failure it writes the appropriate status code and returns
// false.
func (env *environment) fetchReport(w http.ResponseWriter, r *http.Request) (trace.Report, bool) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)

	rawOrganizationID := ps.ByName("organization_id")
	organizationID, err := strconv.ParseUint(rawOrganizationID, 10, 64)
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusBadRequest)
		return trace.Report{}, false
	}
	rawProjectID := ps.ByName("project_id")
	projectID, err := strconv.ParseUint(rawProjectID, 10, 64)
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusBadRequest)
		return trace.Report{}, false
	}
	traceID := ps.ByName("trace_id")
	if _, err := uuid.Parse(traceID); err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusBadRequest)
		return trace.Report{}, false
	}

	if hub != nil {
		hub.Scope().SetTags(map[string]string{
			"organization_id": rawOrganizationID,
			"project_id":      rawProjectID,
			"trace_id":        traceID,
		})
	}

	var report trace.Report
	s := sentry.StartSpan(ctx, "storage.read")
	s.Description = "Read report from storage"
	err = storageutil.UnmarshalCompressed(ctx, env.storage, trace.StoragePath(organizationID, projectID, traceID), &report)
	s.Finish()
	if err != nil {
		if errors.Is(err, storageutil.ErrObjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
		} else {
			if hub != nil {
				hub.CaptureException(err)
			}
			w.WriteHeader(http.StatusInternalServerError)
		}
		return trace.Report{}, false
	}
	return report, true
}

func (env *environment) getReport(w http.ResponseWriter, r *http.Request) {
	report, ok := env.fetchReport(w, r)
	if !ok {
		return
	}
	env.writeJSON(w, r, report)
}

func (env *environment) getFlamegraph(w http.ResponseWriter, r *http.Request) {
	report, ok := env.fetchReport(w, r)
	if !ok {
		return
	}
	env.writeJSON(w, r, flamegraph.ToSpeedscope(report))
}

func (env *environment) getReportHTML(w http.ResponseWriter, r *http.Request) {
	report, ok := env.fetchReport(w, r)
	if !ok {
		return
	}
	hub := sentry.GetHubFromContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reporthtml.Render(w, report); err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
	}
}

func (env *environment) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "json.marshal")
	defer s.Finish()

	b, err := json.Marshal(v)
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
