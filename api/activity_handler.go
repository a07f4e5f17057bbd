package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/steward/activity"
)

func (a *API) registerActivityRoutes(router forge.Router) error {
	g := router.Group("/v1/activity", forge.WithGroupTags("activity"))

	if err := g.GET("/recent", a.recentActivity,
		forge.WithSummary("Recent activity"),
		forge.WithDescription("Returns the newest activity records for a scope."),
		forge.WithOperationID("recentActivity"),
		forge.WithRequestSchema(RecentActivityRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Recent records", []*activity.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/stream", a.streamActivity,
		forge.WithSummary("Live activity stream"),
		forge.WithDescription("Streams activity events for a scope as Server-Sent Events."),
		forge.WithOperationID("streamActivity"),
		forge.WithRequestSchema(StreamActivityRequest{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) recentActivity(ctx forge.Context, req *RecentActivityRequest) ([]*activity.Record, error) {
	records := a.eng.RecentActivity(ctx.Context(), req.Scope, req.Limit)
	if records == nil {
		records = []*activity.Record{}
	}
	return records, ctx.JSON(http.StatusOK, records)
}

// streamActivity serves a Server-Sent Events stream of live activity. Each
// published record arrives as an "activity" event; keep-alive ticks arrive
// as "keep_alive" events so idle connections stay distinguishable from dead
// ones. The stream ends when the client disconnects.
func (a *API) streamActivity(ctx forge.Context, req *StreamActivityRequest) (*struct{}, error) {
	w := ctx.Response()
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, forge.BadRequest("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := a.eng.Subscribe(ctx.Context(), req.Scope)
	defer sub.Close()

	for {
		select {
		case <-ctx.Context().Done():
			return nil, nil
		case <-sub.Done():
			return nil, nil
		case event := <-sub.C:
			if err := writeSSE(w, event); err != nil {
				// Client went away.
				return nil, nil
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event activity.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
