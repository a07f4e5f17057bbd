package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
	"github.com/xraph/steward/action"
	"github.com/xraph/steward/id"
)

func (a *API) registerActionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("actions"))

	if err := g.POST("/actions", a.proposeAction,
		forge.WithSummary("Propose action"),
		forge.WithDescription("Records an agent-proposed action in the ledger."),
		forge.WithOperationID("proposeAction"),
		forge.WithRequestSchema(ProposeActionRequest{}),
		forge.WithCreatedResponse(&action.Action{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/actions", a.listActions,
		forge.WithSummary("List actions"),
		forge.WithDescription("Lists ledger entries with optional filters, newest first."),
		forge.WithOperationID("listActions"),
		forge.WithRequestSchema(ListActionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Action list", ListResponse[*action.Action]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/actions/:actionId", a.getAction,
		forge.WithSummary("Get action"),
		forge.WithDescription("Returns details of a specific ledger entry."),
		forge.WithOperationID("getAction"),
		forge.WithResponseSchema(http.StatusOK, "Action details", &action.Action{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/actions/:actionId/approve", a.approveAction,
		forge.WithSummary("Approve action"),
		forge.WithDescription("Approves and executes a pending action."),
		forge.WithOperationID("approveAction"),
		forge.WithRequestSchema(DecideRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decided action", &action.Action{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/actions/:actionId/reject", a.rejectAction,
		forge.WithSummary("Reject action"),
		forge.WithDescription("Rejects a pending action, recording the reason."),
		forge.WithOperationID("rejectAction"),
		forge.WithRequestSchema(DecideRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decided action", &action.Action{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/actions/bulk-decide", a.bulkDecide,
		forge.WithSummary("Bulk decide"),
		forge.WithDescription("Applies one decision to many pending actions."),
		forge.WithOperationID("bulkDecideActions"),
		forge.WithRequestSchema(BulkDecideRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch result", &steward.BatchResult{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) proposeAction(ctx forge.Context, req *ProposeActionRequest) (*action.Action, error) {
	act, err := a.eng.ProposeAction(ctx.Context(), &steward.Proposal{
		AgentID:          req.AgentID,
		AgentName:        req.AgentName,
		AgentType:        req.AgentType,
		ActionType:       req.ActionType,
		EntityType:       req.EntityType,
		EntityID:         req.EntityID,
		Reasoning:        req.Reasoning,
		Confidence:       req.Confidence,
		Impact:           action.Impact(req.Impact),
		RequiresApproval: req.RequiresApproval,
		Metadata:         req.Metadata,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return act, ctx.JSON(http.StatusCreated, act)
}

func (a *API) getAction(ctx forge.Context, _ *GetActionRequest) (*action.Action, error) {
	actionID, err := id.ParseActionID(ctx.Param("actionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid action ID: %v", err))
	}
	act, err := a.eng.GetAction(ctx.Context(), actionID)
	if err != nil {
		return nil, mapError(err)
	}
	return act, ctx.JSON(http.StatusOK, act)
}

func (a *API) listActions(ctx forge.Context, req *ListActionsRequest) (*ListResponse[*action.Action], error) {
	filter := &action.ListFilter{
		Status:     action.Status(req.Status),
		AgentID:    req.AgentID,
		ActionType: req.ActionType,
		EntityType: req.EntityType,
		Limit:      defaultLimit(req.Limit),
		Offset:     req.Offset,
	}
	if req.Status != "" && !filter.Status.Valid() {
		return nil, forge.BadRequest(fmt.Sprintf("invalid status %q", req.Status))
	}
	if req.After != "" {
		ts, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid after timestamp: %v", err))
		}
		filter.After = &ts
	}
	if req.Before != "" {
		ts, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid before timestamp: %v", err))
		}
		filter.Before = &ts
	}

	actions, err := a.eng.ListActions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.CountActions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*action.Action]{
		Items:  actions,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) approveAction(ctx forge.Context, req *DecideRequest) (*action.Action, error) {
	return a.decideAction(ctx, steward.DecisionApprove, req.Reason)
}

func (a *API) rejectAction(ctx forge.Context, req *DecideRequest) (*action.Action, error) {
	return a.decideAction(ctx, steward.DecisionReject, req.Reason)
}

func (a *API) decideAction(ctx forge.Context, decision steward.Decision, reason string) (*action.Action, error) {
	actionID, err := id.ParseActionID(ctx.Param("actionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid action ID: %v", err))
	}
	act, err := a.eng.Decide(ctx.Context(), a.reviewerFromContext(ctx), actionID, decision, reason)
	if err != nil {
		return nil, mapError(err)
	}
	return act, ctx.JSON(http.StatusOK, act)
}

func (a *API) bulkDecide(ctx forge.Context, req *BulkDecideRequest) (*steward.BatchResult, error) {
	if len(req.ActionIDs) == 0 {
		return nil, forge.BadRequest("action_ids cannot be empty")
	}
	actionIDs := make([]id.ActionID, 0, len(req.ActionIDs))
	for _, raw := range req.ActionIDs {
		actionID, err := id.ParseActionID(raw)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid action ID %q: %v", raw, err))
		}
		actionIDs = append(actionIDs, actionID)
	}

	result, err := a.eng.DecideBatch(ctx.Context(), a.reviewerFromContext(ctx), actionIDs, steward.Decision(req.Decision), req.Reason)
	if err != nil {
		return nil, mapError(err)
	}
	return result, ctx.JSON(http.StatusOK, result)
}
