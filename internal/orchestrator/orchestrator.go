// Package orchestrator is the façade tying resolution, vendor adapters,
// asset hosting, progress events and persistence into the two operations
// callers use: launch a task and poll it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediacore/internal/domain"
	"mediacore/internal/hosting"
	"mediacore/internal/infra"
	"mediacore/internal/progress"
	"mediacore/internal/resolver"
	"mediacore/internal/vendors"
)

const defaultSharedCooldown = 10 * time.Minute

// LaunchInput is one task launch request.
type LaunchInput struct {
	CallerID    string
	Vendor      string
	NodeID      string
	NodeKeyHint string
	Request     domain.TaskRequest
}

// PollInput identifies a previously launched task. Vendor may be empty; the
// task ref store then supplies the vendor that issued the task id.
type PollInput struct {
	CallerID string
	Vendor   string
	TaskID   string
	Kind     domain.TaskKind
}

// Orchestrator composes the core services behind a single entry point.
type Orchestrator struct {
	resolver *resolver.Resolver
	registry *vendors.Registry
	hosting  *hosting.Service
	bus      *progress.Bus
	refs     domain.TaskRefRepository
	audit    domain.CallLogRepository
	logger   infra.Logger
	cooldown time.Duration
	now      func() time.Time
}

// Options configures an Orchestrator.
type Options struct {
	Resolver       *resolver.Resolver
	Registry       *vendors.Registry
	Hosting        *hosting.Service
	Bus            *progress.Bus
	Refs           domain.TaskRefRepository
	Audit          domain.CallLogRepository
	Logger         infra.Logger
	SharedCooldown time.Duration
}

// New constructs an Orchestrator.
func New(opts Options) *Orchestrator {
	cooldown := opts.SharedCooldown
	if cooldown <= 0 {
		cooldown = defaultSharedCooldown
	}
	return &Orchestrator{
		resolver: opts.Resolver,
		registry: opts.Registry,
		hosting:  opts.Hosting,
		bus:      opts.Bus,
		refs:     opts.Refs,
		audit:    opts.Audit,
		logger:   opts.Logger,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Launch resolves the vendor, fires the adapter and records the outcome.
// Failures before a vendor task id exists surface as errors; once an id
// exists the failure is a terminal result instead. When the vendor's direct
// API is unconfigured and the family has a gateway fallback, the launch is
// retried exactly once through the gateway.
func (o *Orchestrator) Launch(ctx context.Context, input LaunchInput) (*domain.TaskResult, error) {
	vendor := vendors.Canonical(input.Vendor)
	req := input.Request

	o.publish(input.CallerID, input, vendor, progress.Snapshot{Status: domain.TaskStatusQueued})

	vc, err := o.resolver.Resolve(ctx, input.CallerID, vendor)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		fallback := vendors.GatewayFallback(vendor)
		if !errors.As(err, &cfgErr) || fallback == "" {
			o.publishError(input.CallerID, input, vendor, err)
			return nil, err
		}
		fallbackVC, fbErr := o.resolver.Resolve(ctx, input.CallerID, fallback)
		if fbErr != nil {
			o.publishError(input.CallerID, input, vendor, err)
			return nil, err
		}
		o.logger.Info().
			Str("vendor", vendor).
			Str("fallback", fallback).
			Str("reason", string(cfgErr.Reason)).
			Msg("orchestrator: routing through gateway fallback")
		vendor, vc = fallback, fallbackVC
	}

	adapter, ok := o.registry.Lookup(vendor, req.Kind)
	if !ok {
		err := fmt.Errorf("orchestrator: vendor %s does not serve %s tasks", vendor, req.Kind)
		o.publishError(input.CallerID, input, vendor, err)
		return nil, err
	}

	o.publish(input.CallerID, input, vendor, progress.Snapshot{Status: domain.TaskStatusRunning})

	result, err := adapter.Launch(ctx, *vc, req)
	if err != nil {
		o.penalize(ctx, vc.RoutingHint, err)
		o.publishError(input.CallerID, input, vendor, err)
		return nil, err
	}

	if result.Status == domain.TaskStatusSucceeded {
		result.Assets = o.hostAssets(ctx, input.CallerID, result, vendor, req)
	}
	if !result.Status.Terminal() {
		o.upsertRef(ctx, input.CallerID, vendor, result)
	}
	o.recordAudit(ctx, input.CallerID, vendor, result, rawError(result))
	o.publish(input.CallerID, input, vendor, progress.Snapshot{
		Status:  result.Status,
		TaskID:  result.ID,
		Assets:  result.Assets,
		Message: rawError(result),
	})
	return result, nil
}

// Poll reports the current state of a launched task. A missing vendor is
// recovered from the task ref store; protocol failures after the task id
// exists become a failed result rather than an error.
func (o *Orchestrator) Poll(ctx context.Context, input PollInput) (*domain.TaskResult, error) {
	vendor := vendors.Canonical(input.Vendor)
	if vendor == "" {
		ref, err := o.refs.Get(ctx, input.CallerID, refKindFor(input.Kind), input.TaskID)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: resolve vendor for task %s: %w", input.TaskID, err)
		}
		vendor = vendors.Canonical(ref.Vendor)
	}

	vc, err := o.resolver.Resolve(ctx, input.CallerID, vendor)
	if err != nil {
		return nil, err
	}
	adapter, ok := o.registry.Lookup(vendor, input.Kind)
	if !ok {
		return nil, fmt.Errorf("orchestrator: vendor %s does not serve %s tasks", vendor, input.Kind)
	}
	poller, ok := adapter.(vendors.Poller)
	if !ok {
		return nil, fmt.Errorf("orchestrator: vendor %s tasks are not pollable", vendor)
	}

	result, err := poller.Poll(ctx, *vc, input.TaskID, input.Kind)
	if err != nil {
		var protoErr *domain.UpstreamProtocolError
		if !errors.As(err, &protoErr) {
			o.penalize(ctx, vc.RoutingHint, err)
			return nil, err
		}
		// The task id is known to the vendor; an unparseable answer is a
		// terminal outcome for the task, not a transport failure.
		result = &domain.TaskResult{
			ID:     input.TaskID,
			Kind:   input.Kind,
			Status: domain.TaskStatusFailed,
			Raw:    map[string]any{"error": protoErr.Detail},
		}
	}

	if result.Status == domain.TaskStatusSucceeded {
		result.Assets = o.hostAssets(ctx, input.CallerID, result, vendor, domain.TaskRequest{Kind: input.Kind})
	}
	errDetail := rawError(result)
	o.recordAudit(ctx, input.CallerID, vendor, result, errDetail)

	snap := progress.Snapshot{Status: result.Status, TaskID: result.ID, Assets: result.Assets, Message: errDetail}
	o.publish(input.CallerID, LaunchInput{Request: domain.TaskRequest{Kind: input.Kind}}, vendor, snap)
	return result, nil
}

func (o *Orchestrator) hostAssets(ctx context.Context, callerID string, result *domain.TaskResult, vendor string, req domain.TaskRequest) []domain.TaskAsset {
	hosted, err := o.hosting.Host(ctx, callerID, result.Assets, hosting.Meta{
		Vendor:   vendor,
		Prompt:   req.Prompt,
		ModelKey: req.Extra("model"),
		TaskID:   result.ID,
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("vendor", vendor).Msg("orchestrator: hosting unavailable, serving vendor urls")
		return result.Assets
	}
	return hosted
}

func (o *Orchestrator) upsertRef(ctx context.Context, callerID, vendor string, result *domain.TaskResult) {
	now := o.now()
	ref := &domain.VendorTaskRef{
		CallerID:  callerID,
		Kind:      refKindFor(result.Kind),
		TaskID:    result.ID,
		Vendor:    vendor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.refs.Upsert(ctx, ref); err != nil {
		o.logger.Warn().Err(err).Str("task_id", result.ID).Msg("orchestrator: task ref upsert failed")
	}
}

func (o *Orchestrator) recordAudit(ctx context.Context, callerID, vendor string, result *domain.TaskResult, errDetail string) {
	if result.ID == "" {
		return
	}
	entry := &domain.VendorCallLogEntry{
		CallerID:     callerID,
		Vendor:       vendor,
		TaskID:       result.ID,
		TaskKind:     result.Kind,
		Status:       callStatusFor(result.Status),
		ErrorMessage: errDetail,
		StartedAt:    o.now(),
	}
	if result.Status.Terminal() {
		finished := o.now()
		entry.FinishedAt = &finished
	}
	if err := o.audit.Upsert(ctx, entry); err != nil {
		o.logger.Warn().Err(err).Str("task_id", result.ID).Msg("orchestrator: audit upsert failed")
	}
}

// penalize stamps a cooldown on the shared credential behind a failed call.
// Caller input problems are not the credential's fault.
func (o *Orchestrator) penalize(ctx context.Context, routingHint string, err error) {
	var inputErr *domain.InvalidInputError
	if errors.As(err, &inputErr) {
		return
	}
	o.resolver.PenalizeShared(ctx, routingHint, o.cooldown)
}

func (o *Orchestrator) publish(callerID string, input LaunchInput, vendor string, snap progress.Snapshot) {
	snap.NodeID = input.NodeID
	snap.NodeKeyHint = input.NodeKeyHint
	snap.TaskKind = input.Request.Kind
	snap.Vendor = vendor
	o.bus.Publish(callerID, snap)
}

func (o *Orchestrator) publishError(callerID string, input LaunchInput, vendor string, err error) {
	o.publish(callerID, input, vendor, progress.Snapshot{
		Status:  domain.TaskStatusFailed,
		Message: err.Error(),
	})
}

func callStatusFor(status domain.TaskStatus) domain.CallStatus {
	switch status {
	case domain.TaskStatusSucceeded:
		return domain.CallStatusSucceeded
	case domain.TaskStatusFailed:
		return domain.CallStatusFailed
	default:
		return domain.CallStatusStarted
	}
}

func rawError(result *domain.TaskResult) string {
	if msg, ok := result.Raw["error"].(string); ok {
		return msg
	}
	return ""
}

func refKindFor(kind domain.TaskKind) domain.RefKind {
	if kind.IsVideo() {
		return domain.RefKindVideo
	}
	return domain.RefKindImage
}
