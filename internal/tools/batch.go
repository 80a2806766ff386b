package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// maxBatchSize caps one batch_execute request. Larger workloads should be
// split by the client.
const maxBatchSize = 100

// BatchTool resubmits a list of sub-commands through the scheduler and
// resolves once every one of them has. Sub-commands queue behind the batch's
// own tick, so they are claimed on later turns like any other request.
type BatchTool struct {
	submit Submitter
}

// NewBatchTool returns the batch_execute unit.
func NewBatchTool(submit Submitter) *BatchTool {
	return &BatchTool{submit: submit}
}

// Commands implements registry.Provider.
func (t *BatchTool) Commands() []registry.Registration {
	return []registry.Registration{{
		Unit:    "BatchExecute",
		About:   "Run a list of commands in order and collect their envelopes.",
		Handler: t.handle,
	}}
}

func (t *BatchTool) handle(p command.Params) (command.Outcome, error) {
	items := p.List("commands")
	if len(items) == 0 {
		return command.Outcome{}, fmt.Errorf("commands must be a non-empty list")
	}
	if len(items) > maxBatchSize {
		return command.Outcome{}, fmt.Errorf("batch of %d commands exceeds the limit of %d", len(items), maxBatchSize)
	}

	// A submit failure abandons the remainder; sub-commands already queued
	// still run to completion.
	futures := make([]*command.Future, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return command.Outcome{}, fmt.Errorf("commands[%d] is not an object", i)
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return command.Outcome{}, fmt.Errorf("commands[%d]: %w", i, err)
		}
		fut, err := t.submit.Submit(context.Background(), string(raw))
		if err != nil {
			return command.Outcome{}, fmt.Errorf("commands[%d]: %w", i, err)
		}
		futures[i] = fut
	}

	outer := command.NewFuture()
	go gather(futures, outer)
	return command.Deferred(outer), nil
}

// gather awaits every sub-command off the loop and completes the outer
// future with the collected envelopes, preserving submission order.
func gather(futures []*command.Future, outer *command.Future) {
	results := make([]command.Response, len(futures))
	failed := 0
	for i, fut := range futures {
		v, err := fut.Await()
		if err != nil {
			results[i] = command.Failure(err.Error())
			failed++
			continue
		}
		resp, ok := v.(command.Response)
		if !ok {
			results[i] = command.Failure(fmt.Sprintf("unexpected result type %T", v))
			failed++
			continue
		}
		results[i] = resp
		if resp.Status != command.StatusSuccess {
			failed++
		}
	}
	outer.Complete(map[string]any{
		"results": results,
		"total":   len(results),
		"failed":  failed,
	})
}
