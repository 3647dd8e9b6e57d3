package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yengalvez/a-movies/internal/provider"
	"github.com/yengalvez/a-movies/internal/tool"
)

// ToolExecutor handles parallel tool execution with panic recovery.
type ToolExecutor struct {
	registry    *tool.Registry
	toolTimeout time.Duration
}

// NewToolExecutor creates a ToolExecutor over the given registry.
// toolTimeout bounds each individual execution; zero disables the bound.
func NewToolExecutor(registry *tool.Registry, toolTimeout time.Duration) *ToolExecutor {
	return &ToolExecutor{
		registry:    registry,
		toolTimeout: toolTimeout,
	}
}

// Execute runs all tool calls in parallel and returns results in input order.
// Panics in individual tools are recovered and reported as error outputs.
func (e *ToolExecutor) Execute(ctx context.Context, calls []provider.ToolCall) []ToolCallRecord {
	results := make([]ToolCallRecord, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc provider.ToolCall) {
			defer wg.Done()
			results[idx] = e.executeSingle(ctx, tc)
		}(i, call)
	}

	wg.Wait()
	return results
}

func (e *ToolExecutor) executeSingle(ctx context.Context, tc provider.ToolCall) (record ToolCallRecord) {
	record.ID = tc.ID
	record.Name = tc.Name
	record.Arguments = tc.Arguments

	start := time.Now()

	defer func() {
		record.Duration = time.Since(start)
		if r := recover(); r != nil {
			record.Panicked = true
			record.Output = tool.Output{
				Content: fmt.Sprintf("panic: %v", r),
				IsError: true,
			}
		}
	}()

	out, err := e.registry.Execute(ctx, tc.Name, tc.Arguments, e.toolTimeout)
	if err != nil {
		record.Output = tool.Output{
			Content: err.Error(),
			IsError: true,
		}
		return record
	}

	record.Output = out
	return record
}
