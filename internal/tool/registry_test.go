package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeTool struct {
	name   string
	scopes []Scope
	run    func(ctx context.Context, args json.RawMessage) (Output, error)
}

func (f *fakeTool) Name() string            { return f.name }
func (f *fakeTool) Description() string     { return "fake tool " + f.name }
func (f *fakeTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (f *fakeTool) Scopes() []Scope         { return f.scopes }

func (f *fakeTool) Execute(ctx context.Context, args json.RawMessage) (Output, error) {
	if f.run != nil {
		return f.run(ctx, args)
	}
	return Output{Content: "ok"}, nil
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	if err := r.Register(&fakeTool{name: "a", scopes: []Scope{ScopeReadOnly}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&fakeTool{name: "a", scopes: []Scope{ScopeReadOnly}}); !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("duplicate register error = %v", err)
	}
	if err := r.Register(&fakeTool{name: "  ", scopes: []Scope{ScopeReadOnly}}); !errors.Is(err, ErrEmptyToolName) {
		t.Errorf("empty name error = %v", err)
	}
	if err := r.Register(&fakeTool{name: "b"}); !errors.Is(err, ErrNoScopes) {
		t.Errorf("no scopes error = %v", err)
	}
}

func TestSchemasSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&fakeTool{name: name, scopes: []Scope{ScopeReadOnly}}); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	schemas := r.Schemas()
	if len(schemas) != 3 {
		t.Fatalf("got %d schemas", len(schemas))
	}
	if schemas[0].Name != "alpha" || schemas[1].Name != "mid" || schemas[2].Name != "zeta" {
		t.Errorf("schemas not sorted: %v", r.Names())
	}
	if schemas[0].Description == "" {
		t.Error("description missing from schema")
	}
}

func TestExecute_NotFound(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Execute(context.Background(), "nope", nil, 0); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("error = %v, want ErrToolNotFound", err)
	}
}

func TestExecute_Timeout(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Register(&fakeTool{
		name:   "slow",
		scopes: []Scope{ScopeNetwork},
		run: func(ctx context.Context, _ json.RawMessage) (Output, error) {
			<-ctx.Done()
			return Output{}, ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = r.Execute(context.Background(), "slow", nil, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}
