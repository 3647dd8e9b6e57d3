package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yengalvez/a-movies/internal/memstore"
	"github.com/yengalvez/a-movies/internal/tool"
	"github.com/yengalvez/a-movies/internal/trakt"
)

// minReasonLength forces the model to state why it is touching the
// tracking service instead of calling it reflexively.
const minReasonLength = 5

// renderOutput marshals v as indented JSON for the model to read.
func renderOutput(v any) (tool.Output, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return tool.Output{}, fmt.Errorf("assistant: render tool output: %w", err)
	}
	return tool.Output{Content: string(data)}, nil
}

// memoryWriteTool appends one memory line to the store.
type memoryWriteTool struct {
	uploader *memstore.Uploader
	now      func() time.Time
}

// Compile-time interface guards.
var (
	_ tool.Tool = (*memoryWriteTool)(nil)
	_ tool.Tool = (*memorySearchTool)(nil)
	_ tool.Tool = (*traktCallTool)(nil)
)

// NewMemoryWriteTool creates the memory_write tool over the given uploader.
func NewMemoryWriteTool(uploader *memstore.Uploader) tool.Tool {
	return &memoryWriteTool{uploader: uploader, now: time.Now}
}

func (t *memoryWriteTool) Name() string { return "memory_write" }

func (t *memoryWriteTool) Description() string {
	return "Store a movie memory as a durable note. Use it whenever the user mentions watching, liking, or wanting to watch a movie."
}

func (t *memoryWriteTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"kind": {"type": "string", "description": "Category of the memory, e.g. movie_seen or movie_watchlist."},
			"text": {"type": "string", "description": "The memory text to store."},
			"source": {"type": "string", "description": "Where the memory came from. Defaults to agent."},
			"tags": {"type": "array", "items": {"type": "string"}, "description": "Optional lowercase tags."}
		},
		"required": ["kind", "text"],
		"additionalProperties": false
	}`)
}

func (t *memoryWriteTool) Scopes() []tool.Scope { return []tool.Scope{tool.ScopeReadWrite} }

type memoryWriteParams struct {
	Kind   string   `json:"kind"`
	Text   string   `json:"text"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

// memoryLine is the wire shape of one stored note. Field names line up
// with what the searcher reads back.
type memoryLine struct {
	Text      string   `json:"text"`
	Kind      string   `json:"kind"`
	Source    string   `json:"source"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
}

func (t *memoryWriteTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	var p memoryWriteParams
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.Output{}, fmt.Errorf("%w: %v", tool.ErrInvalidArgs, err)
	}
	if strings.TrimSpace(p.Kind) == "" {
		return tool.Output{}, fmt.Errorf("%w: kind must not be empty", tool.ErrInvalidArgs)
	}
	if strings.TrimSpace(p.Text) == "" {
		return tool.Output{}, fmt.Errorf("%w: text must not be empty", tool.ErrInvalidArgs)
	}
	if p.Source == "" {
		p.Source = "agent"
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	line, err := json.Marshal(memoryLine{
		Text:      p.Text,
		Kind:      p.Kind,
		Source:    p.Source,
		Tags:      p.Tags,
		CreatedAt: t.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return tool.Output{}, fmt.Errorf("assistant: encode memory line: %w", err)
	}

	fileID, err := t.uploader.Upload(ctx, string(line)+"\n")
	if err != nil {
		return tool.Output{Content: err.Error(), IsError: true}, nil
	}

	return renderOutput(map[string]any{"ok": true, "file_id": fileID})
}

// memorySearchTool scans stored memories for a substring match.
type memorySearchTool struct {
	searcher *memstore.Searcher
}

// NewMemorySearchTool creates the memory_search tool over the given searcher.
func NewMemorySearchTool(searcher *memstore.Searcher) tool.Tool {
	return &memorySearchTool{searcher: searcher}
}

func (t *memorySearchTool) Name() string { return "memory_search" }

func (t *memorySearchTool) Description() string {
	return "Search stored movie memories by substring. Returns matching notes with their kind, tags, and timestamps. Zero matches is a normal result."
}

func (t *memorySearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Case-insensitive substring to look for."},
			"top_k": {"type": "integer", "minimum": 1, "maximum": 50, "description": "Maximum number of results. Defaults to 10."},
			"filter_tags": {"type": "array", "items": {"type": "string"}, "description": "Only return memories carrying every listed tag."}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

func (t *memorySearchTool) Scopes() []tool.Scope { return []tool.Scope{tool.ScopeReadOnly} }

type memorySearchParams struct {
	Query      string   `json:"query"`
	TopK       int      `json:"top_k"`
	FilterTags []string `json:"filter_tags"`
}

func (t *memorySearchTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	var p memorySearchParams
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.Output{}, fmt.Errorf("%w: %v", tool.ErrInvalidArgs, err)
	}
	if strings.TrimSpace(p.Query) == "" {
		return tool.Output{}, fmt.Errorf("%w: query must not be empty", tool.ErrInvalidArgs)
	}
	if p.TopK < 0 || p.TopK > memstore.MaxTopK {
		return tool.Output{}, fmt.Errorf("%w: top_k must be between 1 and %d", tool.ErrInvalidArgs, memstore.MaxTopK)
	}

	results, err := t.searcher.Search(ctx, p.Query, p.TopK, p.FilterTags)
	if err != nil {
		return tool.Output{Content: err.Error(), IsError: true}, nil
	}
	if results == nil {
		results = []memstore.SearchResult{}
	}

	return renderOutput(map[string]any{"results": results})
}

// traktCallTool exposes the tracking service API to the model, one guarded
// request at a time.
type traktCallTool struct {
	client *trakt.Client
}

// NewTraktCallTool creates the trakt_call tool over the given client.
func NewTraktCallTool(client *trakt.Client) tool.Tool {
	return &traktCallTool{client: client}
}

func (t *traktCallTool) Name() string { return "trakt_call" }

func (t *traktCallTool) Description() string {
	return "Call the Trakt API directly. Use for history, watchlist, ratings, or lookups the other tools do not cover. Always include a short reason."
}

func (t *traktCallTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"method": {"type": "string", "enum": ["GET", "POST", "PUT", "DELETE"]},
			"path": {"type": "string", "description": "API path starting with /, e.g. /sync/watchlist."},
			"query": {"type": "object", "additionalProperties": {"type": "string"}},
			"body": {"type": "object", "description": "JSON request body for mutating calls."},
			"reason": {"type": "string", "minLength": 5, "description": "Why this call is needed."}
		},
		"required": ["method", "path", "reason"],
		"additionalProperties": false
	}`)
}

func (t *traktCallTool) Scopes() []tool.Scope {
	return []tool.Scope{tool.ScopeNetwork, tool.ScopeReadWrite}
}

type traktCallParams struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query"`
	Body   json.RawMessage   `json:"body"`
	Reason string            `json:"reason"`
}

func (t *traktCallTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	var p traktCallParams
	if err := json.Unmarshal(args, &p); err != nil {
		return tool.Output{}, fmt.Errorf("%w: %v", tool.ErrInvalidArgs, err)
	}
	if len(strings.TrimSpace(p.Reason)) < minReasonLength {
		return tool.Output{}, fmt.Errorf("%w: reason must be at least %d characters", tool.ErrInvalidArgs, minReasonLength)
	}
	switch p.Method {
	case "GET", "POST", "PUT", "DELETE":
	default:
		return tool.Output{}, fmt.Errorf("%w: method %q not allowed", tool.ErrInvalidArgs, p.Method)
	}
	if !strings.HasPrefix(p.Path, "/") {
		return tool.Output{}, fmt.Errorf("%w: path must start with /", tool.ErrInvalidArgs)
	}
	if !t.client.IsConfigured() {
		return tool.Output{}, trakt.ErrNotConfigured
	}

	var body any
	if len(p.Body) > 0 {
		body = p.Body
	}

	resp, err := t.client.Call(ctx, p.Method, p.Path, p.Query, body)
	if err != nil {
		return tool.Output{Content: err.Error(), IsError: true}, nil
	}

	// Non-2xx statuses pass through as data, not as tool failures; the
	// model reads the status itself.
	return renderOutput(resp)
}
