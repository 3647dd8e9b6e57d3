package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/yengalvez/a-movies/internal/memstore"
	"github.com/yengalvez/a-movies/internal/memstore/memstoretest"
	"github.com/yengalvez/a-movies/internal/tool"
	"github.com/yengalvez/a-movies/internal/trakt"
)

func TestMemoryWrite_ValidatesBeforeUpload(t *testing.T) {
	t.Parallel()

	mock := memstoretest.NewMockStore()
	wt := NewMemoryWriteTool(memstore.NewUploader(mock, t.TempDir(), nil))

	cases := []struct {
		name string
		args string
	}{
		{"missing kind", `{"text":"saw Heat"}`},
		{"blank text", `{"kind":"movie_seen","text":"   "}`},
		{"malformed json", `{"kind":`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := wt.Execute(context.Background(), json.RawMessage(tc.args))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if mock.UploadCalls != 0 {
				t.Errorf("upload reached the store on invalid args")
			}
		})
	}
}

func TestMemoryWrite_StoresLine(t *testing.T) {
	t.Parallel()

	mock := memstoretest.NewMockStore()
	wt := NewMemoryWriteTool(memstore.NewUploader(mock, t.TempDir(), nil))

	out, err := wt.Execute(context.Background(), json.RawMessage(
		`{"kind":"movie_seen","text":"Watched Heat (1995)","tags":["crime"]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.IsError {
		t.Fatalf("output is error: %s", out.Content)
	}

	var resp struct {
		OK     bool   `json:"ok"`
		FileID string `json:"file_id"`
	}
	if err := json.Unmarshal([]byte(out.Content), &resp); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if !resp.OK || resp.FileID == "" {
		t.Errorf("output = %+v", resp)
	}

	content := mock.FileContent(resp.FileID)
	if !strings.HasSuffix(content, "\n") || strings.Count(content, "\n") != 1 {
		t.Errorf("stored content is not a single line: %q", content)
	}
	var line struct {
		Text      string   `json:"text"`
		Kind      string   `json:"kind"`
		Source    string   `json:"source"`
		Tags      []string `json:"tags"`
		CreatedAt string   `json:"created_at"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &line); err != nil {
		t.Fatalf("decode stored line: %v", err)
	}
	if line.Kind != "movie_seen" || line.Source != "agent" || line.CreatedAt == "" {
		t.Errorf("line = %+v", line)
	}
}

func TestMemorySearch_EmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	mock := memstoretest.NewMockStore()
	st := NewMemorySearchTool(memstore.NewSearcher(mock, nil))

	out, err := st.Execute(context.Background(), json.RawMessage(`{"query":"nothing matches this"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.IsError {
		t.Fatalf("zero matches reported as error: %s", out.Content)
	}

	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(out.Content), &resp); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("results = %v, want empty array", resp.Results)
	}
}

func TestMemorySearch_Validation(t *testing.T) {
	t.Parallel()

	mock := memstoretest.NewMockStore()
	st := NewMemorySearchTool(memstore.NewSearcher(mock, nil))

	if _, err := st.Execute(context.Background(), json.RawMessage(`{"query":""}`)); err == nil {
		t.Error("empty query accepted")
	}
	if _, err := st.Execute(context.Background(), json.RawMessage(`{"query":"x","top_k":51}`)); err == nil {
		t.Error("top_k over the cap accepted")
	}
	if mock.ListCalls != 0 {
		t.Errorf("search reached the store on invalid args")
	}
}

func TestTraktCall_ValidationBeforeNetwork(t *testing.T) {
	t.Parallel()

	// Configured client pointed at nothing: any network attempt would fail,
	// so a validation error proves no request was made.
	client := trakt.NewClient(trakt.Config{ClientID: "cid", AccessToken: "tok", BaseURL: "http://127.0.0.1:0"})
	tt := NewTraktCallTool(client)

	cases := []struct {
		name string
		args string
	}{
		{"short reason", `{"method":"GET","path":"/sync/history","reason":"why"}`},
		{"bad method", `{"method":"PATCH","path":"/sync/history","reason":"checking history"}`},
		{"relative path", `{"method":"GET","path":"sync/history","reason":"checking history"}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.Execute(context.Background(), json.RawMessage(tc.args))
			if !errors.Is(err, tool.ErrInvalidArgs) {
				t.Errorf("err = %v, want ErrInvalidArgs", err)
			}
		})
	}
}

func TestTraktCall_Unconfigured(t *testing.T) {
	t.Parallel()

	tt := NewTraktCallTool(trakt.NewClient(trakt.Config{}))

	_, err := tt.Execute(context.Background(), json.RawMessage(
		`{"method":"GET","path":"/sync/history","reason":"checking history"}`))
	if !errors.Is(err, trakt.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
