package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshotFlattensSessionInfo(t *testing.T) {
	snap := Snapshot{
		SessionInfo: SessionInfo{ID: "01J0", App: "tracer", CreatedAt: time.Unix(0, 0).UTC()},
		Location:    "https://tracer.test/app/",
		Stats:       Stats{HeapSlots: 140, LiveHandles: 5},
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "app", "createdAt", "location", "stats"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing top-level field %q in %s", key, data)
		}
	}
	if strings.Contains(string(data), "lastException") {
		t.Errorf("zero lastException should be omitted: %s", data)
	}
}

func TestDispatchRequestDecoding(t *testing.T) {
	body := `{"target":"go","type":"click","bubbles":true,"ctrlKey":true,"detail":{"row":3}}`

	var req DispatchRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}

	want := DispatchRequest{
		Target:  "go",
		Type:    "click",
		Bubbles: true,
		CtrlKey: true,
		Detail:  map[string]any{"row": float64(3)},
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("DispatchRequest mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorBody(t *testing.T) {
	data, err := json.Marshal(Error{Error: "session 'x' not found"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"error":"session 'x' not found"}` {
		t.Errorf("unexpected body %s", data)
	}
}
