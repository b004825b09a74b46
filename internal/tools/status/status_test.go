package status

import (
	"context"
	"testing"
)

func TestStatusTool(t *testing.T) {
	list := Tools()
	if len(list) != 1 {
		t.Fatalf("len(Tools()) = %d, want 1", len(list))
	}
	tool := list[0]
	if tool.Name != "get_server_status" {
		t.Errorf("Name = %q", tool.Name)
	}

	res := tool.Handler(context.Background(), nil)
	if res.IsFailure() {
		t.Fatalf("status tool must never fail, got %+v", res.Failure())
	}
	if res.MarshalText() != statusMessage {
		t.Errorf("payload = %q, want the readiness message verbatim", res.MarshalText())
	}
}
