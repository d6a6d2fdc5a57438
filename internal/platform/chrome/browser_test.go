package chrome

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestRoundBox(t *testing.T) {
	got := roundBox([4]float64{10.4, 20.6, 99.5, 0.2})
	want := [4]int{10, 21, 100, 0}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestQueryResult_Decode(t *testing.T) {
	raw := `{"nodes":[{"index":0,"tag":"button","text":"Add","attrs":{"aria-label":"Add"},"bounds":[1.5,2,30,20],"visible":true}]}`
	var res queryResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		t.Fatal(err)
	}
	if res.Stale || len(res.Nodes) != 1 {
		t.Fatalf("got %+v", res)
	}
	n := res.Nodes[0]
	if n.Tag != "button" || n.Attrs["aria-label"] != "Add" || !n.Visible {
		t.Errorf("unexpected node: %+v", n)
	}
}

func TestNodeJS_Format(t *testing.T) {
	v, _ := json.Marshal(`it's "quoted"`)
	expr := fmt.Sprintf(nodeJS, 7, 3, fmt.Sprintf(setValueBody, v))
	if !strings.Contains(expr, "reg.gen !== 7") || !strings.Contains(expr, "reg.nodes[3]") {
		t.Errorf("handle not embedded:\n%s", expr)
	}
	if !strings.Contains(expr, `var value = "it's \"quoted\""`) {
		t.Errorf("value not JSON-encoded:\n%s", expr)
	}
	if strings.Contains(expr, "%!") {
		t.Errorf("format verb mismatch:\n%s", expr)
	}
}
