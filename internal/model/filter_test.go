package model

import "testing"

func TestFilterByText_Substring(t *testing.T) {
	elements := []Element{
		{Tag: "span", Text: "Edit List"},
		{Tag: "span", Text: "Members"},
		{Tag: "span", Text: "Edit List details"},
	}
	result := FilterByText(elements, "Edit List")
	if len(result) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(result))
	}
	if result[0].Text != "Edit List" || result[1].Text != "Edit List details" {
		t.Errorf("unexpected order: %q, %q", result[0].Text, result[1].Text)
	}
}

func TestFilterByText_CaseSensitive(t *testing.T) {
	elements := []Element{{Tag: "button", Text: "add"}}
	if got := FilterByText(elements, "Add"); len(got) != 0 {
		t.Errorf("expected no match for different case, got %d", len(got))
	}
}

func TestFilterByText_EmptyNeedle(t *testing.T) {
	elements := []Element{{Tag: "a"}, {Tag: "b"}}
	if got := FilterByText(elements, ""); len(got) != 2 {
		t.Errorf("empty text should match everything, got %d", len(got))
	}
}

func TestFilterVisible_PreservesOrder(t *testing.T) {
	elements := []Element{
		{Tag: "a", Visible: true},
		{Tag: "b", Visible: false},
		{Tag: "c", Visible: true},
	}
	result := FilterVisible(elements)
	if len(result) != 2 || result[0].Tag != "a" || result[1].Tag != "c" {
		t.Errorf("got %+v, want [a c]", result)
	}
}

func TestHitTest_LaterElementWins(t *testing.T) {
	elements := []Element{
		{Tag: "div", Bounds: [4]int{0, 0, 200, 200}, Visible: true},
		{Tag: "button", Bounds: [4]int{10, 10, 50, 20}, Visible: true},
		{Tag: "span", Bounds: [4]int{10, 10, 50, 20}, Visible: false},
	}
	got, ok := HitTest(elements, 15, 15)
	if !ok || got.Tag != "button" {
		t.Errorf("got (%q, %v), want button", got.Tag, ok)
	}
	got, ok = HitTest(elements, 150, 150)
	if !ok || got.Tag != "div" {
		t.Errorf("got (%q, %v), want div", got.Tag, ok)
	}
	if _, ok := HitTest(elements, 300, 300); ok {
		t.Error("point outside every box should not hit")
	}
}
