package model

import "strings"

// ContainsText reports whether the element's text content contains text.
// Matching is case-sensitive, like the :contains() pseudo-class it replaces.
// An empty needle matches everything.
func ContainsText(el Element, text string) bool {
	if text == "" {
		return true
	}
	return strings.Contains(el.Text, text)
}

// FilterByText keeps the elements whose text content contains text.
func FilterByText(elements []Element, text string) []Element {
	if text == "" {
		return elements
	}
	var result []Element
	for _, el := range elements {
		if ContainsText(el, text) {
			result = append(result, el)
		}
	}
	return result
}

// FilterVisible keeps only laid-out, unhidden elements, preserving order.
func FilterVisible(elements []Element) []Element {
	var result []Element
	for _, el := range elements {
		if el.Visible {
			result = append(result, el)
		}
	}
	return result
}

// boundsContain reports whether point (x, y) lies inside an [x, y, w, h] box.
func boundsContain(b [4]int, x, y int) bool {
	return x >= b[0] && x < b[0]+b[2] && y >= b[1] && y < b[1]+b[3]
}

// HitTest returns the last element in the slice whose bounds contain the
// point. Callers pass elements in document order, so later (deeper or
// overlaid) nodes win.
func HitTest(elements []Element, x, y int) (Element, bool) {
	for i := len(elements) - 1; i >= 0; i-- {
		if elements[i].Visible && boundsContain(elements[i].Bounds, x, y) {
			return elements[i], true
		}
	}
	return Element{}, false
}
