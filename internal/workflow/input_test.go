package workflow

import (
	"reflect"
	"testing"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"commas", "alice, bob,carol", []string{"alice", " bob", "carol"}},
		{"newlines", "alice\nbob\r\ncarol\n", []string{"alice", "bob", "carol"}},
		{"mixed", "alice,\n\nbob", []string{"alice", "bob"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseList(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		marker string
		want   string
		ok     bool
	}{
		{"  @alice ", "@", "alice", true},
		{"alice", "@", "alice", true},
		{"@", "@", "", false},
		{"  @  ", "@", "", false},
		{"   ", "@", "", false},
		{"@@alice", "@", "@alice", true},
		{"#tag", "#", "tag", true},
		{"@alice", "", "@alice", true},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in, tt.marker)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Normalize(%q, %q): got (%q, %v), want (%q, %v)", tt.in, tt.marker, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeAll_KeepsOrderAndDuplicates(t *testing.T) {
	got := NormalizeAll(ParseList("@bob, ,alice,\n@, bob"), "@")
	want := []string{"bob", "alice", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
