package graph_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/xuan-brain/xuan-brain/internal/graph"
)

func TestNewRecordID_String(t *testing.T) {
	tests := []struct {
		name  string
		table string
		key   any
		want  string
	}{
		{"int", "paper", 1, "paper:1"},
		{"int32", "category", int32(12), "category:12"},
		{"int64", "author", int64(9000000000), "author:9000000000"},
		{"string", "label", "abc", "label:abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.NewRecordID(tt.table, tt.key).String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRecordID(t *testing.T) {
	tests := []struct {
		in      string
		want    graph.RecordID
		wantErr bool
	}{
		{"paper:1", graph.RecordID{Table: "paper", Key: "1"}, false},
		{"paper_author:01HV0000000000000000000000", graph.RecordID{Table: "paper_author", Key: "01HV0000000000000000000000"}, false},
		{"paper", graph.RecordID{}, true},
		{"paper:", graph.RecordID{}, true},
		{"Paper:1", graph.RecordID{}, true},
		{"1paper:1", graph.RecordID{}, true},
		{":1", graph.RecordID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := graph.ParseRecordID(tt.in)
			if tt.wantErr {
				if !errors.Is(err, graph.ErrInvalidRecordID) {
					t.Errorf("ParseRecordID(%q) error = %v, want ErrInvalidRecordID", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecordID(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseRecordID(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRecordID_IntKey(t *testing.T) {
	n, err := graph.NewRecordID("paper", 42).IntKey()
	if err != nil || n != 42 {
		t.Errorf("IntKey() = %d, %v; want 42, nil", n, err)
	}
	if _, err := graph.NewRecordID("paper", "x").IntKey(); err == nil {
		t.Error("IntKey() of a string key should fail")
	}
}

func TestRecordID_JSON(t *testing.T) {
	type doc struct {
		Parent *graph.RecordID `json:"parent"`
		Paper  graph.RecordID  `json:"paper"`
	}

	in := doc{Paper: graph.NewRecordID("paper", 3)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"parent":null,"paper":"paper:3"}` {
		t.Errorf("Marshal = %s", data)
	}

	var out doc
	if err := json.Unmarshal([]byte(`{"parent":"category:1","paper":"paper:3"}`), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Parent == nil || out.Parent.String() != "category:1" {
		t.Errorf("Parent = %v, want category:1", out.Parent)
	}
	if out.Paper.String() != "paper:3" {
		t.Errorf("Paper = %v, want paper:3", out.Paper)
	}
}
