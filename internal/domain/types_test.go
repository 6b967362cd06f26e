package domain

import (
	"encoding/json"
	"testing"
)

func TestProjectJSONRoundTrip(t *testing.T) {
	p := Project{
		Name: "RoundTrip",
		Pages: []Page{
			{Number: 1, Panels: []Panel{{
				ID:       "a",
				Type:     PanelVideo,
				URL:      "https://example.com/v.mp4",
				Position: Position{Row: 1, Col: 2, RowSpan: 2, ColSpan: 1},
				Caption:  "hello",
			}}},
		},
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != p.Name || len(got.Pages) != 1 || len(got.Pages[0].Panels) != 1 {
		t.Fatalf("unexpected structure: %+v", got)
	}
	if got.Pages[0].Panels[0].Position != p.Pages[0].Panels[0].Position {
		t.Fatalf("position mismatch: %+v", got.Pages[0].Panels[0].Position)
	}
}

func TestPositionNormalized(t *testing.T) {
	got := Position{Row: 3, Col: 1}.Normalized()
	if got.RowSpan != 1 || got.ColSpan != 1 {
		t.Fatalf("expected default spans of 1, got %+v", got)
	}
	got = Position{RowSpan: -2, ColSpan: 3}.Normalized()
	if got.RowSpan != 1 || got.ColSpan != 3 {
		t.Fatalf("unexpected normalization: %+v", got)
	}
}

func TestParsePanelType(t *testing.T) {
	cases := map[string]PanelType{
		"image": PanelImage, "VIDEO": PanelVideo, " gif ": PanelGIF, "3d": Panel3D, "text": PanelText, "other": PanelText,
	}
	for in, want := range cases {
		if got := ParsePanelType(in); got != want {
			t.Fatalf("ParsePanelType(%q) = %q, want %q", in, got, want)
		}
	}
}
