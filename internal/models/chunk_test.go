package models

import (
	"strings"
	"testing"
)

func TestNewChunk(t *testing.T) {
	c, err := NewChunk("guide", "some text", 2, 0)
	if err != nil {
		t.Fatalf("NewChunk error: %v", err)
	}
	if c.ChunkID != "guide_0" {
		t.Errorf("ChunkID = %s", c.ChunkID)
	}
	if c.Source != "guide" || c.TokenCount != 2 || c.ChunkIndex != 0 {
		t.Errorf("unexpected chunk: %+v", c)
	}
}

func TestNewChunkRejectsInvalid(t *testing.T) {
	cases := []struct {
		name       string
		source     string
		text       string
		tokenCount int
		index      int
	}{
		{"empty source", "", "text", 1, 0},
		{"empty text", "src", "", 1, 0},
		{"negative token count", "src", "text", -1, 0},
		{"negative index", "src", "text", 1, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewChunk(tc.source, tc.text, tc.tokenCount, tc.index); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestChunkValidate(t *testing.T) {
	c, _ := NewChunk("doc", "body", 1, 3)
	if err := c.Validate(); err != nil {
		t.Errorf("valid chunk failed validation: %v", err)
	}
	c.ChunkID = "doc_7"
	err := c.Validate()
	if err == nil {
		t.Fatal("mismatched ID should fail validation")
	}
	if !strings.Contains(err.Error(), "doc_3") {
		t.Errorf("error should name the expected ID, got %v", err)
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("first-aid", 12); got != "first-aid_12" {
		t.Errorf("ChunkID = %s", got)
	}
}
