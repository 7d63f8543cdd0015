package vision_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mushimap-backend/vision"
)

// An unconfigured oracle must block classification but never block
// commentary generation.
func TestNilClientBehavior(t *testing.T) {
	var c *vision.Client
	ctx := context.Background()

	if _, err := c.AnalyzeImage(ctx, "data:image/jpeg;base64,xxxx"); !errors.Is(err, vision.ErrNotConfigured) {
		t.Errorf("AnalyzeImage err = %v, want ErrNotConfigured", err)
	}
	if _, err := c.AnalyzeImageDetailed(ctx, "data:image/jpeg;base64,xxxx"); !errors.Is(err, vision.ErrNotConfigured) {
		t.Errorf("AnalyzeImageDetailed err = %v, want ErrNotConfigured", err)
	}

	details := c.DescribeFind(ctx, "カブトムシ", 35.6762, 139.6503)
	if details.Description == "" {
		t.Error("DescribeFind on nil client must return a placeholder description")
	}
	if !strings.Contains(details.Description, "APIキー") {
		t.Errorf("placeholder should mention the missing key, got %q", details.Description)
	}
	if details.Links == nil || len(details.Links) != 0 {
		t.Errorf("links = %v, want empty slice", details.Links)
	}
}
