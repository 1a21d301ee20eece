package extract

import "testing"

func TestVisibleText(t *testing.T) {
	got, err := VisibleText(`<div><p>Wash your <b>faces</b>.</p><script>var x;</script><sup>[1]</sup></div>`)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "Wash your faces ." {
		t.Errorf("VisibleText = %q", got)
	}

	if got, _ := VisibleText("   "); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
}
