package wp

import (
	"encoding/json"
	"testing"
)

func TestRenderedField_DecodesStringAndObject(t *testing.T) {
	var p Post
	payload := `{"id":3,"title":"Plain","content":{"raw":"<p>raw</p>","rendered":"<p>rendered</p>"},"status":"draft","categories":[4,5],"featured_media":0}`
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	if p.Title.Text() != "Plain" {
		t.Fatalf("title = %q", p.Title.Text())
	}
	if p.Content.Text() != "<p>raw</p>" {
		t.Fatalf("content raw = %q", p.Content.Text())
	}
	if cat, ok := p.PrimaryCategory(); !ok || cat != 4 {
		t.Fatalf("PrimaryCategory = %d,%v want 4,true", cat, ok)
	}
	if p.HasFeaturedMedia() {
		t.Fatalf("HasFeaturedMedia = true for id 0")
	}
}

func TestRenderedField_DisplayUnescapes(t *testing.T) {
	f := RenderedField{Rendered: " Tom &amp; Jerry&#8217;s "}
	if got := f.Display(); got != "Tom & Jerry’s" {
		t.Fatalf("Display = %q", got)
	}
}

func TestPost_ParsedDate(t *testing.T) {
	p := Post{Date: "2025-10-03T14:05:00"}
	d := p.ParsedDate()
	if d.IsZero() || d.Year() != 2025 || d.Month() != 10 || d.Hour() != 14 {
		t.Fatalf("ParsedDate = %v", d)
	}
	if !(Post{Date: "garbage"}).ParsedDate().IsZero() {
		t.Fatalf("expected zero time for unparsable date")
	}
}

func TestCreateRequest_AlwaysCarriesFeaturedMedia(t *testing.T) {
	body, err := json.Marshal(CreatePostRequest{PostFields: PostFields{Title: "t", Categories: []int{2}, Status: StatusDraft}})
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(body, &decoded)
	v, ok := decoded["featured_media"]
	if !ok || v != nil {
		t.Fatalf("featured_media = %v (present=%v), want null", v, ok)
	}

	body, err = json.Marshal(UpdatePostRequest{PostFields: PostFields{Title: "t"}})
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	decoded = nil
	_ = json.Unmarshal(body, &decoded)
	if _, ok := decoded["featured_media"]; ok {
		t.Fatalf("update body carries featured_media without an upload: %s", body)
	}
}

func TestTokenValidation_Valid(t *testing.T) {
	var v TokenValidation
	if v.Valid() {
		t.Fatalf("zero value should not be valid")
	}
	v.Code = "jwt_auth_valid_token"
	if !v.Valid() {
		t.Fatalf("expected valid")
	}
}
