package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
)

const openAlexResults = `{
  "results": [
    {
      "id": "https://openalex.org/W2741809807",
      "title": "Splatting   Radiance Fields",
      "doi": "https://doi.org/10.1234/splat.2025",
      "publication_date": "2025-11-05",
      "abstract_inverted_index": {"rocks": [2], "Gaussian": [0], "splatting": [1]},
      "authorships": [
        {"author": {"display_name": "Grace Hopper"}},
        {"author": {"display_name": "Katherine Johnson"}}
      ],
      "primary_location": {"source": {"display_name": "NeurIPS"}, "pdf_url": ""},
      "open_access": {"oa_url": "https://host.example/splat.pdf"}
    },
    {
      "id": "https://openalex.org/W999",
      "title": "Work Without Abstract",
      "doi": null,
      "publication_date": "2025-11-05",
      "abstract_inverted_index": null,
      "authorships": []
    },
    {
      "id": "https://openalex.org/W4242",
      "title": "Preprint Without DOI",
      "doi": null,
      "publication_date": "2025-11-03",
      "abstract_inverted_index": {"Splats": [0], "everywhere": [1]},
      "authorships": [{"author": {"display_name": "Ada Lovelace"}}]
    }
  ]
}`

func TestOpenAlexSearch(t *testing.T) {
	t.Parallel()

	var gotMailto, gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works" {
			t.Errorf("path = %q, want /works", r.URL.Path)
		}
		gotMailto = r.URL.Query().Get("mailto")
		gotFilter = r.URL.Query().Get("filter")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openAlexResults))
	}))
	defer srv.Close()

	client := NewOpenAlexClient(testFetcher(), srv.URL, "lab@example.edu", 0, testLogger())
	since := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	papers, err := client.Search(context.Background(), []string{"gaussian splatting"}, since, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotMailto != "lab@example.edu" {
		t.Fatalf("mailto = %q", gotMailto)
	}
	if gotFilter != "from_publication_date:2025-11-01" {
		t.Fatalf("filter = %q", gotFilter)
	}
	if len(papers) != 2 {
		t.Fatalf("papers = %d, want 2 (abstract-less work dropped)", len(papers))
	}

	p := papers[0]
	if p.ExternalID != "10.1234/splat.2025" {
		t.Fatalf("ExternalID = %q, want bare doi", p.ExternalID)
	}
	if p.NativeID != "" {
		t.Fatalf("NativeID = %q, the doi should identify this work", p.NativeID)
	}
	if p.Abstract != "Gaussian splatting rocks" {
		t.Fatalf("Abstract = %q, inverted index badly reconstructed", p.Abstract)
	}
	if p.Title != "Splatting Radiance Fields" {
		t.Fatalf("Title = %q", p.Title)
	}
	if p.Venue != "NeurIPS" || p.Year != 2025 || p.Source != domain.SourceOpenAlex {
		t.Fatalf("metadata = %q/%d/%q", p.Venue, p.Year, p.Source)
	}
	if p.URL != "https://host.example/splat.pdf" {
		t.Fatalf("URL = %q, want open-access pdf", p.URL)
	}
	if len(p.Authors) != 2 || p.Authors[1] != "Katherine Johnson" {
		t.Fatalf("Authors = %v", p.Authors)
	}

	noDOI := papers[1]
	if noDOI.NativeID != "W4242" || noDOI.ExternalID != "" {
		t.Fatalf("no-doi work ids = (%q, %q), want the W-id fallback", noDOI.NativeID, noDOI.ExternalID)
	}
}

func TestOpenAlexSearchUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewOpenAlexClient(testFetcher(), srv.URL, "lab@example.edu", 0, testLogger())
	_, err := client.Search(context.Background(), []string{"x"}, time.Now(), 10)
	if err == nil {
		t.Fatal("expected error for failing upstream")
	}
	assertSourceUnavailable(t, err)
}

func TestReconstructAbstract(t *testing.T) {
	t.Parallel()

	index := map[string][]int{
		"the":    {0, 3},
		"splats": {1},
		"beat":   {2},
		"meshes": {4},
	}
	got := reconstructAbstract(index)
	if got != "the splats beat the meshes" {
		t.Fatalf("reconstructAbstract = %q", got)
	}

	if reconstructAbstract(nil) != "" {
		t.Fatal("nil index should reconstruct to empty string")
	}
}
