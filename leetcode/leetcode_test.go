package leetcode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoadRatings(t *testing.T) {
	tsv := "Rating\tID\tTitle\tTitle ZH\tTitle Slug\tContest\tProblem\n" +
		"1347.3766638\t1\tTwo Sum\t两数之和\ttwo-sum\t\t\n" +
		"1352.1234\t15\t3Sum\t三数之和\t3sum\t\t\n" +
		"garbage line without tabs\n" +
		"2113.5\t42\tTrapping Rain Water\t\ttrapping-rain-water\t\t\n"
	// The header row and malformed lines parse to nothing and are skipped.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(tsv))
	}))
	t.Cleanup(srv.Close)

	c := NewClient()
	c.RatingsURL = srv.URL
	if err := c.LoadRatings(context.Background()); err != nil {
		t.Fatalf("LoadRatings: %v", err)
	}

	if r, ok := c.Rating(1); !ok || r != 1347.3766638 {
		t.Fatalf("Rating(1) = %v, %v", r, ok)
	}
	if r, ok := c.Rating(15); !ok || r != 1352.1234 {
		t.Fatalf("Rating(15) = %v, %v", r, ok)
	}
	if r, ok := c.Rating(42); !ok || r != 2113.5 {
		t.Fatalf("Rating(42) = %v, %v", r, ok)
	}
	if _, ok := c.Rating(9999); ok {
		t.Fatal("Rating(9999) reported known for an absent id")
	}
}

func TestFetchProblem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["titleSlug"] != "two-sum" {
			http.Error(w, "wrong slug", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"question":{
			"questionId":"1","title":"Two Sum","difficulty":"Easy",
			"topicTags":[{"name":"Array"},{"name":"Hash Table"}]}}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient()
	c.GraphQLURL = srv.URL
	p, err := c.FetchProblem(context.Background(), "two-sum")
	if err != nil {
		t.Fatalf("FetchProblem: %v", err)
	}
	if p == nil {
		t.Fatal("FetchProblem returned nil for a known problem")
	}
	if p.ID != 1 || p.Title != "Two Sum" || p.Difficulty != "Easy" {
		t.Fatalf("problem = %+v", p)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "Array" {
		t.Fatalf("tags = %v", p.Tags)
	}
}

func TestFetchProblemMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"question":null}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient()
	c.GraphQLURL = srv.URL
	p, err := c.FetchProblem(context.Background(), "no-such-problem")
	if err != nil {
		t.Fatalf("FetchProblem: %v", err)
	}
	if p != nil {
		t.Fatalf("FetchProblem = %+v for a missing problem, want nil", p)
	}
}

func TestRecentAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"recentAcSubmissionList":[
			{"id":"111","titleSlug":"two-sum","timestamp":"1748800000"},
			{"id":"110","titleSlug":"3sum","timestamp":"1748790000"}]}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient()
	c.GraphQLURL = srv.URL
	subs, err := c.RecentAccepted(context.Background(), "somestreamer", 10)
	if err != nil {
		t.Fatalf("RecentAccepted: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("submissions = %d, want 2", len(subs))
	}
	if subs[0].ID != "111" || subs[0].TitleSlug != "two-sum" {
		t.Fatalf("first submission = %+v", subs[0])
	}
}

func TestSubmissionURL(t *testing.T) {
	if got := SubmissionURL("12345"); got != "https://leetcode.com/submissions/detail/12345/" {
		t.Fatalf("SubmissionURL = %q", got)
	}
}
