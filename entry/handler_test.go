package entry_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"mushimap-backend/entry"
	"mushimap-backend/vision"
)

type stubStore struct {
	entries []entry.Entry
}

func (s *stubStore) Create(_ context.Context, e *entry.Entry) error {
	s.entries = append(s.entries, *e)
	return nil
}
func (s *stubStore) ByUser(_ context.Context, userID string) ([]entry.Entry, error) {
	out := []entry.Entry{}
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (s *stubStore) All(context.Context) ([]entry.Entry, error) { return s.entries, nil }
func (s *stubStore) Get(_ context.Context, id string) (*entry.Entry, error) {
	for _, e := range s.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, nil
}
func (s *stubStore) Delete(_ context.Context, id string) error {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

type stubBlobs struct{}

func (stubBlobs) Upload(_ context.Context, publicID, _ string) (string, error) {
	return "https://img.example.com/" + publicID + ".jpg", nil
}

type stubClassifier struct {
	standardCalls int
	detailedCalls int
	err           error
}

func (s *stubClassifier) AnalyzeImage(context.Context, string) (*vision.Classification, error) {
	s.standardCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &vision.Classification{Name: "カブトムシ", Description: "大型の甲虫。"}, nil
}

func (s *stubClassifier) AnalyzeImageDetailed(context.Context, string) (*vision.Classification, error) {
	s.detailedCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &vision.Classification{Name: "カブトムシ", Description: "大型の甲虫。", Confidence: 95}, nil
}

type stubPremium struct{ active bool }

func (s stubPremium) IsPremiumActive(context.Context, string) bool { return s.active }

func setup(classifier entry.Classifier, premium entry.PremiumChecker) (*gin.Engine, *stubStore) {
	gin.SetMode(gin.TestMode)
	st := &stubStore{}
	svc := entry.NewService(st, stubBlobs{}, nil)
	h := entry.NewHandler(svc, classifier, premium)
	r := gin.New()
	asUser := func(c *gin.Context) { c.Set("user_id", "u1"); c.Next() }
	allowAll := func(c *gin.Context) { c.Next() }
	h.RegisterRoutes(r, asUser, allowAll)
	return r, st
}

func TestCreateAnnotatesPrefectureAndSeason(t *testing.T) {
	r, st := setup(&stubClassifier{}, stubPremium{})
	body := `{"name":"カブトムシ","memo":"","image":"data:image/jpeg;base64,xxxx","latitude":35.6762,"longitude":139.6503,"timestamp":1721989800000}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/entries", strings.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("code = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			ID         string `json:"id"`
			Prefecture string `json:"prefecture"`
			Season     string `json:"season"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 2024-07-26 in Tokyo.
	if resp.Data.Prefecture != "東京都" {
		t.Errorf("prefecture = %q", resp.Data.Prefecture)
	}
	if resp.Data.Season != "夏" {
		t.Errorf("season = %q", resp.Data.Season)
	}
	if len(st.entries) != 1 {
		t.Fatalf("persisted entries = %d", len(st.entries))
	}
}

func TestCreateRejectsMissingImage(t *testing.T) {
	r, _ := setup(&stubClassifier{}, stubPremium{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/entries", strings.NewReader(`{"name":"x"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestAnalyzeUsesDetailedModelForPremium(t *testing.T) {
	classifier := &stubClassifier{}
	r, _ := setup(classifier, stubPremium{active: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/entries/analyze", strings.NewReader(`{"image":"data:image/jpeg;base64,xxxx"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body=%s", w.Code, w.Body.String())
	}
	if classifier.detailedCalls != 1 || classifier.standardCalls != 0 {
		t.Errorf("detailed=%d standard=%d, premium must use the detailed analysis", classifier.detailedCalls, classifier.standardCalls)
	}
}

func TestAnalyzeUsesStandardModelForFree(t *testing.T) {
	classifier := &stubClassifier{}
	r, _ := setup(classifier, stubPremium{active: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/entries/analyze", strings.NewReader(`{"image":"data:image/jpeg;base64,xxxx"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if classifier.standardCalls != 1 || classifier.detailedCalls != 0 {
		t.Errorf("detailed=%d standard=%d, free plan must use the standard analysis", classifier.detailedCalls, classifier.standardCalls)
	}
}

func TestAnalyzeFailurePropagates(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("model unavailable")}
	r, _ := setup(classifier, stubPremium{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/entries/analyze", strings.NewReader(`{"image":"data:image/jpeg;base64,xxxx"}`)))
	if w.Code != http.StatusBadGateway {
		t.Errorf("code = %d, want 502", w.Code)
	}
}

func TestDeleteForeignEntryForbidden(t *testing.T) {
	r, st := setup(&stubClassifier{}, stubPremium{})
	st.entries = append(st.entries, entry.Entry{ID: "e1", UserID: "someone-else"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/entries/e1", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("code = %d, want 403", w.Code)
	}
}
