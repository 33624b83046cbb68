package synthesis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Synthesize(t *testing.T) {
	expected := SynthesizeResponse{
		Drafts: []RecipeDraft{{
			Title:         "Mapo Tofu",
			OriginCountry: "China",
			Ingredients:   []string{"tofu", "doubanjiang", "ground pork"},
			Steps:         []string{"Press the tofu.", "Fry the paste."},
			CulturalNotes: "A Sichuan classic.",
			Difficulty:    "medium",
		}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/synthesize", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req SynthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mapo tofu", req.Query)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expected)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", logrus.New())

	resp, err := client.Synthesize(context.Background(), SynthesizeRequest{Query: "mapo tofu"})
	require.NoError(t, err)
	require.Len(t, resp.Drafts, 1)
	assert.Equal(t, "Mapo Tofu", resp.Drafts[0].Title)
	assert.Equal(t, "China", resp.Drafts[0].OriginCountry)
}

func TestClient_ZeroDraftsIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SynthesizeResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", logrus.New())

	resp, err := client.Synthesize(context.Background(), SynthesizeRequest{Query: "unknowable dish"})
	require.NoError(t, err)
	assert.Empty(t, resp.Drafts)
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", logrus.New())

	_, err := client.Synthesize(context.Background(), SynthesizeRequest{Query: "anything"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
