package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// MockTwitchServer mocks Twitch Helix API responses per path.
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockUserResponse adds a handler for the /users endpoint.
func (m *MockTwitchServer) MockUserResponse(userID, login string) {
	m.Handlers["/users"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": []map[string]string{
				{"id": userID, "login": login},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// MockStreamsResponse adds a handler for the /streams endpoint.
func (m *MockTwitchServer) MockStreamsResponse(streams []map[string]interface{}) {
	m.Handlers["/streams"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{"data": streams}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// MockClipsResponse adds a handler for the /clips endpoint.
func (m *MockTwitchServer) MockClipsResponse(clipData []map[string]string) {
	m.Handlers["/clips"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{"data": clipData}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// MockStartCommercial adds a handler for /channels/commercial that echoes
// the requested length.
func (m *MockTwitchServer) MockStartCommercial() {
	m.Handlers["/channels/commercial"] = func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Length int `json:"length"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		response := map[string]interface{}{
			"data": []map[string]interface{}{
				{"length": req.Length, "message": "", "retry_after": 480},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// MockDiscordServer mocks the handful of Discord REST calls the bot makes
// and records the messages it receives.
type MockDiscordServer struct {
	*httptest.Server
	Messages []map[string]interface{}
	nextID   int
}

func NewMockDiscordServer(t *testing.T) *MockDiscordServer {
	t.Helper()
	m := &MockDiscordServer{nextID: 1000}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		payload["_path"] = r.URL.Path
		m.Messages = append(m.Messages, payload)
		m.nextID++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": strconv.Itoa(m.nextID)})
	}))
	t.Cleanup(m.Close)
	return m
}
