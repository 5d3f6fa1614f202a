package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peerlink/signaling/config"
)

func getCredentials(t *testing.T, cfg config.TURNConfig) TURNCredentialsResponse {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/turn-credentials", TURNCredentials(cfg))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/turn-credentials", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var resp TURNCredentialsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp
}

func TestStaticCredentials(t *testing.T) {
	resp := getCredentials(t, config.TURNConfig{
		URL:        "turn:127.0.0.1:3478",
		Username:   "username1",
		Credential: "key1",
	})
	if resp.URL != "turn:127.0.0.1:3478" || resp.Username != "username1" || resp.Credential != "key1" {
		t.Fatalf("unexpected static credentials: %+v", resp)
	}
	if resp.TTL != 0 {
		t.Fatalf("static credentials carry no TTL, got %d", resp.TTL)
	}
}

func TestRESTCredentials(t *testing.T) {
	resp := getCredentials(t, config.TURNConfig{
		URL:    "turn:relay.example.com:3478",
		Secret: "shh",
		TTL:    time.Hour,
	})

	parts := strings.SplitN(resp.Username, ":", 2)
	if len(parts) != 2 {
		t.Fatalf("REST username must be <expiry>:<session>, got %q", resp.Username)
	}
	expiry, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		t.Fatalf("bad expiry in %q: %v", resp.Username, err)
	}
	if remaining := expiry - time.Now().Unix(); remaining <= 0 || remaining > 3600 {
		t.Fatalf("expiry out of range: %ds remaining", remaining)
	}

	mac := hmac.New(sha1.New, []byte("shh"))
	mac.Write([]byte(resp.Username))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if resp.Credential != want {
		t.Fatalf("credential is not hmac(secret, username): got %q want %q", resp.Credential, want)
	}
	if resp.TTL != 3600 {
		t.Fatalf("expected ttl 3600, got %d", resp.TTL)
	}
}
