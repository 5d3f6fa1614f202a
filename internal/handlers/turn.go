package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peerlink/signaling/config"
)

// TURNCredentialsResponse is the relay-server credential triple handed
// to clients before they open a peer connection.
type TURNCredentialsResponse struct {
	URL        string `json:"url"`
	Username   string `json:"username"`
	Credential string `json:"credential"`
	TTL        int64  `json:"ttl,omitempty"`
}

// TURNCredentials serves relay-server credentials. Without a shared
// secret it returns the statically configured triple. With one it
// generates coturn-compatible TURN REST credentials instead:
//
//	username   = <unix expiry>:<random session>
//	credential = base64(hmac_sha1(secret, username))
func TURNCredentials(cfg config.TURNConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Secret == "" {
			c.JSON(http.StatusOK, TURNCredentialsResponse{
				URL:        cfg.URL,
				Username:   cfg.Username,
				Credential: cfg.Credential,
			})
			return
		}

		username, credential := restCredentials(cfg.Secret, cfg.TTL, time.Now())
		c.JSON(http.StatusOK, TURNCredentialsResponse{
			URL:        cfg.URL,
			Username:   username,
			Credential: credential,
			TTL:        int64(cfg.TTL.Seconds()),
		})
	}
}

func restCredentials(secret string, ttl time.Duration, now time.Time) (username, credential string) {
	expiry := now.UTC().Add(ttl).Unix()
	username = fmt.Sprintf("%d:%s", expiry, uuid.NewString())
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	credential = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return username, credential
}
