package http

import (
	"net/http"

	"github.com/dkeye/Vision/internal/app"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/gin-gonic/gin"
)

type clientStatus struct {
	Connection string   `json:"connection"`
	Subscribed []string `json:"subscribed,omitempty"`
}

// healthHandler returns the summary counts.
func healthHandler(reg *app.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		cameras, viewers := reg.Counts()
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"sfu":           "active",
			"cameras":       cameras,
			"viewers":       viewers,
			"total_clients": cameras + viewers,
		})
	}
}

// statusHandler returns per-client connection state and subscription lists,
// split by role.
func statusHandler(reg *app.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		cameras := make(map[string]clientStatus)
		viewers := make(map[string]clientStatus)
		for _, sess := range reg.Snapshot() {
			st := clientStatus{Connection: sess.State().String()}
			if sess.Role() == domain.RolePublisher {
				cameras[string(sess.ID())] = st
				continue
			}
			for _, sub := range sess.Subscriptions() {
				st.Subscribed = append(st.Subscribed, string(sub))
			}
			viewers[string(sess.ID())] = st
		}
		c.JSON(http.StatusOK, gin.H{
			"cameras": cameras,
			"viewers": viewers,
		})
	}
}
