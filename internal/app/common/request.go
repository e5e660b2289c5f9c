// Package common holds request helpers shared by every HTTP handler.
package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

const callerKey = "voyage.caller"

// UnknownIP is used when no address can be resolved. Every such request
// shares one usage ledger entry.
const UnknownIP = models.UnknownIP

// ForwardingHeaders are read, in order, when the peer is a trusted proxy.
var ForwardingHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// TrustProxies makes r resolve client addresses from ForwardingHeaders only
// when the socket peer is one of proxies. An empty list trusts no one.
func TrustProxies(r *gin.Engine, proxies []string) error {
	r.ForwardedByClientIP = true
	r.RemoteIPHeaders = ForwardingHeaders
	return r.SetTrustedProxies(proxies)
}

// ClientIP resolves the address used as the anonymous identity. Forwarding
// headers count only when the engine trusts the peer (see TrustProxies).
func ClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return UnknownIP
}

// SetCaller stores the authenticated identity on the request.
func SetCaller(c *gin.Context, caller models.Caller) {
	c.Set(callerKey, caller)
}

// Caller returns the identity of the request. Anonymous requests get a Caller
// with only the IP filled in.
func Caller(c *gin.Context) models.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(models.Caller); ok {
			caller.IP = ClientIP(c)
			return caller
		}
	}
	return models.Caller{IP: ClientIP(c)}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	caller := Caller(c)
	if caller.UserID == nil {
		return uuid.Nil, false
	}
	return *caller.UserID, true
}
