package waf

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

const blockedMessage = "Your request was flagged by our security filter and could not be processed."

type blockedResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

func writeBlocked(w http.ResponseWriter, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(blockedResponse{
		Error:     "Request blocked",
		Message:   blockedMessage,
		RequestID: requestID,
	})
}

const tooLargeMessage = "The request body exceeds the size this service inspects."

// writeTooLarge rejects a body that could not be inspected in full.
func writeTooLarge(w http.ResponseWriter, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	_ = json.NewEncoder(w).Encode(blockedResponse{
		Error:     "Request body too large",
		Message:   tooLargeMessage,
		RequestID: requestID,
	})
}

var requestCount uint32

// newRequestID is time-derived and only meant for correlation within one
// process.
func newRequestID(now time.Time) string {
	var buf [2]byte
	var suffix string
	if _, err := rand.Read(buf[:]); err == nil {
		suffix = hex.EncodeToString(buf[:])
	} else {
		suffix = fmt.Sprintf("%04x", atomic.AddUint32(&requestCount, 1)&0xffff)
	}
	return "waf_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + suffix
}
