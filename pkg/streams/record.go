package streams

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/kralicky/streamrelay/pkg/process"
)

// IDLength is the number of hex characters in a stream id.
const IDLength = 8

// NewID returns a short random stream id.
//
// The id is the leading part of a random uuid encoded in the raw hex format,
// which is easy to copy from a chat message or a terminal (many terminals
// treat '-' as a word separator).
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:IDLength]
}

// Record is a single active stream. Records are never modified after they
// are inserted into a Registry.
type Record struct {
	ID          string
	Source      string
	Destination string
	StartedAt   time.Time
	// Display only; the encoder settings come from the transcode profile.
	Bitrate string
	Handle  process.Handle
}
