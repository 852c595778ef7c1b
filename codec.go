package statewire

import "github.com/zoobzio/statewire/wire"

// Codec translates between raw bytes and the wire value model. The engines
// never touch bytes directly; a codec is the only component that does.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes a wire value into bytes.
	Marshal(v wire.Value) ([]byte, error)

	// Unmarshal decodes bytes into a wire value. Object member order must
	// be preserved where the format has one; duplicate keys must either be
	// preserved or rejected with an error, never silently collapsed.
	Unmarshal(data []byte) (wire.Value, error)
}
