package registry

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pders01/modelkeep/internal/models"
)

// artifactMagic prefixes every runtime-compatible artifact. Bytes without
// it are corrupt or from an incompatible release.
var artifactMagic = []byte("MKMODEL1\n")

// Handle is the in-memory runtime form of a compiled artifact. At most one
// live handle exists per identity, owned by the cache entry.
type Handle struct {
	// Identity is the model role this handle serves.
	Identity models.Identity

	// Digest is the hex SHA-256 of the artifact the handle was compiled
	// from.
	Digest string

	// Payload is the runtime-ready model body, opaque to the loader.
	Payload []byte

	// LoadedAt is when the handle was compiled.
	LoadedAt time.Time
}

// Compile parses artifact bytes into a runtime handle.
// Returns ErrParse when the bytes are not a runtime-compatible artifact.
func Compile(id models.Identity, digest string, data []byte) (*Handle, error) {
	if !bytes.HasPrefix(data, artifactMagic) {
		return nil, fmt.Errorf("%w: bad artifact header for %s", models.ErrParse, id)
	}

	payload := data[len(artifactMagic):]
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty artifact body for %s", models.ErrParse, id)
	}

	return &Handle{
		Identity: id,
		Digest:   digest,
		Payload:  payload,
		LoadedAt: time.Now(),
	}, nil
}

// EncodeArtifact frames a model body as artifact bytes. The inverse of
// Compile, used by trainers and packaging.
func EncodeArtifact(body []byte) []byte {
	out := make([]byte, 0, len(artifactMagic)+len(body))
	out = append(out, artifactMagic...)
	return append(out, body...)
}
