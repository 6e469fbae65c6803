package models

import "fmt"

// Identity names one logical on-device model role
type Identity string

const (
	IntentClassifier  Identity = "intent-classifier"
	TextGenerator     Identity = "text-generator"
	SentimentAnalyzer Identity = "sentiment-analyzer"
)

// AllIdentities returns every model role known at build time
func AllIdentities() []Identity {
	return []Identity{
		IntentClassifier,
		TextGenerator,
		SentimentAnalyzer,
	}
}

// ParseIdentity converts a string to a known Identity
func ParseIdentity(s string) (Identity, error) {
	for _, id := range AllIdentities() {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIdentity, s)
}

// String returns the identity's stable name
func (id Identity) String() string {
	return string(id)
}

// Valid reports whether the identity is one of the known roles
func (id Identity) Valid() bool {
	_, err := ParseIdentity(string(id))
	return err == nil
}

// ArtifactName returns the deterministic artifact file name for the identity
// Format: <identity>.model
func (id Identity) ArtifactName() string {
	return string(id) + ".model"
}
