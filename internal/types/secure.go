package types

const redactedPlaceholder = "[redacted]"

// SecretString holds a credential loaded from configuration. It prints and
// marshals as a placeholder so tokens never reach logs or config dumps.
// Unmask returns the raw value for the one place that needs it.
type SecretString string

// String returns the placeholder.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// GoString covers %#v.
func (s SecretString) GoString() string {
	return redactedPlaceholder
}

// MarshalJSON returns the placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// Unmask returns the raw value.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsSet reports whether a non-empty value was configured.
func (s SecretString) IsSet() bool {
	return s != ""
}
