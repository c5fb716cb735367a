package types

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:telegram-bot-token"

func TestSecretString_Formatting(t *testing.T) {
	s := SecretString(testToken)

	for _, verb := range []string{"%s", "%v", "%+v", "%#v"} {
		out := fmt.Sprintf(verb, s)
		assert.NotContains(t, out, testToken, verb)
		assert.Contains(t, out, redactedPlaceholder, verb)
	}
}

func TestSecretString_MarshalJSON_InStruct(t *testing.T) {
	cfg := struct {
		Token SecretString `json:"token"`
		Name  string       `json:"name"`
	}{Token: SecretString(testToken), Name: "bot"}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"[redacted]","name":"bot"}`, string(data))
}

func TestSecretString_Unmask(t *testing.T) {
	assert.Equal(t, testToken, SecretString(testToken).Unmask())
	assert.True(t, SecretString(testToken).IsSet())
	assert.False(t, SecretString("").IsSet())
}
