package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltworks/tourneyd/protocol"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://poker.example.com", "wss://poker.example.com/ws"},
		{"ws://localhost:8080", "ws://localhost:8080/ws"},
		{"wss://poker.example.com/custom", "wss://poker.example.com/custom"},
	}
	for _, tt := range tests {
		c, err := NewClient(Config{URL: tt.url, Name: "bot"}, AgentFunc(nil))
		require.NoError(t, err)
		got, err := c.endpoint()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestNewClientRequiresURLAndName(t *testing.T) {
	_, err := NewClient(Config{Name: "bot"}, AgentFunc(nil))
	assert.Error(t, err)
	_, err = NewClient(Config{URL: "http://localhost"}, AgentFunc(nil))
	assert.Error(t, err)
}

func TestRespondEchoesRouting(t *testing.T) {
	req := protocol.ActionRequest{TableID: "t1", HandID: "h1", Seq: 42}
	resp := Respond(req, "raise", 300)
	assert.Equal(t, "t1", resp.TableID)
	assert.Equal(t, "h1", resp.HandID)
	assert.Equal(t, 42, resp.Seq)
	assert.Equal(t, "raise", resp.Kind)
	assert.Equal(t, 300, resp.Amount)
}
