package factory

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channel struct {
	URL     string
	Retries int
	Timeout time.Duration
}

func channelFactory(conf map[string]any) (channel, error) {
	var c struct {
		URL     string        `json:"url"`
		Retries int           `json:"retries"`
		Timeout time.Duration `json:"timeout"`
	}
	if err := Decode(conf, &c); err != nil {
		return channel{}, err
	}
	return channel{URL: c.URL, Retries: c.Retries, Timeout: c.Timeout}, nil
}

func TestCreateDecodesLooseValues(t *testing.T) {
	reg := NewRegistry[channel]()
	require.NoError(t, reg.Register("webhook", channelFactory))

	// env overrides arrive as strings
	ch, err := reg.Create(ModuleConfig{Type: "webhook", Conf: map[string]any{
		"url":     "http://ops.local/alerts",
		"retries": "4",
		"timeout": "1500ms",
	}})
	require.NoError(t, err)
	assert.Equal(t, channel{URL: "http://ops.local/alerts", Retries: 4, Timeout: 1500 * time.Millisecond}, ch)

	_, err = reg.Create(ModuleConfig{Type: "webhook", Conf: map[string]any{"timeout": "soon"}})
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry[channel]()
	require.NoError(t, reg.Register("sms", channelFactory))
	require.NoError(t, reg.Register("log", channelFactory))

	assert.Error(t, reg.Register("sms", channelFactory))
	assert.Error(t, reg.Register("pager", nil))
	assert.Equal(t, []string{"log", "sms"}, reg.Types())

	_, err := reg.Create(ModuleConfig{Type: "carrier-pigeon"})
	require.Error(t, err)
	if !strings.Contains(err.Error(), "[log sms]") {
		t.Fatalf("error should list known types: %v", err)
	}
}
