package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openta/adaptive/internal/config"
	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/intervention"
)

const signalLog = `
{"student_id":"s1","session_id":"a","signal_type":"multiple_hints","detected_at":"2026-10-05T14:00:00Z"}
{"student_id":"s2","session_id":"b","signal_type":"long_dwell","detected_at":"2026-10-05T14:00:30Z"}
{"student_id":"s1","session_id":"a","signal_type":"repeated_error","detected_at":"2026-10-05T14:01:00Z","metadata":{"topic":"arrays"}}

{"student_id":"s2","session_id":"b","signal_type":"long_dwell","detected_at":"2026-10-05T14:02:00Z"}
`

func TestReadSignals(t *testing.T) {
	signals, err := readSignals(strings.NewReader(signalLog))
	require.NoError(t, err)
	require.Len(t, signals, 4)
	assert.Equal(t, intervention.SignalRepeatedError, signals[2].Type)
	assert.Equal(t, "arrays", signals[2].Metadata["topic"])
}

func TestReadSignals_BadLine(t *testing.T) {
	tests := []string{
		`{"student_id":"s1"`,
		`{"student_id":"s1","session_id":"a","signal_type":"sneezing","detected_at":"2026-10-05T14:00:00Z"}`,
	}
	for _, line := range tests {
		_, err := readSignals(strings.NewReader(line))
		if err == nil {
			t.Errorf("readSignals(%q) = nil error, want error", line)
		}
	}
}

func TestReplaySignals(t *testing.T) {
	eng, err := engine.New(engine.Options{Config: config.DefaultConfig()})
	require.NoError(t, err)
	defer eng.Close()

	n, raised, err := replaySignals(context.Background(), eng, strings.NewReader(signalLog), 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, raised, "only s1 saw two distinct signal types")

	events, err := eng.Interventions(context.Background(), "s1", true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "arrays", events[0].Topic)
}

func TestParseExamDate(t *testing.T) {
	if _, err := parseExamDate(""); err == nil {
		t.Errorf("parseExamDate(\"\") = nil error, want error")
	}
	d, err := parseExamDate("2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, 20, d.Day())

	d, err = parseExamDate("2026-10-20T09:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 9, d.UTC().Hour())

	_, err = parseExamDate("next tuesday")
	assert.Error(t, err)
}
