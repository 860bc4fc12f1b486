package detect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sitewatch/internal/monitor"
)

func strptr(s string) *string { return &s }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lastHash *string
		newHash  string
		want     monitor.Classification
	}{
		{"no previous hash", nil, "abc", monitor.ClassFirstSeen},
		{"hash equal", strptr("abc"), "abc", monitor.ClassUnchanged},
		{"hash differs", strptr("abc"), "def", monitor.ClassChanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			target := monitor.Target{LastContentHash: tt.lastHash}
			require.Equal(t, tt.want, Classify(target, tt.newHash))
		})
	}
}

func TestEscalates(t *testing.T) {
	t.Parallel()

	require.True(t, Escalates(monitor.ClassFirstSeen))
	require.True(t, Escalates(monitor.ClassChanged))
	require.False(t, Escalates(monitor.ClassUnchanged))
}
