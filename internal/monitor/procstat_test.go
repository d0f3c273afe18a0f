package monitor

import "testing"

func TestParseProcStatPPID(t *testing.T) {
	tests := []struct {
		name string
		stat string
		want int
	}{
		{
			name: "normal process",
			stat: "5678 (claude) S 1234 5678 5678 0 -1 4194304 ...",
			want: 1234,
		},
		{
			name: "comm with spaces",
			stat: "5678 (my process) S 1234 5678 5678 0 -1 4194304 ...",
			want: 1234,
		},
		{
			name: "comm with parens",
			stat: "5678 (my (proc)) S 1234 5678 5678 0 -1 4194304 ...",
			want: 1234,
		},
		{
			name: "empty string",
			stat: "",
			want: 0,
		},
		{
			name: "no closing paren",
			stat: "5678 (claude S 1234",
			want: 0,
		},
		{
			name: "truncated after paren",
			stat: "5678 (claude)",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseProcStatPPID(tt.stat)
			if got != tt.want {
				t.Errorf("parseProcStatPPID(%q) = %d, want %d", tt.stat, got, tt.want)
			}
		})
	}
}
