package ledger

import "testing"

func TestNextVersion(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		changeSet []string
		want      string
		wantErr   bool
	}{
		{
			name:      "manifest change bumps minor and resets patch",
			current:   "v1.2.3",
			changeSet: []string{"package.json"},
			want:      "v1.3.0",
		},
		{
			name:      "source change bumps patch",
			current:   "v1.2.3",
			changeSet: []string{"src/App.js"},
			want:      "v1.2.4",
		},
		{
			name:      "manifest dominates mixed change set",
			current:   "v1.2.3",
			changeSet: []string{"server.js", "package.json", "src/App.js"},
			want:      "v1.3.0",
		},
		{
			name:      "empty change set still bumps patch",
			current:   "v1.0.0",
			changeSet: nil,
			want:      "v1.0.1",
		},
		{
			name:      "unparseable version is an error",
			current:   "one.two",
			changeSet: []string{"src/App.js"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextVersion(tt.current, tt.changeSet)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NextVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NextVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}
