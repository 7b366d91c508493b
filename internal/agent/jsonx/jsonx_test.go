package jsonx

import "testing"

type payload struct {
	Intent string `json:"intent"`
	Score  int    `json:"score"`
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    payload
		wantErr bool
	}{
		{
			name: "bare object",
			text: `{"intent": "chat", "score": 3}`,
			want: payload{Intent: "chat", Score: 3},
		},
		{
			name: "json fence",
			text: "Here you go:\n```json\n{\"intent\": \"chat\", \"score\": 1}\n```\nDone.",
			want: payload{Intent: "chat", Score: 1},
		},
		{
			name: "plain fence",
			text: "```\n{\"intent\": \"route\", \"score\": 2}\n```",
			want: payload{Intent: "route", Score: 2},
		},
		{
			name: "surrounded by prose",
			text: `Sure! The result is {"intent": "direct", "score": 5} as requested.`,
			want: payload{Intent: "direct", Score: 5},
		},
		{
			name: "braces inside strings",
			text: `{"intent": "say {hello}", "score": 7}`,
			want: payload{Intent: "say {hello}", Score: 7},
		},
		{
			name:    "no object",
			text:    "I could not produce structured output, sorry.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			text:    `{"intent": "chat", "score": 3`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := ExtractObject(tt.text, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractObject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ExtractObject() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
