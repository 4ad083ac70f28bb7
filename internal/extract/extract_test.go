package extract

import "testing"

func TestPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "fenced",
			raw:  "```translated text```",
			want: "translated text",
		},
		{
			name: "fenced multiline",
			raw:  "```line one\nline two\n```",
			want: "line one\nline two\n",
		},
		{
			name: "fenced with leading chatter",
			raw:  "Here is the translation:\n```payload```\nHope that helps!",
			want: "payload",
		},
		{
			name: "unfenced fallback",
			raw:  "plain translated text",
			want: "plain translated text",
		},
		{
			name: "stray fence stripped in fallback",
			raw:  "text with a stray ``` marker",
			want: "text with a stray  marker",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
		{
			name: "first fenced region wins",
			raw:  "```first``` and ```second```",
			want: "first",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Payload(tt.raw); got != tt.want {
				t.Errorf("Payload(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPayloadFenceRoundTrip(t *testing.T) {
	payload := "some translated \\LaTeX{} content\nwith lines"
	if got := Payload("```" + payload + "```"); got != payload {
		t.Errorf("round trip = %q, want %q", got, payload)
	}
}

func TestPayloadIdempotentOnUnfenced(t *testing.T) {
	raw := "already unfenced output"
	once := Payload(raw)
	if twice := Payload(once); twice != once {
		t.Errorf("Payload(Payload(x)) = %q, want %q", twice, once)
	}
}
