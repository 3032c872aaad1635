package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractProcessingID_EnvelopeShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "flat worker response",
			body: `{"processingId":"x"}`,
			want: "x",
		},
		{
			name: "proxy wrapped under data.result",
			body: `{"data":{"result":{"processingId":"x"}}}`,
			want: "x",
		},
		{
			name: "proxy wrapped under data",
			body: `{"data":{"processingId":"x"}}`,
			want: "x",
		},
		{
			name: "flat wins over wrapped",
			body: `{"processingId":"flat","data":{"processingId":"wrapped"}}`,
			want: "flat",
		},
		{
			name: "data.result wins over data",
			body: `{"data":{"processingId":"outer","result":{"processingId":"inner"}}}`,
			want: "inner",
		},
		{
			name: "no id anywhere",
			body: `{"status":"accepted","data":{"result":{}}}`,
			want: "",
		},
		{
			name: "not json",
			body: `processing started`,
			want: "",
		},
		{
			name: "empty body",
			body: ``,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractProcessingID([]byte(tt.body)))
		})
	}
}
