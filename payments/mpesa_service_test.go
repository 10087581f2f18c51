package payments

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeMpesaNumber(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "local 07 format", input: "0712345678", want: "254712345678"},
		{name: "local 01 format", input: "0112345678", want: "254112345678"},
		{name: "bare 7 format", input: "712345678", want: "254712345678"},
		{name: "already international", input: "254712345678", want: "254712345678"},
		{name: "with punctuation", input: "+254 712-345-678", want: "254712345678"},
		{name: "too short", input: "07123", wantErr: true},
		{name: "wrong prefix", input: "0812345678", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizeMpesaNumber(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
