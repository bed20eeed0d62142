package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		path    string
		wantErr bool
		want    string
	}{
		{name: "identity function accepted", path: "testdata/identity.yaml", want: "valid\n"},
		{name: "stack underflow rejected", path: "testdata/underflow.yaml", wantErr: true},
		{name: "duplicate export rejected", path: "testdata/duplicate_export.yaml", wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			err := runValidate(out, tc.path)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, out.String(), "invalid:")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestRunValidateMissingFile(t *testing.T) {
	err := runValidate(new(bytes.Buffer), "testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.NotEqual(t, errInvalidModule, err)
}
