package firmware

import (
	"testing"

	"gotest.tools/assert"
)

func TestParseVersion(t *testing.T) {
	testcases := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "1.2.3", want: Version{Major: 1, Minor: 2, Patch: 3}},
		{in: "0.0.1", want: Version{Patch: 1}},
		{in: "2.10.0.7", want: Version{Major: 2, Minor: 10, Build: 7}},
		{in: " 1.2.3 ", want: Version{Major: 1, Minor: 2, Patch: 3}},
		{in: "1.2", wantErr: true},
		{in: "1.2.3.4.5", wantErr: true},
		{in: "1.2.x", wantErr: true},
		{in: "1.-2.3", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseVersion(tc.in)
			if tc.wantErr {
				assert.Check(t, err != nil, "expected parse error for %q", tc.in)
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, got, tc.want)
		})
	}
}

func TestVersionOrdering(t *testing.T) {
	ordered := []string{"0.9.9", "1.0.0", "1.0.1", "1.2.0", "1.2.3", "1.2.3.1", "1.10.0", "2.0.0"}

	for i := 0; i < len(ordered)-1; i++ {
		lo, err := ParseVersion(ordered[i])
		assert.NilError(t, err)
		hi, err := ParseVersion(ordered[i+1])
		assert.NilError(t, err)

		assert.Check(t, lo.Less(hi), "%s should sort before %s", ordered[i], ordered[i+1])
		assert.Check(t, !hi.Less(lo))
		assert.Equal(t, lo.Compare(hi), -1)
		assert.Equal(t, hi.Compare(lo), 1)
	}

	v, _ := ParseVersion("1.2.3")
	assert.Equal(t, v.Compare(v), 0)
	assert.Equal(t, v.String(), "1.2.3")

	b, _ := ParseVersion("1.2.3.4")
	assert.Equal(t, b.String(), "1.2.3.4")
}
