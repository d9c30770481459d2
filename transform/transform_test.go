package transform

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	id := Identity()
	assert.True(t, id.IsIdentity())
	assert.False(t, id.IsNull())

	var null Transform
	assert.True(t, null.IsNull())
	assert.False(t, null.IsIdentity())
}

func TestTranslation(t *testing.T) {
	tr := New(1, 2, 3, 0, 0, 0)
	x, y, z := tr.Translation()
	assert.Equal(t, float32(1), x)
	assert.Equal(t, float32(2), y)
	assert.Equal(t, float32(3), z)
	assert.Equal(t, float32(1), tr.X())
	assert.Equal(t, float32(2), tr.Y())
	assert.Equal(t, float32(3), tr.Z())
}

func TestMulIdentity(t *testing.T) {
	tr := New(1, 2, 3, 0.1, 0.2, 0.3)
	assertNear(t, tr, tr.Mul(Identity()))
	assertNear(t, tr, Identity().Mul(tr))
}

func TestMulTranslations(t *testing.T) {
	a := New(1, 0, 0, 0, 0, 0)
	b := New(0, 2, 0, 0, 0, 0)
	assertNear(t, New(1, 2, 0, 0, 0, 0), a.Mul(b))
}

func TestInverse(t *testing.T) {
	tests := []struct {
		name string
		tr   Transform
	}{
		{"Translation", New(1, 2, 3, 0, 0, 0)},
		{"Rotation", New(0, 0, 0, 0.3, -0.2, 1.1)},
		{"Full", New(-4, 2.5, 0.1, 0.7, 0.2, -0.9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertNear(t, Identity(), tt.tr.Mul(tt.tr.Inverse()))
			assertNear(t, Identity(), tt.tr.Inverse().Mul(tt.tr))
		})
	}
}

func TestEulerRoundTrip(t *testing.T) {
	tr := New(0, 0, 0, 0.3, -0.4, 1.2)
	roll, pitch, yaw := tr.EulerAngles()
	assert.InDelta(t, 0.3, float64(roll), 1e-5)
	assert.InDelta(t, -0.4, float64(pitch), 1e-5)
	assert.InDelta(t, 1.2, float64(yaw), 1e-5)
}

func TestQuatRoundTrip(t *testing.T) {
	tr := New(1, 2, 3, 0.3, -0.4, 1.2)
	q := tr.Quat()
	assert.InDelta(t, 1, q.Real*q.Real+q.Imag*q.Imag+q.Jmag*q.Jmag+q.Kmag*q.Kmag, 1e-9)

	back := FromQuat(1, 2, 3, q)
	assertNear(t, tr, back)
}

func TestQuatIdentity(t *testing.T) {
	q := Identity().Quat()
	assert.InDelta(t, 1, q.Real, 1e-9)
	assert.InDelta(t, 0, q.Imag, 1e-9)
	assert.InDelta(t, 0, q.Jmag, 1e-9)
	assert.InDelta(t, 0, q.Kmag, 1e-9)
}

func TestJSONRoundTrip(t *testing.T) {
	tr := New(1, 2, 3, 0.1, 0.2, 0.3)

	data, err := json.Marshal(tr)
	require.NoError(t, err)

	var back Transform
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tr, back)
}

func TestJSONRejectsWrongLength(t *testing.T) {
	var tr Transform
	assert.Error(t, json.Unmarshal([]byte("[1,2,3]"), &tr))
}

func TestString(t *testing.T) {
	var null Transform
	assert.Equal(t, "Transform(null)", null.String())
	assert.Contains(t, New(1, 0, 0, 0, 0, 0).String(), "xyz=1.000")
}

func assertNear(t *testing.T, want, got Transform) {
	t.Helper()
	wm, gm := want.Matrix(), got.Matrix()
	for i := range wm {
		if math.Abs(float64(wm[i]-gm[i])) > 1e-5 {
			t.Fatalf("transforms differ at %d: want %v, got %v", i, wm, gm)
		}
	}
}
