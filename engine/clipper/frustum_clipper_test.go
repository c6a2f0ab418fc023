package clipper

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	origin  = [3]float32{0, 0, 0}
	forward = [3]float32{0, 0, -1}
	back    = [3]float32{0, 0, 1}
)

func TestFrustumClipper_Cull(t *testing.T) {
	bounds := BoundsTable{
		NewBatchBounds([]common.AABB{box(0, 0, -10, 1), box(1, 1, -20, 1)}),
		NewBatchBounds([]common.AABB{box(0, 0, 10, 1), box(0, 0, 20, 1)}),
		NewBatchBounds([]common.AABB{box(0, 0, -10, 1), box(0, 0, 20, 1)}),
	}
	c := NewFrustumClipper(WithSplitFrustums(cameraFrustum(origin, forward)), WithFrustumBounds(bounds))

	tests := []struct {
		name string
		id   int
		want culling.Verdict
	}{
		{name: "chunk inside", id: 0, want: culling.VerdictVisible},
		{name: "chunk behind camera", id: 1, want: culling.VerdictInvisible},
		{name: "chunk straddles near plane", id: 2, want: culling.VerdictPerInstance},
		{name: "no bounds", id: 7, want: culling.VerdictPerInstance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Cull(culling.NewVisibilityBatch(tt.id, 2)))
		})
	}
}

func TestFrustumClipper_CullAcrossSplits(t *testing.T) {
	bounds := BoundsTable{NewBatchBounds([]common.AABB{box(0, 0, -10, 1)})}
	c := NewFrustumClipper(
		WithSplitFrustums(cameraFrustum(origin, forward), cameraFrustum(origin, back)),
		WithFrustumBounds(bounds),
	)

	// Inside the first split and outside the second: some split sees it, not all.
	assert.Equal(t, culling.VerdictPerInstance, c.Cull(culling.NewVisibilityBatch(0, 1)))
	assert.Equal(t, 2, c.SplitCount())
}

func TestFrustumTester_PerSplit(t *testing.T) {
	bounds := BoundsTable{NewBatchBounds([]common.AABB{
		box(0, 0, -10, 1),
		box(0, 0, 10, 1),
		box(50, 0, 0, 1),
	})}
	c := NewFrustumClipper(
		WithSplitFrustums(cameraFrustum(origin, forward), cameraFrustum(origin, back)),
		WithFrustumBounds(bounds),
	)

	tester, err := c.CreateTester(culling.NewVisibilityBatch(0, 3))
	require.NoError(t, err)

	assert.True(t, tester.Test(0, 0))
	assert.False(t, tester.Test(0, 1))
	assert.False(t, tester.Test(1, 0))
	assert.True(t, tester.Test(1, 1))
	assert.False(t, tester.Test(2, 0))
	assert.False(t, tester.Test(2, 1))
	assert.False(t, tester.Test(0, 5), "splits beyond the clipper are never visible")
}

func TestFrustumClipper_MissingBounds(t *testing.T) {
	c := NewFrustumClipper(
		WithSplitFrustums(cameraFrustum(origin, forward)),
		WithFrustumBounds(BoundsTable{NewBatchBounds([]common.AABB{box(0, 0, -10, 1)})}),
	)

	_, err := c.CreateTester(culling.NewVisibilityBatch(3, 1))
	assert.ErrorIs(t, err, ErrMissingBounds)

	_, err = c.CreateTester(culling.NewVisibilityBatch(0, 4))
	assert.ErrorIs(t, err, ErrMissingBounds)
}

func TestNewFrustumClipper_PanicsOnSplitCount(t *testing.T) {
	assert.Panics(t, func() { NewFrustumClipper() })

	many := make([]common.Frustum, culling.MaxSplits+1)
	assert.Panics(t, func() { NewFrustumClipper(WithSplitFrustums(many...)) })
}

func TestWithViewProjection_Appends(t *testing.T) {
	var vp [16]float32
	copy(vp[:], viewProjection(origin, forward))

	c := NewFrustumClipper(WithSplitFrustums(cameraFrustum(origin, back)), WithViewProjection(vp))
	require.Equal(t, 2, c.SplitCount())
	assert.Equal(t, cameraFrustum(origin, forward), c.splits[1])
}

func TestDispatch_FrustumClipper(t *testing.T) {
	// Two batches of 100 instances in a line along -Z, then +Z.
	bounds := make(BoundsTable, 2)
	batches := make(culling.BatchSlice, 2)
	for id := range bounds {
		instances := make([]common.AABB, 100)
		for i := range instances {
			z := float32(i) - 50
			if id == 1 {
				z = -z
			}
			instances[i] = box(0, 0, z, 0.25)
		}
		bounds[id] = NewBatchBounds(instances)
		batches[id] = culling.NewVisibilityBatch(id, len(instances))
	}

	d := culling.NewDispatcher(culling.WithWorkers(2), culling.WithInlineThreshold(0))
	t.Cleanup(d.Close)

	c := NewFrustumClipper(
		WithSplitFrustums(cameraFrustum(origin, forward), cameraFrustum(origin, back)),
		WithFrustumBounds(bounds),
	)
	pass := culling.PassContext{ViewType: culling.ViewTypeLight, SplitCount: 2, Batches: batches}

	done, err := culling.Dispatch[FrustumTester](d, pass, c, nil)
	require.NoError(t, err)
	require.NoError(t, done.Wait())

	// A failing split clears the visibility bit, so only the instance seen by
	// both cascades stays visible; the split masks record which cascade saw each.
	for id, b := range batches {
		for i := 0; i < b.InstanceCount; i++ {
			z := float32(i) - 50
			if id == 1 {
				z = -z
			}
			var want uint8
			switch {
			case z < 0:
				want = 0b01
			case z > 0:
				want = 0b10
			default:
				want = 0b11
			}
			assert.Equal(t, want, b.SplitMasks[i]&0b11, "batch %d instance %d at z=%v", id, i, z)
			assert.Equal(t, want == 0b11, b.IsVisible(i), "batch %d instance %d at z=%v", id, i, z)
		}
	}
	assert.Equal(t, 2, done.Stats().Batches)
}

func TestFrustumClipper_BoundsSourceReadAtCullTime(t *testing.T) {
	var table BoundsTable
	c := NewFrustumClipper(WithSplitFrustums(cameraFrustum(origin, forward)), WithFrustumBounds(&table))

	b := culling.NewVisibilityBatch(0, 1)
	_, err := c.CreateTester(b)
	require.ErrorIs(t, err, ErrMissingBounds)

	// Filled after the clipper was built, as a gather stage does each frame.
	table = append(table, NewBatchBounds([]common.AABB{box(0, 0, 10, 1)}))
	assert.Equal(t, culling.VerdictInvisible, c.Cull(b))
}
