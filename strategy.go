package texpack

import "image"

// NeedsRasterPass reports whether any active contribution inverts or scales
// its channel (a multiplier differing from 1 by more than 1e-5).
//
// The decision is made on the full contribution set. Preview restriction
// never changes it.
func NeedsRasterPass(contribs [4]Contribution) bool {
	for _, c := range contribs {
		if c.IsActive() && c.needsAdjustment() {
			return true
		}
	}
	return false
}

// Plan holds the passes of one packing call.
type Plan struct {
	Compute BlitParams
	Sources [4]image.Image

	// Raster is only meaningful when UseRaster is set.
	Raster BlitParams

	// UseRaster is true when the compute pass writes the intermediate
	// target and a raster pass writes the result.
	UseRaster bool
}

// PlanPasses builds the pass plan for req. A finalizing request ignores the
// preview restriction so the exported image always carries every channel.
func PlanPasses(req Request) Plan {
	preview := req.Preview
	if req.Finalize {
		preview = PreviewAll
	}
	p := Plan{UseRaster: NeedsRasterPass(req.Contributions)}
	p.Compute, p.Sources = BuildComputeParams(req.Contributions, preview)
	if p.UseRaster {
		p.Raster = BuildRasterParams(req.Contributions, preview)
	}
	return p
}

// Passes returns the number of passes the plan submits.
func (p Plan) Passes() int {
	if p.UseRaster {
		return 2
	}
	return 1
}
